// FILE: lixenwraith/props/convert.go
package props

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Converter maps a processed raw value to the Go type described by td.
// Collection converters call back into reg for their elements.
type Converter interface {
	Supports(td TypeDescriptor) bool
	Convert(raw string, td TypeDescriptor, reg *ConverterRegistry) (any, error)
}

// EmptySegments selects how blank list segments are treated.
type EmptySegments uint8

const (
	// EmptySegmentsSkip drops segments that are empty after trimming.
	EmptySegmentsSkip EmptySegments = iota
	// EmptySegmentsReject fails conversion on the first empty segment.
	EmptySegmentsReject
)

func (p EmptySegments) String() string {
	if p == EmptySegmentsReject {
		return "reject"
	}
	return "skip"
}

// DefaultListDelimiter separates collection elements.
const DefaultListDelimiter = ","

// ConverterRegistry holds converters in priority order. It is read-only after
// construction and safe for concurrent use.
type ConverterRegistry struct {
	converters    []Converter
	delimiter     string
	emptySegments EmptySegments
}

// NewConverterRegistry creates a registry. An empty delimiter means ",".
func NewConverterRegistry(delimiter string, policy EmptySegments, converters ...Converter) *ConverterRegistry {
	if delimiter == "" {
		delimiter = DefaultListDelimiter
	}
	return &ConverterRegistry{
		converters:    append([]Converter(nil), converters...),
		delimiter:     delimiter,
		emptySegments: policy,
	}
}

// Delimiter returns the collection element delimiter.
func (r *ConverterRegistry) Delimiter() string { return r.delimiter }

// EmptySegments returns the blank segment policy.
func (r *ConverterRegistry) EmptySegments() EmptySegments { return r.emptySegments }

// Lookup returns the first converter supporting td.
func (r *ConverterRegistry) Lookup(td TypeDescriptor) (Converter, bool) {
	for _, c := range r.converters {
		if c.Supports(td) {
			return c, true
		}
	}
	return nil, false
}

// Convert converts raw to td using the first supporting converter.
// Every failure wraps ErrConversion.
func (r *ConverterRegistry) Convert(raw string, td TypeDescriptor) (any, error) {
	if err := td.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}
	c, ok := r.Lookup(td)
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoConverter, td)
	}
	v, err := c.Convert(raw, td, r)
	if err != nil {
		if errors.Is(err, ErrConversion) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrConversion, td, err)
	}
	return v, nil
}

// Split breaks a collection literal into trimmed segments under the registry's
// delimiter and blank segment policy. A blank literal is an empty collection.
func (r *ConverterRegistry) Split(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	parts := strings.Split(raw, r.delimiter)
	segments := make([]string, 0, len(parts))
	for i, part := range parts {
		seg := strings.TrimSpace(part)
		if seg == "" {
			if r.emptySegments == EmptySegmentsReject {
				return nil, fmt.Errorf("%w: empty segment at position %d", ErrConversion, i)
			}
			continue
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// DefaultConverters returns the built-in converters in priority order.
func DefaultConverters() []Converter {
	return []Converter{
		stringConverter{},
		boolConverter{},
		intConverter{},
		uintConverter{},
		floatConverter{},
		listConverter{},
		arrayConverter{},
		setConverter{},
		durationConverter,
		timeConverter,
		urlConverter,
		ipConverter,
		cidrConverter,
		uuidConverter,
		regexpConverter,
		bytesConverter,
		locationConverter,
		textUnmarshalerConverter{},
	}
}

// as converts v to t so named types (type Port int) come back as themselves.
func as(v any, t reflect.Type) any {
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return v
	}
	return rv.Convert(t).Interface()
}

type stringConverter struct{}

func (stringConverter) Supports(td TypeDescriptor) bool { return td.Kind() == KindString }

func (stringConverter) Convert(raw string, td TypeDescriptor, _ *ConverterRegistry) (any, error) {
	return as(raw, td.GoType()), nil
}

type boolConverter struct{}

func (boolConverter) Supports(td TypeDescriptor) bool { return td.Kind() == KindBool }

func (boolConverter) Convert(raw string, td TypeDescriptor, _ *ConverterRegistry) (any, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid bool %q", ErrConversion, raw)
	}
	return as(b, td.GoType()), nil
}

var intBits = map[Kind]int{
	KindInt: strconv.IntSize, KindInt8: 8, KindInt16: 16, KindInt32: 32, KindInt64: 64,
	KindUint: strconv.IntSize, KindUint8: 8, KindUint16: 16, KindUint32: 32, KindUint64: 64,
}

type intConverter struct{}

func (intConverter) Supports(td TypeDescriptor) bool {
	switch td.Kind() {
	case KindInt, KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

func (intConverter) Convert(raw string, td TypeDescriptor, _ *ConverterRegistry) (any, error) {
	bits := intBits[td.Kind()]
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, bits)
	if err != nil {
		return nil, numError(raw, td, err)
	}
	return reflect.ValueOf(n).Convert(td.GoType()).Interface(), nil
}

type uintConverter struct{}

func (uintConverter) Supports(td TypeDescriptor) bool {
	switch td.Kind() {
	case KindUint, KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	}
	return false
}

func (uintConverter) Convert(raw string, td TypeDescriptor, _ *ConverterRegistry) (any, error) {
	bits := intBits[td.Kind()]
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, bits)
	if err != nil {
		return nil, numError(raw, td, err)
	}
	return reflect.ValueOf(n).Convert(td.GoType()).Interface(), nil
}

type floatConverter struct{}

func (floatConverter) Supports(td TypeDescriptor) bool {
	return td.Kind() == KindFloat32 || td.Kind() == KindFloat64
}

func (floatConverter) Convert(raw string, td TypeDescriptor, _ *ConverterRegistry) (any, error) {
	bits := 64
	if td.Kind() == KindFloat32 {
		bits = 32
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), bits)
	if err != nil {
		return nil, numError(raw, td, err)
	}
	return reflect.ValueOf(f).Convert(td.GoType()).Interface(), nil
}

func numError(raw string, td TypeDescriptor, err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("%w: %q overflows %s", ErrConversion, raw, td)
	}
	return fmt.Errorf("%w: invalid %s %q", ErrConversion, td, raw)
}

// EnumConverter maps exact, case-sensitive constant names to values of T.
type EnumConverter[T comparable] struct {
	typ    reflect.Type
	values map[string]T
	names  map[T]string
}

// NewEnumConverter creates a converter from a name to constant table.
func NewEnumConverter[T comparable](values map[string]T) *EnumConverter[T] {
	c := &EnumConverter[T]{
		typ:    reflect.TypeFor[T](),
		values: make(map[string]T, len(values)),
		names:  make(map[T]string, len(values)),
	}
	for name, v := range values {
		c.values[name] = v
		c.names[v] = name
	}
	return c
}

// EnumOf builds an EnumConverter keyed by each constant's String().
func EnumOf[T interface {
	comparable
	fmt.Stringer
}](constants ...T) *EnumConverter[T] {
	values := make(map[string]T, len(constants))
	for _, c := range constants {
		values[c.String()] = c
	}
	return NewEnumConverter(values)
}

func (c *EnumConverter[T]) Supports(td TypeDescriptor) bool {
	return !td.Kind().IsCollection() && td.GoType() == c.typ
}

func (c *EnumConverter[T]) Convert(raw string, _ TypeDescriptor, _ *ConverterRegistry) (any, error) {
	if v, ok := c.values[raw]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %q is not one of %s", ErrConversion, raw, strings.Join(c.Names(), ", "))
}

// Name returns the constant name of v.
func (c *EnumConverter[T]) Name(v T) (string, bool) {
	name, ok := c.names[v]
	return name, ok
}

// Names returns the accepted names in sorted order.
func (c *EnumConverter[T]) Names() []string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
