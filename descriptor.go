// FILE: lixenwraith/props/descriptor.go
package props

import (
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Kind classifies the target shape of a property.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindBool
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindList
	KindArray
	KindSet
	KindStructured
)

var kindNames = map[Kind]string{
	KindInvalid:    "invalid",
	KindString:     "string",
	KindBool:       "bool",
	KindInt:        "int",
	KindInt8:       "int8",
	KindInt16:      "int16",
	KindInt32:      "int32",
	KindInt64:      "int64",
	KindUint:       "uint",
	KindUint8:      "uint8",
	KindUint16:     "uint16",
	KindUint32:     "uint32",
	KindUint64:     "uint64",
	KindFloat32:    "float32",
	KindFloat64:    "float64",
	KindList:       "list",
	KindArray:      "array",
	KindSet:        "set",
	KindStructured: "structured",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsCollection reports whether the kind carries an element descriptor.
func (k Kind) IsCollection() bool {
	return k == KindList || k == KindArray || k == KindSet
}

// TypeDescriptor describes the shape a raw value is converted into.
// Collection kinds carry exactly one element descriptor; structured kinds are
// identified by a tag that a registered converter must recognize.
type TypeDescriptor struct {
	kind   Kind
	goType reflect.Type
	elem   *TypeDescriptor
	tag    string
	length int // arrays only
}

// Kind returns the descriptor kind.
func (td TypeDescriptor) Kind() Kind { return td.kind }

// GoType returns the concrete Go type produced by conversion.
func (td TypeDescriptor) GoType() reflect.Type { return td.goType }

// Elem returns the element descriptor of a collection kind.
func (td TypeDescriptor) Elem() (TypeDescriptor, bool) {
	if td.elem == nil {
		return TypeDescriptor{}, false
	}
	return *td.elem, true
}

// Tag returns the structured tag, empty for other kinds.
func (td TypeDescriptor) Tag() string { return td.tag }

// Len returns the fixed length of an array descriptor.
func (td TypeDescriptor) Len() int { return td.length }

// String renders the canonical identity of the descriptor, used as cache key.
func (td TypeDescriptor) String() string {
	switch td.kind {
	case KindList, KindSet:
		if td.elem == nil {
			return td.kind.String() + "<?>"
		}
		return fmt.Sprintf("%s<%s>", td.kind, td.elem.String())
	case KindArray:
		if td.elem == nil {
			return "array<?>"
		}
		return fmt.Sprintf("array[%d]<%s>", td.length, td.elem.String())
	case KindStructured:
		return "structured:" + td.tag
	}
	if td.goType != nil && td.goType.Name() != "" && td.goType.PkgPath() != "" {
		// Named basic types (enums) keep their own identity
		return fmt.Sprintf("%s(%s)", td.kind, td.goType.String())
	}
	return td.kind.String()
}

// Validate checks the structural invariants of the descriptor.
func (td TypeDescriptor) Validate() error {
	if td.kind == KindInvalid || td.goType == nil {
		return fmt.Errorf("%w: unset descriptor", ErrInvalidDescriptor)
	}
	if td.kind.IsCollection() {
		if td.elem == nil {
			return fmt.Errorf("%w: %s requires an element descriptor", ErrInvalidDescriptor, td.kind)
		}
		return td.elem.Validate()
	}
	if td.elem != nil {
		return fmt.Errorf("%w: %s cannot carry an element descriptor", ErrInvalidDescriptor, td.kind)
	}
	if td.kind == KindStructured && td.tag == "" {
		return fmt.Errorf("%w: structured descriptor requires a tag", ErrInvalidDescriptor)
	}
	return nil
}

// ListOf describes a slice whose elements have the given shape.
func ListOf(elem TypeDescriptor) TypeDescriptor {
	e := elem
	td := TypeDescriptor{kind: KindList, elem: &e}
	if elem.goType != nil {
		td.goType = reflect.SliceOf(elem.goType)
	}
	return td
}

// SetOf describes a map[T]struct{} set of the given element shape. Elements
// must be comparable; otherwise the descriptor fails Validate.
func SetOf(elem TypeDescriptor) TypeDescriptor {
	e := elem
	td := TypeDescriptor{kind: KindSet, elem: &e}
	if elem.goType != nil && elem.goType.Comparable() {
		td.goType = reflect.MapOf(elem.goType, emptyStructType)
	}
	return td
}

// ArrayOf describes a fixed-length array of the given element shape.
func ArrayOf(elem TypeDescriptor, length int) TypeDescriptor {
	e := elem
	td := TypeDescriptor{kind: KindArray, elem: &e, length: length}
	if elem.goType != nil && length >= 0 {
		td.goType = reflect.ArrayOf(length, elem.goType)
	}
	return td
}

// Structured describes a custom type identified by tag.
func Structured(tag string, goType reflect.Type) TypeDescriptor {
	return TypeDescriptor{kind: KindStructured, goType: goType, tag: tag}
}

// TypeOf derives the descriptor for T.
func TypeOf[T any]() TypeDescriptor {
	td, err := DescriptorFor(reflect.TypeFor[T]())
	if err != nil {
		panic(fmt.Sprintf("props: %v", err))
	}
	return td
}

var (
	emptyStructType     = reflect.TypeFor[struct{}]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	stringType          = reflect.TypeFor[string]()
)

// wellKnown lists the structured types with built-in converters.
var wellKnown = map[reflect.Type]string{
	reflect.TypeFor[time.Duration]():   "duration",
	reflect.TypeFor[time.Time]():       "time",
	reflect.TypeFor[url.URL]():         "url",
	reflect.TypeFor[*url.URL]():        "url",
	reflect.TypeFor[net.IP]():          "ip",
	reflect.TypeFor[net.IPNet]():       "cidr",
	reflect.TypeFor[*net.IPNet]():      "cidr",
	reflect.TypeFor[uuid.UUID]():       "uuid",
	reflect.TypeFor[*regexp.Regexp]():  "regexp",
	reflect.TypeFor[[]byte]():          "bytes",
	reflect.TypeFor[*time.Location](): "location",
}

var basicKinds = map[reflect.Kind]Kind{
	reflect.String:  KindString,
	reflect.Bool:    KindBool,
	reflect.Int:     KindInt,
	reflect.Int8:    KindInt8,
	reflect.Int16:   KindInt16,
	reflect.Int32:   KindInt32,
	reflect.Int64:   KindInt64,
	reflect.Uint:    KindUint,
	reflect.Uint8:   KindUint8,
	reflect.Uint16:  KindUint16,
	reflect.Uint32:  KindUint32,
	reflect.Uint64:  KindUint64,
	reflect.Float32: KindFloat32,
	reflect.Float64: KindFloat64,
}

// DescriptorFor derives a descriptor from a Go type.
func DescriptorFor(t reflect.Type) (TypeDescriptor, error) {
	if t == nil {
		return TypeDescriptor{}, fmt.Errorf("%w: nil type", ErrInvalidDescriptor)
	}

	if tag, ok := wellKnown[t]; ok {
		return Structured(tag, t), nil
	}
	if t.Implements(textUnmarshalerType) || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return Structured(t.String(), t), nil
	}

	if k, ok := basicKinds[t.Kind()]; ok {
		return TypeDescriptor{kind: k, goType: t}, nil
	}

	switch t.Kind() {
	case reflect.Slice:
		elem, err := DescriptorFor(t.Elem())
		if err != nil {
			return TypeDescriptor{}, err
		}
		return TypeDescriptor{kind: KindList, goType: t, elem: &elem}, nil
	case reflect.Array:
		elem, err := DescriptorFor(t.Elem())
		if err != nil {
			return TypeDescriptor{}, err
		}
		return TypeDescriptor{kind: KindArray, goType: t, elem: &elem, length: t.Len()}, nil
	case reflect.Map:
		if t.Elem() != emptyStructType {
			return TypeDescriptor{}, fmt.Errorf("%w: map %s is not a set (value must be struct{})", ErrInvalidDescriptor, t)
		}
		elem, err := DescriptorFor(t.Key())
		if err != nil {
			return TypeDescriptor{}, err
		}
		return TypeDescriptor{kind: KindSet, goType: t, elem: &elem}, nil
	}

	// Unknown types are structured; a registered converter must claim the tag
	return Structured(t.String(), t), nil
}
