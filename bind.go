// FILE: lixenwraith/props/bind.go
package props

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// BindTag is the struct tag naming a field's property. "-" skips the field.
const BindTag = "prop"

// DefaultTag holds a field's default as a raw literal, converted with the
// field's descriptor.
const DefaultTag = "default"

type boundField struct {
	path []string // tag keys from the target root
	req  PropertyRequest
}

// BindStruct resolves every tagged field of target under prefix and decodes
// the results into it. Nested structs extend the dotted prefix. Fields without
// a tag use the field name. All field failures are joined; target is only
// written when every field resolved.
func BindStruct(ctx context.Context, p *Properties, prefix string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind target must be a non-nil struct pointer, got %T", target)
	}

	var fields []boundField
	var errs []error
	root := rv.Elem().Type()
	walking := map[reflect.Type]bool{root: true}
	collectFields(p.registry, root, strings.TrimSuffix(prefix, "."), nil, walking, &fields, &errs)

	nested := make(map[string]any)
	for _, f := range fields {
		v, err := p.Get(ctx, f.req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		setPath(nested, f.path, v)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: BindTag,
		// Values are already converted; hooks only cover pointer/value mismatches
		DecodeHook: mapstructure.ComposeDecodeHookFunc(derefHook()),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(nested); err != nil {
		return fmt.Errorf("decode failed for prefix %q: %w", prefix, err)
	}
	return nil
}

// collectFields walks struct fields the way the registration walker does,
// building one request per leaf. walking holds the struct types on the
// current path; a field leading back to one of them is reported, not walked.
func collectFields(reg *ConverterRegistry, t reflect.Type, prefix string, path []string, walking map[reflect.Type]bool, out *[]boundField, errs *[]error) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get(BindTag)
		if tag == "-" {
			continue
		}
		key := field.Name
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}

		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		fieldPath := append(append([]string(nil), path...), key)

		ft := field.Type
		if isNestedStruct(reg, ft) {
			nt := ft
			if nt.Kind() == reflect.Ptr {
				nt = nt.Elem()
			}
			if walking[nt] {
				*errs = append(*errs, &PropertyError{Name: name, Err: fmt.Errorf("%w: recursive struct %s", ErrInvalidDescriptor, nt)})
				continue
			}
			walking[nt] = true
			collectFields(reg, nt, name, fieldPath, walking, out, errs)
			delete(walking, nt)
			continue
		}

		td, err := DescriptorFor(ft)
		if err != nil {
			*errs = append(*errs, &PropertyError{Name: name, Err: fmt.Errorf("%w: field %s: %w", ErrConversion, field.Name, err)})
			continue
		}
		req := NewRequest(name, td)
		if def, ok := field.Tag.Lookup(DefaultTag); ok {
			v, err := reg.Convert(def, td)
			if err != nil {
				*errs = append(*errs, &PropertyError{Name: name, Err: fmt.Errorf("default: %w", err)})
				continue
			}
			req = req.WithDefault(v)
		}
		*out = append(*out, boundField{path: fieldPath, req: req})
	}
}

// isNestedStruct reports structs that are walked field by field rather than
// converted from a single value by a registered converter.
func isNestedStruct(reg *ConverterRegistry, t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	if td, err := DescriptorFor(t); err == nil {
		if _, ok := reg.Lookup(td); ok {
			return false
		}
	}
	return true
}

func setPath(nested map[string]any, path []string, value any) {
	current := nested
	for _, seg := range path[:len(path)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[seg] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

// derefHook passes a pointer value to a non-pointer field of its element type.
func derefHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() == reflect.Ptr && f.Elem() == t {
			v := reflect.ValueOf(data)
			if v.IsNil() {
				return reflect.Zero(t).Interface(), nil
			}
			return v.Elem().Interface(), nil
		}
		return data, nil
	}
}
