// FILE: lixenwraith/props/convert_collection.go
package props

import (
	"fmt"
	"reflect"
)

// convertElements splits raw and converts each segment through the registry.
func convertElements(raw string, td TypeDescriptor, reg *ConverterRegistry) ([]reflect.Value, error) {
	elem, ok := td.Elem()
	if !ok {
		return nil, fmt.Errorf("%w: %s without element", ErrInvalidDescriptor, td.Kind())
	}
	segments, err := reg.Split(raw)
	if err != nil {
		return nil, err
	}

	values := make([]reflect.Value, len(segments))
	for i, seg := range segments {
		v, err := reg.Convert(seg, elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		values[i] = reflect.ValueOf(v)
	}
	return values, nil
}

type listConverter struct{}

func (listConverter) Supports(td TypeDescriptor) bool { return td.Kind() == KindList }

func (listConverter) Convert(raw string, td TypeDescriptor, reg *ConverterRegistry) (any, error) {
	values, err := convertElements(raw, td, reg)
	if err != nil {
		return nil, err
	}
	slice := reflect.MakeSlice(td.GoType(), 0, len(values))
	slice = reflect.Append(slice, values...)
	return slice.Interface(), nil
}

type arrayConverter struct{}

func (arrayConverter) Supports(td TypeDescriptor) bool { return td.Kind() == KindArray }

func (arrayConverter) Convert(raw string, td TypeDescriptor, reg *ConverterRegistry) (any, error) {
	values, err := convertElements(raw, td, reg)
	if err != nil {
		return nil, err
	}
	if len(values) != td.Len() {
		return nil, fmt.Errorf("%w: %s needs %d elements, got %d", ErrConversion, td, td.Len(), len(values))
	}
	arr := reflect.New(td.GoType()).Elem()
	for i, v := range values {
		arr.Index(i).Set(v)
	}
	return arr.Interface(), nil
}

type setConverter struct{}

func (setConverter) Supports(td TypeDescriptor) bool { return td.Kind() == KindSet }

// Duplicate elements collapse into one.
func (setConverter) Convert(raw string, td TypeDescriptor, reg *ConverterRegistry) (any, error) {
	values, err := convertElements(raw, td, reg)
	if err != nil {
		return nil, err
	}
	if !td.GoType().Key().Comparable() {
		return nil, fmt.Errorf("%w: %s elements are not comparable", ErrConversion, td)
	}
	set := reflect.MakeMapWithSize(td.GoType(), len(values))
	present := reflect.New(td.GoType().Elem()).Elem()
	for _, v := range values {
		set.SetMapIndex(v, present)
	}
	return set.Interface(), nil
}
