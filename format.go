// FILE: lixenwraith/props/format.go
package props

import (
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FormatValue renders a converted value back to a raw string that converts to
// an equal value. Collections use the default delimiter.
func FormatValue(v any) (string, error) {
	return formatValue(v, DefaultListDelimiter)
}

// Format renders v using the registry's delimiter.
func (r *ConverterRegistry) Format(v any) (string, error) {
	return formatValue(v, r.delimiter)
}

func formatValue(val any, delimiter string) (string, error) {
	if val == nil {
		return "", fmt.Errorf("cannot format nil value")
	}

	// Concrete types first; named basic types fall through to reflection
	switch v := val.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Duration:
		return v.String(), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case *time.Location:
		return v.String(), nil
	case net.IP:
		return v.String(), nil
	case net.IPNet:
		return v.String(), nil
	case *net.IPNet:
		return v.String(), nil
	case url.URL:
		return v.String(), nil
	case *url.URL:
		return v.String(), nil
	case *regexp.Regexp:
		return v.String(), nil
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	rv := reflect.ValueOf(val)
	if s, ok := val.(fmt.Stringer); ok && rv.Type().PkgPath() != "" {
		// Enum constants format by name
		return s.String(), nil
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			s, err := formatValue(rv.Index(i).Interface(), delimiter)
			if err != nil {
				return "", fmt.Errorf("element %d: %w", i, err)
			}
			parts[i] = s
		}
		return strings.Join(parts, delimiter), nil
	case reflect.Map:
		if rv.Type().Elem() != emptyStructType {
			break
		}
		parts := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			s, err := formatValue(iter.Key().Interface(), delimiter)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		sort.Strings(parts)
		return strings.Join(parts, delimiter), nil
	}

	if s, ok := val.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return "", fmt.Errorf("cannot format type %T", val)
}
