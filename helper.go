// File: lixenwraith/props/helper.go
package props

import (
	"fmt"
	"strconv"
	"strings"
)

// flattenMap converts a nested document into dotted property names with raw
// string values. Scalar lists are joined with delimiter; lists containing
// tables are indexed (servers.0.host).
func flattenMap(nested map[string]any, prefix, delimiter string) (map[string]string, error) {
	flat := make(map[string]string)
	if err := flattenInto(flat, nested, prefix, delimiter); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenInto(flat map[string]string, nested map[string]any, prefix, delimiter string) error {
	for key, value := range nested {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if err := flattenValue(flat, path, value, delimiter); err != nil {
			return err
		}
	}
	return nil
}

func flattenValue(flat map[string]string, path string, value any, delimiter string) error {
	switch v := value.(type) {
	case nil:
		flat[path] = ""
	case map[string]any:
		return flattenInto(flat, v, path, delimiter)
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = val
		}
		return flattenInto(flat, m, path, delimiter)
	case []map[string]any:
		for i, item := range v {
			if err := flattenInto(flat, item, path+"."+strconv.Itoa(i), delimiter); err != nil {
				return err
			}
		}
	case []any:
		if !allScalars(v) {
			for i, item := range v {
				if err := flattenValue(flat, path+"."+strconv.Itoa(i), item, delimiter); err != nil {
					return err
				}
			}
			return nil
		}
		parts := make([]string, len(v))
		for i, item := range v {
			s, err := FormatValue(item)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", path, i, err)
			}
			// Joined elements must split back the same way
			if delimiter != "" && strings.Contains(s, delimiter) {
				return fmt.Errorf("%s[%d]: element %q contains list delimiter %q", path, i, s, delimiter)
			}
			parts[i] = s
		}
		flat[path] = strings.Join(parts, delimiter)
	default:
		s, err := FormatValue(v)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if len(s) > MaxValueSize {
			return fmt.Errorf("%s: value exceeds %d bytes", path, MaxValueSize)
		}
		flat[path] = s
	}
	return nil
}

func allScalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, map[any]any, []any, []map[string]any:
			return false
		}
	}
	return true
}

// isValidKeySegment checks if a single path segment is a valid bare key part:
// ASCII letters, digits, underscores and dashes.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !(isLetter || isDigit || r == '_' || r == '-') {
			return false
		}
	}
	return true
}
