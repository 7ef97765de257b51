// FILE: lixenwraith/props/convert_structured.go
package props

import (
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Input length limits for network types
const (
	maxIPLength   = 45   // IPv6 with zone
	maxCIDRLength = 49   // IPv6 CIDR
	maxURLLength  = 2048 // common browser limit
)

// StructuredConverter handles one structured tag. Parse receives the target Go
// type so pointer and value forms can share a tag.
type StructuredConverter struct {
	Tag   string
	Parse func(raw string, goType reflect.Type) (any, error)
}

func (c StructuredConverter) Supports(td TypeDescriptor) bool {
	return td.Kind() == KindStructured && td.Tag() == c.Tag
}

func (c StructuredConverter) Convert(raw string, td TypeDescriptor, _ *ConverterRegistry) (any, error) {
	return c.Parse(raw, td.GoType())
}

var durationConverter = StructuredConverter{Tag: "duration", Parse: func(raw string, _ reflect.Type) (any, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid duration: %w", err)
	}
	return d, nil
}}

var timeConverter = StructuredConverter{Tag: "time", Parse: func(raw string, _ reflect.Type) (any, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid RFC3339 time: %w", err)
	}
	return t, nil
}}

var urlConverter = StructuredConverter{Tag: "url", Parse: func(raw string, goType reflect.Type) (any, error) {
	str := strings.TrimSpace(raw)
	if len(str) > maxURLLength {
		return nil, fmt.Errorf("URL too long: %d bytes", len(str))
	}
	u, err := url.Parse(str)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if goType.Kind() == reflect.Ptr {
		return u, nil
	}
	return *u, nil
}}

var ipConverter = StructuredConverter{Tag: "ip", Parse: func(raw string, _ reflect.Type) (any, error) {
	str := strings.TrimSpace(raw)
	if len(str) > maxIPLength {
		return nil, fmt.Errorf("invalid IP length: %d", len(str))
	}
	ip := net.ParseIP(str)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", str)
	}
	return ip, nil
}}

var cidrConverter = StructuredConverter{Tag: "cidr", Parse: func(raw string, goType reflect.Type) (any, error) {
	str := strings.TrimSpace(raw)
	if len(str) > maxCIDRLength {
		return nil, fmt.Errorf("invalid CIDR length: %d", len(str))
	}
	_, ipnet, err := net.ParseCIDR(str)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR: %w", err)
	}
	if goType.Kind() == reflect.Ptr {
		return ipnet, nil
	}
	return *ipnet, nil
}}

var uuidConverter = StructuredConverter{Tag: "uuid", Parse: func(raw string, _ reflect.Type) (any, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid UUID: %w", err)
	}
	return id, nil
}}

var regexpConverter = StructuredConverter{Tag: "regexp", Parse: func(raw string, _ reflect.Type) (any, error) {
	re, err := regexp.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return re, nil
}}

var bytesConverter = StructuredConverter{Tag: "bytes", Parse: func(raw string, _ reflect.Type) (any, error) {
	return []byte(raw), nil
}}

var locationConverter = StructuredConverter{Tag: "location", Parse: func(raw string, _ reflect.Type) (any, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}
	return loc, nil
}}

// textUnmarshalerConverter handles any structured type whose value or pointer
// implements encoding.TextUnmarshaler.
type textUnmarshalerConverter struct{}

func (textUnmarshalerConverter) Supports(td TypeDescriptor) bool {
	if td.Kind() != KindStructured || td.GoType() == nil {
		return false
	}
	t := td.GoType()
	return t.Implements(textUnmarshalerType) || reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func (textUnmarshalerConverter) Convert(raw string, td TypeDescriptor, _ *ConverterRegistry) (any, error) {
	t := td.GoType()
	if t.Kind() == reflect.Ptr {
		ptr := reflect.New(t.Elem())
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
			return nil, err
		}
		return ptr.Interface(), nil
	}
	ptr := reflect.New(t)
	if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}
