// FILE: lixenwraith/props/schema.go
package props

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Schema declares a set of named, typed property requests. Accessors returned
// by Define are keys into the schema's dispatch table; a View binds the table
// to a Properties instance.
type Schema struct {
	mu       sync.RWMutex
	prefix   string
	requests map[string]PropertyRequest
	order    []string
	errs     []error
}

// NewSchema creates a schema. A non-empty prefix is prepended to every
// property name ("db" + "host" -> "db.host").
func NewSchema(prefix string) *Schema {
	return &Schema{prefix: prefix, requests: make(map[string]PropertyRequest)}
}

// DefineOption adjusts a request being defined
type DefineOption func(*PropertyRequest)

// WithDefault gives the property a typed default
func WithDefault[T any](def T) DefineOption {
	return func(r *PropertyRequest) {
		*r = r.WithDefault(def)
	}
}

// WithShape overrides the descriptor derived from T, e.g. to use an
// enum-specific structured tag.
func WithShape(td TypeDescriptor) DefineOption {
	return func(r *PropertyRequest) {
		r.Shape = td
	}
}

// Accessor is a typed handle to one schema entry
type Accessor[T any] struct {
	key string
}

// Name returns the accessor's key, the full property name.
func (a Accessor[T]) Name() string { return a.key }

// Get resolves the accessor through v.
func (a Accessor[T]) Get(ctx context.Context, v *View) (T, error) {
	return typed[T](v.Get(ctx, a.key))
}

// MustGet is like Get but panics on error.
func (a Accessor[T]) MustGet(ctx context.Context, v *View) T {
	val, err := a.Get(ctx, v)
	if err != nil {
		panic(fmt.Sprintf("props: %v", err))
	}
	return val
}

// Define registers a property of type T. Definition errors (duplicate names,
// unsupported types) are reported by Bind.
func Define[T any](s *Schema, name string, opts ...DefineOption) Accessor[T] {
	key := name
	if s.prefix != "" {
		key = s.prefix + "." + name
	}

	req := PropertyRequest{Name: key}
	td, err := DescriptorFor(reflect.TypeFor[T]())
	if err == nil {
		req.Shape = td
	}
	for _, opt := range opts {
		opt(&req)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		s.errs = append(s.errs, fmt.Errorf("define %q: %w", key, err))
	case s.requests[key].Name != "":
		s.errs = append(s.errs, fmt.Errorf("define %q: duplicate property", key))
	default:
		s.requests[key] = req
		s.order = append(s.order, key)
	}
	return Accessor[T]{key: key}
}

// Names returns defined property names in definition order.
func (s *Schema) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Request returns the definition of a property.
func (s *Schema) Request(name string) (PropertyRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[name]
	return r, ok
}

// View dispatches accessor lookups to a Properties instance.
type View struct {
	props *Properties
	table map[string]PropertyRequest
}

// Bind snapshots the schema's table against p and resolves every property
// eagerly, joining all failures. The view is returned even on failure so
// callers may inspect the properties that did resolve.
func (s *Schema) Bind(ctx context.Context, p *Properties) (*View, error) {
	s.mu.RLock()
	table := make(map[string]PropertyRequest, len(s.requests))
	for k, r := range s.requests {
		table[k] = r
	}
	order := append([]string(nil), s.order...)
	errs := append([]error(nil), s.errs...)
	s.mu.RUnlock()

	v := &View{props: p, table: table}
	for _, name := range order {
		if _, err := v.Get(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return v, errors.Join(errs...)
}

// Get resolves a defined property by name.
func (v *View) Get(ctx context.Context, name string) (any, error) {
	req, ok := v.table[name]
	if !ok {
		return nil, &PropertyError{Name: name, Err: fmt.Errorf("%w: not defined in schema", ErrNotFound)}
	}
	return v.props.Get(ctx, req)
}

// Properties returns the bound instance.
func (v *View) Properties() *Properties { return v.props }
