// File: lixenwraith/props/properties.go
package props

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"time"
)

// PropertyRequest names a property and the shape to convert it to.
// A default, when present, must already have the shape's Go type; it is
// returned as-is when no source has the property.
type PropertyRequest struct {
	Name       string
	Shape      TypeDescriptor
	Default    any
	HasDefault bool
}

// NewRequest creates a request without a default.
func NewRequest(name string, shape TypeDescriptor) PropertyRequest {
	return PropertyRequest{Name: name, Shape: shape}
}

// WithDefault returns a copy of the request carrying def.
func (r PropertyRequest) WithDefault(def any) PropertyRequest {
	r.Default = def
	r.HasDefault = true
	return r
}

// Properties is the resolution façade: cache, then source chain with
// placeholder expansion, then processors, then conversion.
// All methods are safe for concurrent use.
type Properties struct {
	chain    *ResolverChain
	expander *Expander
	pipeline *ProcessorPipeline
	registry *ConverterRegistry
	cache    *Cache
	logger   *slog.Logger
	observer Observer
	stats    *Stats
}

// Get resolves req. Converted values are cached per (name, shape) together
// with failures; cancellation is never cached. A request's default is applied
// after the cache, so an absent property stays ErrNotFound for requests
// without one. Placeholders in req.Name are expanded on every call, against
// the sources as they are then. Collection values are shared between callers
// and must not be modified.
func (p *Properties) Get(ctx context.Context, req PropertyRequest) (any, error) {
	start := time.Now()

	if err := req.Shape.Validate(); err != nil {
		return nil, p.fail(req.Name, "", start, fmt.Errorf("%w: %w", ErrConversion, err))
	}
	if req.HasDefault {
		if err := checkDefault(req); err != nil {
			return nil, p.fail(req.Name, "", start, err)
		}
	}

	name, err := p.expandName(ctx, req.Name)
	if err != nil {
		return nil, p.fail(req.Name, "", start, err)
	}

	source := ""
	value, hit, err := p.cache.GetOrCompute(name, req.Shape, func() (any, error) {
		v, src, err := p.compute(ctx, name, req.Shape)
		source = src
		return v, err
	})
	if hit {
		p.stats.hits.Inc()
		p.observer.CacheHit(name)
		source = "cache"
	} else {
		p.stats.misses.Inc()
		p.observer.CacheMiss(name)
	}

	if errors.Is(err, ErrNotFound) && req.HasDefault {
		p.logger.Debug("property defaulted", slog.String("property", name))
		value, source, err = req.Default, "default", nil
	}
	if err != nil {
		return nil, p.fail(name, source, start, err)
	}
	p.observer.Resolved(name, source, time.Since(start), nil)
	return value, nil
}

func (p *Properties) fail(name, source string, start time.Time, err error) error {
	p.stats.failures.Inc()
	p.observer.Resolved(name, source, time.Since(start), err)
	return &PropertyError{Name: name, Err: err}
}

// compute runs the uncached pipeline and reports which source answered.
// An absent property is ErrNotFound whatever the request's default.
func (p *Properties) compute(ctx context.Context, name string, shape TypeDescriptor) (any, string, error) {
	raw, source, found := p.chain.Resolve(ctx, name)
	if !found {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		return nil, "", ErrNotFound
	}

	expanded, err := p.expander.Expand(ctx, raw, p.lookup, NewExpansionState(name))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, source, ctxErr
		}
		return nil, source, err
	}

	processed, err := p.pipeline.Process(expanded)
	if err != nil {
		return nil, source, err
	}

	value, err := p.registry.Convert(processed, shape)
	if err != nil {
		return nil, source, err
	}

	p.logger.Debug("property resolved",
		slog.String("property", name),
		slog.String("source", source),
		slog.String("shape", shape.String()))
	return value, source, nil
}

func (p *Properties) lookup(ctx context.Context, name string) (string, bool) {
	raw, _, found := p.chain.Resolve(ctx, name)
	return raw, found
}

func (p *Properties) expandName(ctx context.Context, name string) (string, error) {
	if !p.expander.HasPlaceholder(name) {
		return name, nil
	}
	expanded, err := p.expander.Expand(ctx, name, p.lookup, NewExpansionState())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("expand name: %w", err)
	}
	return expanded, nil
}

func checkDefault(req PropertyRequest) error {
	t := req.Shape.GoType()
	if req.Default == nil {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
			return nil
		}
		return fmt.Errorf("%w: nil default for %s", ErrConversion, req.Shape)
	}
	if reflect.TypeOf(req.Default) != t {
		return fmt.Errorf("%w: default has type %T, want %s", ErrConversion, req.Default, t)
	}
	return nil
}

// Raw returns the unexpanded value of name and the source that holds it.
func (p *Properties) Raw(ctx context.Context, name string) (raw, source string, found bool) {
	return p.chain.Resolve(ctx, name)
}

// Expand substitutes placeholders in an arbitrary string.
func (p *Properties) Expand(ctx context.Context, raw string) (string, error) {
	return p.expander.Expand(ctx, raw, p.lookup, NewExpansionState())
}

// Resolve returns the fully expanded and processed string value of name,
// bypassing conversion and the cache.
func (p *Properties) Resolve(ctx context.Context, name string) (string, error) {
	raw, _, found := p.chain.Resolve(ctx, name)
	if !found {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", &PropertyError{Name: name, Err: ErrNotFound}
	}
	expanded, err := p.expander.Expand(ctx, raw, p.lookup, NewExpansionState(name))
	if err != nil {
		return "", &PropertyError{Name: name, Err: err}
	}
	processed, err := p.pipeline.Process(expanded)
	if err != nil {
		return "", &PropertyError{Name: name, Err: err}
	}
	return processed, nil
}

// Invalidate drops every cached outcome for name.
func (p *Properties) Invalidate(name string) {
	n := p.cache.Invalidate(name)
	p.logger.Debug("cache invalidated", slog.String("property", name), slog.Int("entries", n))
}

// InvalidateAll clears the cache.
func (p *Properties) InvalidateAll() {
	n := p.cache.InvalidateAll()
	p.logger.Debug("cache cleared", slog.Int("entries", n))
}

// Stats returns a snapshot of the instance counters.
func (p *Properties) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// Sources returns the chain's source names in priority order.
func (p *Properties) Sources() []string {
	return p.chain.Sources()
}

// Registry returns the converter registry.
func (p *Properties) Registry() *ConverterRegistry {
	return p.registry
}

// KeyLister is implemented by sources that can enumerate their properties.
type KeyLister interface {
	Keys() []string
}

// Keys returns the union of property names from every source that can list
// them, sorted.
func (p *Properties) Keys() []string {
	seen := make(map[string]struct{})
	for _, s := range p.chain.sources {
		lister, ok := s.(KeyLister)
		if !ok {
			continue
		}
		for _, k := range lister.Keys() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get resolves name as T.
func Get[T any](ctx context.Context, p *Properties, name string) (T, error) {
	var zero T
	td, err := DescriptorFor(reflect.TypeFor[T]())
	if err != nil {
		return zero, &PropertyError{Name: name, Err: fmt.Errorf("%w: %w", ErrConversion, err)}
	}
	return typed[T](p.Get(ctx, NewRequest(name, td)))
}

// GetOr resolves name as T, returning def when no source has it.
func GetOr[T any](ctx context.Context, p *Properties, name string, def T) (T, error) {
	var zero T
	td, err := DescriptorFor(reflect.TypeFor[T]())
	if err != nil {
		return zero, &PropertyError{Name: name, Err: fmt.Errorf("%w: %w", ErrConversion, err)}
	}
	return typed[T](p.Get(ctx, NewRequest(name, td).WithDefault(def)))
}

// MustGet is like Get but panics on error.
func MustGet[T any](ctx context.Context, p *Properties, name string) T {
	v, err := Get[T](ctx, p, name)
	if err != nil {
		panic(fmt.Sprintf("props: %v", err))
	}
	return v
}

func typed[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %s", ErrConversion, v, reflect.TypeFor[T]())
	}
	return t, nil
}

// IsNotFound reports whether err means the property is absent everywhere.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
