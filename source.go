// FILE: lixenwraith/props/source.go
package props

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Source answers whether a named property exists and what its raw value is.
// A missing property is reported with found=false and a nil error; a non-nil
// error means the backend could not answer.
type Source interface {
	Name() string
	Lookup(ctx context.Context, name string) (value string, found bool, err error)
}

// MapSource is an in-memory Source. It is safe for concurrent use.
type MapSource struct {
	name   string
	mu     sync.RWMutex
	values map[string]string
}

// NewMapSource creates a MapSource holding a copy of values.
func NewMapSource(name string, values map[string]string) *MapSource {
	m := &MapSource{name: name, values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Name returns the source name.
func (m *MapSource) Name() string { return m.name }

// Lookup returns the stored value for name.
func (m *MapSource) Lookup(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	return v, ok, nil
}

// Set stores a value. Cached resolutions are not affected until invalidated.
func (m *MapSource) Set(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
}

// Delete removes a value.
func (m *MapSource) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, name)
}

// Keys returns the stored property names in sorted order.
func (m *MapSource) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc struct {
	SourceName string
	Fn         func(ctx context.Context, name string) (string, bool, error)
}

func (f SourceFunc) Name() string { return f.SourceName }

func (f SourceFunc) Lookup(ctx context.Context, name string) (string, bool, error) {
	return f.Fn(ctx, name)
}

// ResolverChain queries sources strictly in declaration order and returns the
// first hit. It holds no mutable state and is safe for concurrent use.
type ResolverChain struct {
	sources  []Source
	logger   *slog.Logger
	observer Observer
	stats    *Stats
}

// NewResolverChain creates a chain over sources, first = highest priority.
func NewResolverChain(logger *slog.Logger, sources ...Source) (*ResolverChain, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	for i, s := range sources {
		if s == nil {
			return nil, fmt.Errorf("source at position %d is nil", i)
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ResolverChain{
		sources:  append([]Source(nil), sources...),
		logger:   logger,
		observer: noopObserver{},
		stats:    &Stats{},
	}, nil
}

// Sources returns the names of the chained sources in priority order.
func (c *ResolverChain) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first value found for name and the name of the source
// that produced it. Source failures are logged and skipped; when every source
// is either absent or failing, found is false.
func (c *ResolverChain) Resolve(ctx context.Context, name string) (value string, source string, found bool) {
	for _, s := range c.sources {
		if ctx.Err() != nil {
			// Caller gave up; remaining sources would block on a dead context anyway
			c.logger.Debug("resolution abandoned",
				slog.String("property", name),
				slog.String("source", s.Name()),
				"error", ctx.Err())
			return "", "", false
		}

		v, ok, err := s.Lookup(ctx, name)
		if err != nil {
			c.stats.sourceFailures.Inc()
			c.observer.SourceFailure(s.Name(), name, err)
			c.logger.Warn("source lookup failed",
				slog.String("source", s.Name()),
				slog.String("property", name),
				"error", backendError(s.Name(), err))
			continue
		}
		if ok {
			return v, s.Name(), true
		}
	}
	return "", "", false
}

// backendError tags a source failure with ErrBackend unless already tagged.
func backendError(source string, err error) error {
	if errors.Is(err, ErrBackend) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrBackend, source, err)
}
