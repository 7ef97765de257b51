// FILE: lixenwraith/props/properties_test.go
package props_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/props"
)

// recordingObserver keeps every event for inspection
type recordingObserver struct {
	mu       sync.Mutex
	hits     []string
	misses   []string
	failures []string
	resolved []string
}

func (o *recordingObserver) CacheHit(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits = append(o.hits, name)
}

func (o *recordingObserver) CacheMiss(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses = append(o.misses, name)
}

func (o *recordingObserver) SourceFailure(source, name string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, source+"/"+name)
}

func (o *recordingObserver) Resolved(name, source string, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolved = append(o.resolved, name+"@"+source)
}

func newProps(t *testing.T, sources ...props.Source) *props.Properties {
	t.Helper()
	p, err := props.NewBuilder().WithSources(sources...).Build()
	require.NoError(t, err)
	return p
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	t.Run("Typed Values", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", map[string]string{
			"server.port":    "8080",
			"server.timeout": "15s",
			"server.origins": "a.example, b.example",
			"feature.on":     "true",
		}))

		port, err := props.Get[int](ctx, p, "server.port")
		require.NoError(t, err)
		assert.Equal(t, 8080, port)

		timeout, err := props.Get[time.Duration](ctx, p, "server.timeout")
		require.NoError(t, err)
		assert.Equal(t, 15*time.Second, timeout)

		origins, err := props.Get[[]string](ctx, p, "server.origins")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.example", "b.example"}, origins)

		on, err := props.Get[bool](ctx, p, "feature.on")
		require.NoError(t, err)
		assert.True(t, on)
	})

	t.Run("Placeholder With Default", func(t *testing.T) {
		p := newProps(t,
			props.NewMapSource("m", map[string]string{"db.host": "${DB_HOST_FOR_TEST:localhost}"}))

		host, err := props.Get[string](ctx, p, "db.host")
		require.NoError(t, err)
		assert.Equal(t, "localhost", host)
	})

	t.Run("Placeholder Across Sources", func(t *testing.T) {
		high := props.NewMapSource("high", map[string]string{"db.user": "admin"})
		low := props.NewMapSource("low", map[string]string{
			"db.user": "app",
			"db.url":  "postgres://${db.user}@${db.host:localhost}/main",
		})
		p := newProps(t, high, low)

		url, err := props.Get[string](ctx, p, "db.url")
		require.NoError(t, err)
		assert.Equal(t, "postgres://admin@localhost/main", url)
	})

	t.Run("Not Found", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", nil))
		_, err := props.Get[string](ctx, p, "missing")
		assert.ErrorIs(t, err, props.ErrNotFound)
		assert.True(t, props.IsNotFound(err))

		var perr *props.PropertyError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "missing", perr.Name)
	})

	t.Run("Errors Are Distinguishable", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", map[string]string{
			"cycle.a": "${cycle.b}",
			"cycle.b": "${cycle.a}",
			"dangle":  "${nowhere}",
			"word":    "eighty",
			"secret":  "enc:none:xyz",
		}))
		p2, err := props.NewBuilder().
			WithSources(props.NewMapSource("m", map[string]string{"secret": "enc:none:xyz"})).
			WithProcessors(props.NewDecryptProcessor()).
			Build()
		require.NoError(t, err)

		_, err = props.Get[string](ctx, p, "cycle.a")
		assert.ErrorIs(t, err, props.ErrCircularReference)
		_, err = props.Get[string](ctx, p, "dangle")
		assert.ErrorIs(t, err, props.ErrMissingPlaceholder)
		_, err = props.Get[int](ctx, p, "word")
		assert.ErrorIs(t, err, props.ErrConversion)
		_, err = props.Get[string](ctx, p2, "secret")
		assert.ErrorIs(t, err, props.ErrProcessing)

		// Without a processor the marker is plain text
		v, err := props.Get[string](ctx, p, "secret")
		require.NoError(t, err)
		assert.Equal(t, "enc:none:xyz", v)
	})

	t.Run("Name Placeholders", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", map[string]string{
			"env":             "prod",
			"prod.db.host":    "prod-db",
			"staging.db.host": "staging-db",
		}))

		host, err := props.Get[string](ctx, p, "${env}.db.host")
		require.NoError(t, err)
		assert.Equal(t, "prod-db", host)

		host, err = props.Get[string](ctx, p, "${region:staging}.db.host")
		require.NoError(t, err)
		assert.Equal(t, "staging-db", host)

		_, err = props.Get[string](ctx, p, "${region}.db.host")
		assert.ErrorIs(t, err, props.ErrMissingPlaceholder)
	})

	t.Run("Name Placeholders Follow Sources", func(t *testing.T) {
		src := props.NewMapSource("m", map[string]string{
			"env":             "prod",
			"prod.db.host":    "prod-db",
			"staging.db.host": "staging-db",
		})
		p := newProps(t, src)

		assert.Equal(t, "prod-db", props.MustGet[string](ctx, p, "${env}.db.host"))

		// The name is expanded per call; each expanded name has its own entry
		src.Set("env", "staging")
		assert.Equal(t, "staging-db", props.MustGet[string](ctx, p, "${env}.db.host"))

		src.Set("prod.db.host", "changed")
		src.Set("env", "prod")
		assert.Equal(t, "prod-db", props.MustGet[string](ctx, p, "${env}.db.host"))
	})

	t.Run("Invalid Descriptor", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", map[string]string{"a": "1"}))
		_, err := p.Get(ctx, props.NewRequest("a", props.TypeDescriptor{}))
		assert.ErrorIs(t, err, props.ErrConversion)
		assert.ErrorIs(t, err, props.ErrInvalidDescriptor)
	})
}

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{MapSource: props.NewMapSource("m", map[string]string{"present": "7"})}
	p := newProps(t, src)

	t.Run("Used When Absent", func(t *testing.T) {
		v, err := props.GetOr(ctx, p, "absent", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, v)

		d, err := props.GetOr(ctx, p, "absent.timeout", 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, d)
	})

	t.Run("Ignored When Present", func(t *testing.T) {
		v, err := props.GetOr(ctx, p, "present", 3)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("Default Type Must Match", func(t *testing.T) {
		_, err := p.Get(ctx, props.NewRequest("absent", props.TypeOf[int]()).WithDefault("3"))
		assert.ErrorIs(t, err, props.ErrConversion)

		_, err = p.Get(ctx, props.NewRequest("absent", props.TypeOf[int]()).WithDefault(nil))
		assert.ErrorIs(t, err, props.ErrConversion)
	})

	t.Run("Nil Default For Slice", func(t *testing.T) {
		v, err := p.Get(ctx, props.NewRequest("absent.list", props.TypeOf[[]string]()).WithDefault(nil))
		require.NoError(t, err)
		assert.Nil(t, v)

		list, err := props.GetOr[[]string](ctx, p, "absent.list2", nil)
		require.NoError(t, err)
		assert.Nil(t, list)
	})

	t.Run("Default Does Not Leak To Plain Get", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", nil))

		v, err := props.GetOr(ctx, p, "timeout", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, v)

		_, err = props.Get[int](ctx, p, "timeout")
		assert.ErrorIs(t, err, props.ErrNotFound)
	})

	t.Run("Cached Absence Still Defaults", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", nil))

		_, err := props.Get[int](ctx, p, "timeout")
		assert.ErrorIs(t, err, props.ErrNotFound)

		v, err := props.GetOr(ctx, p, "timeout", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, v)
	})

	t.Run("Each Request Gets Its Own Default", func(t *testing.T) {
		src := &countingSource{MapSource: props.NewMapSource("m", nil)}
		p := newProps(t, src)

		v, err := props.GetOr(ctx, p, "timeout", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, v)

		v, err = props.GetOr(ctx, p, "timeout", 10)
		require.NoError(t, err)
		assert.Equal(t, 10, v)
		assert.Equal(t, 1, src.calls)
		assert.Equal(t, int64(0), p.Stats().Failures)
	})

	t.Run("Default Is Not Converted", func(t *testing.T) {
		type Port int
		v, err := props.GetOr(ctx, p, "absent.port", Port(80))
		require.NoError(t, err)
		assert.Equal(t, Port(80), v)
	})
}

func TestCaching(t *testing.T) {
	ctx := context.Background()

	t.Run("Idempotent And Cached", func(t *testing.T) {
		src := &countingSource{MapSource: props.NewMapSource("m", map[string]string{"port": "8080"})}
		p := newProps(t, src)

		for i := 0; i < 3; i++ {
			v, err := props.Get[int](ctx, p, "port")
			require.NoError(t, err)
			assert.Equal(t, 8080, v)
		}
		assert.Equal(t, 1, src.calls)

		stats := p.Stats()
		assert.Equal(t, int64(1), stats.CacheMisses)
		assert.Equal(t, int64(2), stats.CacheHits)
	})

	t.Run("Shapes Cached Separately", func(t *testing.T) {
		src := &countingSource{MapSource: props.NewMapSource("m", map[string]string{"port": "8080"})}
		p := newProps(t, src)

		_, err := props.Get[int](ctx, p, "port")
		require.NoError(t, err)
		s, err := props.Get[string](ctx, p, "port")
		require.NoError(t, err)
		assert.Equal(t, "8080", s)
		assert.Equal(t, 2, src.calls)
	})

	t.Run("Invalidate Requeries", func(t *testing.T) {
		src := props.NewMapSource("m", map[string]string{"port": "8080"})
		p := newProps(t, src)

		assert.Equal(t, 8080, props.MustGet[int](ctx, p, "port"))
		src.Set("port", "9090")
		assert.Equal(t, 8080, props.MustGet[int](ctx, p, "port"))

		p.Invalidate("port")
		assert.Equal(t, 9090, props.MustGet[int](ctx, p, "port"))

		src.Set("port", "7070")
		p.InvalidateAll()
		assert.Equal(t, 7070, props.MustGet[int](ctx, p, "port"))
	})

	t.Run("Failures Cached", func(t *testing.T) {
		src := &countingSource{MapSource: props.NewMapSource("m", nil)}
		p := newProps(t, src)

		_, err := props.Get[string](ctx, p, "missing")
		assert.ErrorIs(t, err, props.ErrNotFound)
		src.Set("missing", "now here")
		_, err = props.Get[string](ctx, p, "missing")
		assert.ErrorIs(t, err, props.ErrNotFound)
		assert.Equal(t, 1, src.calls)
		assert.Equal(t, int64(2), p.Stats().Failures)

		p.Invalidate("missing")
		v, err := props.Get[string](ctx, p, "missing")
		require.NoError(t, err)
		assert.Equal(t, "now here", v)
	})

	t.Run("Cancellation Not Cached", func(t *testing.T) {
		src := &countingSource{MapSource: props.NewMapSource("m", map[string]string{"a": "1"})}
		p := newProps(t, src)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := props.Get[int](cctx, p, "a")
		assert.ErrorIs(t, err, context.Canceled)

		v, err := props.Get[int](ctx, p, "a")
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("Concurrent Readers", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", map[string]string{"a": "${b}", "b": "42"}))
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := props.Get[int](ctx, p, "a")
				assert.NoError(t, err)
				assert.Equal(t, 42, v)
			}()
		}
		wg.Wait()
	})
}

func TestObserverAndStats(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	p, err := props.NewBuilder().
		WithSources(
			failingSource("remote", errors.New("timeout")),
			props.NewMapSource("local", map[string]string{"a": "1"}),
		).
		WithObserver(obs).
		Build()
	require.NoError(t, err)

	_, err = props.Get[int](ctx, p, "a")
	require.NoError(t, err)
	_, err = props.Get[int](ctx, p, "a")
	require.NoError(t, err)
	_, err = props.GetOr(ctx, p, "b", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, obs.hits)
	assert.Equal(t, []string{"a", "b"}, obs.misses)
	assert.Equal(t, []string{"remote/a", "remote/b"}, obs.failures)
	assert.Equal(t, []string{"a@local", "a@cache", "b@default"}, obs.resolved)

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.SourceFailures)
	assert.Equal(t, int64(0), stats.Failures)
}

func TestRawResolveExpand(t *testing.T) {
	ctx := context.Background()
	p, err := props.NewBuilder().
		WithSources(
			props.NewMapSource("high", map[string]string{"greeting": "hello ${who}"}),
			props.NewMapSource("low", map[string]string{"who": "base64:d29ybGQ=", "name": "x"}),
		).
		WithProcessors(props.Base64Processor{}).
		Build()
	require.NoError(t, err)

	raw, source, found := p.Raw(ctx, "greeting")
	assert.True(t, found)
	assert.Equal(t, "hello ${who}", raw)
	assert.Equal(t, "high", source)

	// Placeholders substitute raw values; processors run on the final string
	v, err := p.Resolve(ctx, "who")
	require.NoError(t, err)
	assert.Equal(t, "world", v)

	s, err := p.Expand(ctx, "[${name}] ${missing:none}")
	require.NoError(t, err)
	assert.Equal(t, "[x] none", s)

	_, err = p.Resolve(ctx, "absent")
	assert.ErrorIs(t, err, props.ErrNotFound)

	assert.Equal(t, []string{"greeting", "name", "who"}, p.Keys())
	assert.Equal(t, []string{"high", "low"}, p.Sources())
}
