// FILE: lixenwraith/props/source_test.go
package props_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/props"
)

// countingSource wraps a map and counts lookups
type countingSource struct {
	*props.MapSource
	calls int
}

func (c *countingSource) Lookup(ctx context.Context, name string) (string, bool, error) {
	c.calls++
	return c.MapSource.Lookup(ctx, name)
}

func failingSource(name string, err error) props.Source {
	return props.SourceFunc{
		SourceName: name,
		Fn: func(context.Context, string) (string, bool, error) {
			return "", false, err
		},
	}
}

func TestResolverChain(t *testing.T) {
	ctx := context.Background()

	t.Run("First Hit Wins", func(t *testing.T) {
		high := props.NewMapSource("high", map[string]string{"a": "high-a"})
		low := props.NewMapSource("low", map[string]string{"a": "low-a", "b": "low-b"})
		chain, err := props.NewResolverChain(nil, high, low)
		require.NoError(t, err)

		v, src, found := chain.Resolve(ctx, "a")
		assert.True(t, found)
		assert.Equal(t, "high-a", v)
		assert.Equal(t, "high", src)

		v, src, found = chain.Resolve(ctx, "b")
		assert.True(t, found)
		assert.Equal(t, "low-b", v)
		assert.Equal(t, "low", src)

		_, _, found = chain.Resolve(ctx, "c")
		assert.False(t, found)
		assert.Equal(t, []string{"high", "low"}, chain.Sources())
	})

	t.Run("Empty Value Is Present", func(t *testing.T) {
		high := props.NewMapSource("high", map[string]string{"a": ""})
		low := props.NewMapSource("low", map[string]string{"a": "low"})
		chain, err := props.NewResolverChain(nil, high, low)
		require.NoError(t, err)

		v, src, found := chain.Resolve(ctx, "a")
		assert.True(t, found)
		assert.Equal(t, "", v)
		assert.Equal(t, "high", src)
	})

	t.Run("Backend Failure Is Skipped", func(t *testing.T) {
		low := &countingSource{MapSource: props.NewMapSource("low", map[string]string{"a": "low-a"})}
		chain, err := props.NewResolverChain(nil, failingSource("broken", errors.New("connection reset")), low)
		require.NoError(t, err)

		v, src, found := chain.Resolve(ctx, "a")
		assert.True(t, found)
		assert.Equal(t, "low-a", v)
		assert.Equal(t, "low", src)
		assert.Equal(t, 1, low.calls)
	})

	t.Run("All Failing Is Absent", func(t *testing.T) {
		chain, err := props.NewResolverChain(nil,
			failingSource("one", errors.New("down")),
			failingSource("two", errors.New("down")))
		require.NoError(t, err)

		_, _, found := chain.Resolve(ctx, "a")
		assert.False(t, found)
	})

	t.Run("Later Sources Not Queried After Hit", func(t *testing.T) {
		high := props.NewMapSource("high", map[string]string{"a": "1"})
		low := &countingSource{MapSource: props.NewMapSource("low", nil)}
		chain, err := props.NewResolverChain(nil, high, low)
		require.NoError(t, err)

		chain.Resolve(ctx, "a")
		assert.Equal(t, 0, low.calls)
	})

	t.Run("Cancelled Context Stops", func(t *testing.T) {
		src := &countingSource{MapSource: props.NewMapSource("m", map[string]string{"a": "1"})}
		chain, err := props.NewResolverChain(nil, src)
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _, found := chain.Resolve(cctx, "a")
		assert.False(t, found)
		assert.Equal(t, 0, src.calls)
	})

	t.Run("Construction Errors", func(t *testing.T) {
		_, err := props.NewResolverChain(nil)
		assert.ErrorIs(t, err, props.ErrNoSources)

		_, err = props.NewResolverChain(nil, props.NewMapSource("m", nil), nil)
		assert.Error(t, err)
	})
}

func TestMapSource(t *testing.T) {
	ctx := context.Background()
	values := map[string]string{"a": "1"}
	m := props.NewMapSource("mem", values)

	// Construction copies the input
	values["b"] = "2"
	_, found, _ := m.Lookup(ctx, "b")
	assert.False(t, found)

	m.Set("c", "3")
	v, found, err := m.Lookup(ctx, "c")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "3", v)
	assert.Equal(t, []string{"a", "c"}, m.Keys())

	m.Delete("a")
	_, found, _ = m.Lookup(ctx, "a")
	assert.False(t, found)
	assert.Equal(t, "mem", m.Name())
}

func TestArgsSource(t *testing.T) {
	ctx := context.Background()

	t.Run("Flag Forms", func(t *testing.T) {
		src, err := props.NewArgsSource([]string{
			"serve",
			"--server.port=9090",
			"--server.host", "0.0.0.0",
			"--debug",
			"--log-level", "info",
			"--",
			"--ignored=true",
		})
		require.NoError(t, err)

		tests := map[string]string{
			"server.port": "9090",
			"server.host": "0.0.0.0",
			"debug":       "true",
			"log-level":   "info",
		}
		for name, want := range tests {
			v, found, err := src.Lookup(ctx, name)
			require.NoError(t, err)
			assert.True(t, found, name)
			assert.Equal(t, want, v, name)
		}
		_, found, _ := src.Lookup(ctx, "ignored")
		assert.False(t, found)
		assert.Equal(t, []string{"debug", "log-level", "server.host", "server.port"}, src.Keys())
	})

	t.Run("Later Flag Wins", func(t *testing.T) {
		src, err := props.NewArgsSource([]string{"--a=1", "--a=2"})
		require.NoError(t, err)
		v, _, _ := src.Lookup(ctx, "a")
		assert.Equal(t, "2", v)
	})

	t.Run("Invalid Key", func(t *testing.T) {
		_, err := props.NewArgsSource([]string{"--bad..key=1"})
		assert.Error(t, err)
	})
}
