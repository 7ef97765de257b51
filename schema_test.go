// FILE: lixenwraith/props/schema_test.go
package props_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/props"
)

func TestSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("Typed Accessors", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", map[string]string{
			"db.host":     "db.internal",
			"db.port":     "5432",
			"db.timeout":  "3s",
			"db.replicas": "r1,r2",
		}))

		s := props.NewSchema("db")
		host := props.Define[string](s, "host")
		port := props.Define[int](s, "port")
		timeout := props.Define[time.Duration](s, "timeout")
		replicas := props.Define[[]string](s, "replicas")
		pool := props.Define[int](s, "pool", props.WithDefault(10))

		view, err := s.Bind(ctx, p)
		require.NoError(t, err)

		assert.Equal(t, "db.host", host.Name())
		assert.Equal(t, "db.internal", host.MustGet(ctx, view))
		assert.Equal(t, 5432, port.MustGet(ctx, view))
		assert.Equal(t, 3*time.Second, timeout.MustGet(ctx, view))
		assert.Equal(t, []string{"r1", "r2"}, replicas.MustGet(ctx, view))
		assert.Equal(t, 10, pool.MustGet(ctx, view))
		assert.Equal(t, []string{"db.host", "db.port", "db.timeout", "db.replicas", "db.pool"}, s.Names())
		assert.Same(t, p, view.Properties())
	})

	t.Run("Bind Joins Failures", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", map[string]string{"port": "not-a-port"}))

		s := props.NewSchema("")
		port := props.Define[int](s, "port")
		props.Define[string](s, "host")
		name := props.Define[string](s, "name", props.WithDefault("svc"))

		view, err := s.Bind(ctx, p)
		require.Error(t, err)
		assert.ErrorIs(t, err, props.ErrConversion)
		assert.ErrorIs(t, err, props.ErrNotFound)

		// The view still serves what resolved
		require.NotNil(t, view)
		assert.Equal(t, "svc", name.MustGet(ctx, view))
		_, err = port.Get(ctx, view)
		assert.ErrorIs(t, err, props.ErrConversion)
	})

	t.Run("Definition Errors", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", map[string]string{"a": "1"}))

		s := props.NewSchema("")
		props.Define[int](s, "a")
		props.Define[string](s, "a")
		props.Define[map[string]int](s, "b")

		_, err := s.Bind(ctx, p)
		assert.ErrorContains(t, err, "duplicate property")
		assert.ErrorIs(t, err, props.ErrInvalidDescriptor)

		req, ok := s.Request("a")
		require.True(t, ok)
		assert.Equal(t, "int", req.Shape.String())
	})

	t.Run("Shape Override", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", map[string]string{"tags": "a;b"}))
		s := props.NewSchema("")
		tags := props.Define[string](s, "tags", props.WithShape(props.TypeOf[string]()))
		view, err := s.Bind(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "a;b", tags.MustGet(ctx, view))
	})

	t.Run("Undefined Name", func(t *testing.T) {
		p := newProps(t, props.NewMapSource("m", nil))
		view, err := props.NewSchema("").Bind(ctx, p)
		require.NoError(t, err)
		_, err = view.Get(ctx, "nope")
		assert.ErrorIs(t, err, props.ErrNotFound)
	})

	t.Run("Enum Accessor", func(t *testing.T) {
		p, err := props.NewBuilder().
			WithSources(props.NewMapSource("m", map[string]string{"log.level": "WARN"})).
			WithConverters(props.EnumOf(LevelDebug, LevelInfo, LevelWarn)).
			Build()
		require.NoError(t, err)

		s := props.NewSchema("log")
		level := props.Define[Level](s, "level", props.WithDefault(LevelInfo))
		view, err := s.Bind(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, LevelWarn, level.MustGet(ctx, view))
	})
}
