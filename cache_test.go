// FILE: lixenwraith/props/cache_test.go
package props_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/props"
)

func TestCache(t *testing.T) {
	intShape := props.TypeOf[int]()
	strShape := props.TypeOf[string]()

	t.Run("Compute Once", func(t *testing.T) {
		c := props.NewCache()
		calls := 0
		compute := func() (any, error) {
			calls++
			return 42, nil
		}

		v, hit, err := c.GetOrCompute("a", intShape, compute)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, 42, v)

		v, hit, err = c.GetOrCompute("a", intShape, compute)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, 42, v)
		assert.Equal(t, 1, calls)
	})

	t.Run("Keyed By Shape", func(t *testing.T) {
		c := props.NewCache()
		c.GetOrCompute("a", intShape, func() (any, error) { return 1, nil })
		_, hit, _ := c.GetOrCompute("a", strShape, func() (any, error) { return "1", nil })
		assert.False(t, hit)
		assert.Equal(t, 2, c.Len())

		// Equal descriptors built differently share an entry
		_, found, _ := c.Lookup("a", props.ListOf(intShape))
		assert.False(t, found)
		c.GetOrCompute("a", props.TypeOf[[]int](), func() (any, error) { return []int{1}, nil })
		_, found, _ = c.Lookup("a", props.ListOf(intShape))
		assert.True(t, found)
	})

	t.Run("Failures Are Stored", func(t *testing.T) {
		c := props.NewCache()
		boom := errors.New("boom")
		calls := 0
		compute := func() (any, error) {
			calls++
			return nil, boom
		}

		_, _, err := c.GetOrCompute("a", intShape, compute)
		assert.ErrorIs(t, err, boom)
		_, hit, err := c.GetOrCompute("a", intShape, compute)
		assert.True(t, hit)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("Cancellation Is Not Stored", func(t *testing.T) {
		c := props.NewCache()
		for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
			_, _, err := c.GetOrCompute("a", intShape, func() (any, error) {
				return nil, fmt.Errorf("lookup: %w", ctxErr)
			})
			assert.ErrorIs(t, err, ctxErr)
		}
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Invalidate Removes All Shapes", func(t *testing.T) {
		c := props.NewCache()
		c.GetOrCompute("a", intShape, func() (any, error) { return 1, nil })
		c.GetOrCompute("a", strShape, func() (any, error) { return "1", nil })
		c.GetOrCompute("b", intShape, func() (any, error) { return 2, nil })

		assert.Equal(t, 2, c.Invalidate("a"))
		assert.Equal(t, 0, c.Invalidate("a"))
		_, found, _ := c.Lookup("b", intShape)
		assert.True(t, found)

		assert.Equal(t, 1, c.InvalidateAll())
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Concurrent Access", func(t *testing.T) {
		c := props.NewCache()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name := fmt.Sprintf("k%d", i%5)
				v, _, err := c.GetOrCompute(name, intShape, func() (any, error) { return i % 5, nil })
				assert.NoError(t, err)
				assert.Equal(t, i%5, v)
				if i%10 == 0 {
					c.Invalidate(name)
				}
			}(i)
		}
		wg.Wait()
		assert.LessOrEqual(t, c.Len(), 5)
	})
}
