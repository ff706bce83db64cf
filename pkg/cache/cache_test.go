package cache_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goxq/pkg/cache"
	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/types"
)

func compiled(t *testing.T, n int64) *expr.Query {
	t.Helper()
	q, err := expr.Compile(expr.NewValue(-1, types.Value{types.Int(n)}))
	require.NoError(t, err)
	return q
}

func TestNew(t *testing.T) {
	c := cache.New(10)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 10, c.Capacity())
	assert.Equal(t, cache.DefaultCapacity, cache.New(0).Capacity())
}

func TestSetGet(t *testing.T) {
	c := cache.New(4)
	q := compiled(t, 1)
	c.Set("one", q)
	got, ok := c.Get("one")
	require.True(t, ok)
	assert.Same(t, q, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestEviction(t *testing.T) {
	c := cache.New(3)
	for i, k := range []string{"a", "b", "c"} {
		c.Set(k, compiled(t, int64(i)))
	}
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("d", compiled(t, 3))

	assert.Equal(t, 3, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestInvalidateClear(t *testing.T) {
	c := cache.New(4)
	c.Set("a", compiled(t, 1))
	c.Set("b", compiled(t, 2))
	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestGetOrCompile(t *testing.T) {
	c := cache.New(4)
	calls := 0
	compile := func() (*expr.Query, error) {
		calls++
		return compiled(t, 7), nil
	}
	q1, err := c.GetOrCompile("k", compile)
	require.NoError(t, err)
	q2, err := c.GetOrCompile("k", compile)
	require.NoError(t, err)
	assert.Same(t, q1, q2)
	assert.Equal(t, 1, calls)

	_, err = c.GetOrCompile("bad", func() (*expr.Query, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	_, ok := c.Get("bad")
	assert.False(t, ok, "errors are not cached")
}

func TestConcurrentAccess(t *testing.T) {
	c := cache.New(8)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_, err := c.GetOrCompile(key, func() (*expr.Query, error) {
				return expr.Compile(expr.NewValue(-1, types.Value{types.Int(int64(i))}))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, c.Len())
}
