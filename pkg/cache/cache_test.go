package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goformula/pkg/evaluator"
)

func formula(src string) *evaluator.Formula {
	return evaluator.NewFormula(evaluator.NewLiteral(src, 0), src)
}

func TestNew(t *testing.T) {
	t.Parallel()

	c := New(10)
	assert.Zero(t, c.Len())
	assert.Equal(t, 10, c.Capacity())
	assert.Equal(t, 256, New(0).Capacity())
}

func TestSetGet(t *testing.T) {
	t.Parallel()

	c := New(4)
	f := formula("=1")
	c.Set("=1", f)
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get("=1")
	require.True(t, ok)
	assert.Same(t, f, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLRUEviction(t *testing.T) {
	t.Parallel()

	c := New(3)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, formula(k))
	}
	// Touch "a" so that "b" becomes the least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", formula("d"))
	assert.Equal(t, 3, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok, `expected "b" to be evicted`)
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
}

func TestSetReplaces(t *testing.T) {
	t.Parallel()

	c := New(2)
	c.Set("k", formula("old"))
	replacement := formula("new")
	c.Set("k", replacement)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, 1, c.Len())
}

func TestInvalidateAndClear(t *testing.T) {
	t.Parallel()

	c := New(4)
	c.Set("a", formula("a"))
	c.Set("b", formula("b"))

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestGetOrCompile(t *testing.T) {
	t.Parallel()

	c := New(4)
	calls := 0
	compile := func() (*evaluator.Formula, error) {
		calls++
		return formula("=x"), nil
	}

	first, err := c.GetOrCompile("=x", compile)
	require.NoError(t, err)
	second, err := c.GetOrCompile("=x", compile)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, err = c.GetOrCompile("=bad", func() (*evaluator.Formula, error) {
			calls++
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 3, calls, "errors are not cached")
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New(16)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("=%d", i%20)
			_, _ = c.GetOrCompile(key, func() (*evaluator.Formula, error) {
				return formula(key), nil
			})
			c.Get(key)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
