package sigcache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SeenAfterRecord(t *testing.T) {
	c := New(DefaultWindow, DefaultMultiple)
	assert.Equal(t, 100, c.Capacity())

	assert.False(t, c.Seen("sig1"))
	c.Record("sig1")
	assert.True(t, c.Seen("sig1"))
	assert.Equal(t, 1, c.Len())
}

func TestCache_EvictsOldestFirst(t *testing.T) {
	c := New(2, 2)
	for i := 0; i < 4; i++ {
		c.Record(fmt.Sprintf("sig%d", i))
	}
	require.Equal(t, 4, c.Len())

	c.Record("sig4")
	assert.False(t, c.Seen("sig0"), "first id evicted")
	for i := 1; i <= 4; i++ {
		assert.True(t, c.Seen(fmt.Sprintf("sig%d", i)))
	}

	c.Record("sig5")
	assert.False(t, c.Seen("sig1"))
	assert.True(t, c.Seen("sig2"))
}

func TestCache_NeverExceedsCapacity(t *testing.T) {
	c := New(3, 5)
	for i := 0; i < 1000; i++ {
		c.Record(fmt.Sprintf("sig%d", i))
		assert.LessOrEqual(t, c.Len(), c.Capacity())
	}
	assert.Equal(t, 15, c.Len())
	assert.True(t, c.Seen("sig999"))
	assert.True(t, c.Seen("sig985"))
	assert.False(t, c.Seen("sig984"))
}

func TestCache_DuplicateRecordKeepsPosition(t *testing.T) {
	c := New(1, 2)
	c.Record("a")
	c.Record("b")
	c.Record("a")
	assert.Equal(t, 2, c.Len())

	c.Record("c")
	assert.False(t, c.Seen("a"))
	assert.True(t, c.Seen("b"))
	assert.True(t, c.Seen("c"))
}

func TestCache_CheckAndRecordConcurrent(t *testing.T) {
	c := New(DefaultWindow, DefaultMultiple)

	var passed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.CheckAndRecord("same") {
				passed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), passed.Load())
	assert.True(t, c.Seen("same"))
}

func TestNew_PanicsOnInvalidSizing(t *testing.T) {
	assert.Panics(t, func() { New(0, 10) })
	assert.Panics(t, func() { New(10, -1) })
}

func TestCache_ForgetAllowsRetry(t *testing.T) {
	c := New(1, 3)
	c.Record("a")
	c.Record("b")
	c.Record("c")

	c.Forget("b")
	assert.False(t, c.Seen("b"))
	assert.Equal(t, 2, c.Len())
	assert.False(t, c.CheckAndRecord("b"), "forgotten id is new again")
	assert.True(t, c.CheckAndRecord("b"))

	// Order is now a, c, b: the next insert evicts a, then c.
	c.Record("d")
	assert.False(t, c.Seen("a"))
	assert.True(t, c.Seen("c"))
	c.Record("e")
	assert.False(t, c.Seen("c"))
	assert.True(t, c.Seen("b"))
	assert.True(t, c.Seen("d"))
	assert.True(t, c.Seen("e"))
	assert.Equal(t, 3, c.Len())

	c.Forget("missing")
	assert.Equal(t, 3, c.Len())
}

func TestCache_ForgetAcrossWrap(t *testing.T) {
	c := New(1, 3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		c.Record(id)
	}
	// Ring wrapped; remembered in order c, d, e.
	c.Forget("c")
	c.Forget("e")
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Seen("d"))

	c.Record("f")
	c.Record("g")
	c.Record("h")
	assert.False(t, c.Seen("d"), "oldest survivor evicted first")
	for _, id := range []string{"f", "g", "h"} {
		assert.True(t, c.Seen(id))
	}
}
