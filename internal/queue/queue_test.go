package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushShiftFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	require.Equal(t, 5, q.Len())
	for i := 0; i < 5; i++ {
		v, ok := q.Shift()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := q.Shift()
	require.False(t, ok)
}

func TestPushWrapsAroundRingAfterPartialDrain(t *testing.T) {
	q := New[int]()
	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	for i := 0; i < 8; i++ {
		v, _ := q.Shift()
		require.Equal(t, i, v)
	}
	// head now sits at slot 8 of the 16-slot backing array; pushing ten more
	// wraps the tail around to the start of the array, and FIFO order must
	// hold across the wrap.
	for i := 10; i < 20; i++ {
		q.Push(i)
	}
	for i := 8; i < 20; i++ {
		v, ok := q.Shift()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New[string]()
	q.Push("a")
	v, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.Equal(t, 1, q.Len())
}

func TestDrainReturnsAllAndResetsToEmpty(t *testing.T) {
	q := New[int]()
	for i := 0; i < 4; i++ {
		q.Push(i)
	}
	out := q.Drain()
	require.Equal(t, []int{0, 1, 2, 3}, out)
	require.Equal(t, 0, q.Len())
	_, ok := q.Shift()
	require.False(t, ok)
}

func TestDrainOnEmptyQueueReturnsNil(t *testing.T) {
	q := New[int]()
	require.Nil(t, q.Drain())
}
