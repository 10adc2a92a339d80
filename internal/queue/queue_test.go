package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	var q Queue[int]
	assert.True(t, q.Empty())

	q.Push(1)
	assert.False(t, q.Empty())
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 1, q.Pop())
	assert.True(t, q.Empty())

	q.Push(2)
	q.Push(3)

	assert.Equal(t, 2, q.Pop())
	assert.Equal(t, 3, q.Pop())
	assert.True(t, q.Empty())

	assert.Panics(t, func() { q.Pop() })
}

func TestQueueInterleaved(t *testing.T) {
	var q Queue[int]
	next, expect := 0, 0
	for round := 0; round < 50; round++ {
		for i := 0; i < 7; i++ {
			q.Push(next)
			next++
		}
		for i := 0; i < 5; i++ {
			assert.Equal(t, expect, q.Pop())
			expect++
		}
	}

	assert.Equal(t, next-expect, q.Len())
	for !q.Empty() {
		assert.Equal(t, expect, q.Pop())
		expect++
	}
	assert.Equal(t, next, expect)
}
