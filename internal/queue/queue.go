// Package queue holds rows waiting for a batched database write.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// PushFront puts items back at the head of the queue, ahead of anything
// pushed since they were taken. Used to retry a failed batch write.
func (q *Queue[T]) PushFront(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
}

// PopN removes and returns up to n items from the head of the queue.
func (q *Queue[T]) PopN(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	n = min(n, len(q.items))
	if n <= 0 {
		return nil
	}
	batch := make([]T, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	if len(q.items) == 0 {
		q.items = q.items[:0:0]
	}
	return batch
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
