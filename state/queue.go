package state

import (
	"context"
)

// Queue is an unbounded FIFO that can be shared between goroutines. Put never blocks, so two
// routers posting to each other's mailboxes cannot deadlock.
//
// Adapted from "Rethinking Classical Concurrency Patterns" by Bryan C. Mills.
type Queue[T any] struct {
	items chan []T  // contains 0 or 1 non-empty slices
	empty chan bool // contains true if items is empty
}

func NewQueue[T any]() *Queue[T] {
	items := make(chan []T, 1)
	empty := make(chan bool, 1)
	empty <- true
	return &Queue[T]{items, empty}
}

func (q *Queue[T]) Put(item T) {
	var items []T
	select {
	case items = <-q.items:
	case <-q.empty:
	}
	items = append(items, item)
	q.items <- items
}

// Get blocks until an item is available or ctx is done.
func (q *Queue[T]) Get(ctx context.Context) (T, bool) {
	var items []T
	select {
	case <-ctx.Done():
		var zero T
		return zero, false
	case items = <-q.items:
	}

	item := items[0]
	items = items[1:]
	if len(items) == 0 {
		q.empty <- true
	} else {
		q.items <- items
	}

	return item, true
}
