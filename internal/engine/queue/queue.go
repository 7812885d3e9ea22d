package queue

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrNotQueued is returned by WaitTurn when the item is no longer in the queue.
var ErrNotQueued = errors.New("item not queued")

type entry[T comparable] struct {
	item     T
	priority float64
}

// Queue is a small priority queue of work tickets. The highest priority is served
// first; the order among equal priorities is unspecified.
//
// Operations on missing items are no-ops. All methods are safe for concurrent use.
type Queue[T comparable] struct {
	mu      sync.Mutex
	entries []entry[T]
	changed chan struct{}
}

// New creates an empty queue.
func New[T comparable]() *Queue[T] {
	return &Queue[T]{changed: make(chan struct{})}
}

// Size returns the number of queued items.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Add queues item with the given priority. Adding an item that is already queued
// only updates its priority.
func (q *Queue[T]) Add(item T, priority float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.indexOf(item); i >= 0 {
		q.entries[i].priority = priority
	} else {
		q.entries = append(q.entries, entry[T]{item: item, priority: priority})
	}
	q.sortLocked()
	q.notifyLocked()
}

// Remove drops item from the queue.
func (q *Queue[T]) Remove(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(item)
	if i < 0 {
		return
	}
	q.entries = slices.Delete(q.entries, i, i+1)
	q.notifyLocked()
}

// ChangePriority moves item to a new priority.
func (q *Queue[T]) ChangePriority(item T, priority float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(item)
	if i < 0 || q.entries[i].priority == priority {
		return
	}
	q.entries[i].priority = priority
	q.sortLocked()
	q.notifyLocked()
}

// Peek returns the highest-priority item.
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		var zero T
		return zero, false
	}
	return q.entries[0].item, true
}

// Items returns a snapshot of the queued items, highest priority first.
func (q *Queue[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]T, len(q.entries))
	for i, e := range q.entries {
		items[i] = e.item
	}
	return items
}

// Contains reports whether item is queued.
func (q *Queue[T]) Contains(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexOf(item) >= 0
}

// Clear empties the queue.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = nil
	q.notifyLocked()
}

// WaitTurn blocks until item is the highest-priority entry.
// It wakes on every queue change instead of polling.
func (q *Queue[T]) WaitTurn(ctx context.Context, item T) error {
	for {
		q.mu.Lock()
		i := q.indexOf(item)
		changed := q.changed
		q.mu.Unlock()

		switch {
		case i < 0:
			return ErrNotQueued
		case i == 0:
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *Queue[T]) indexOf(item T) int {
	return slices.IndexFunc(q.entries, func(e entry[T]) bool { return e.item == item })
}

func (q *Queue[T]) sortLocked() {
	slices.SortStableFunc(q.entries, func(a, b entry[T]) int {
		switch {
		case a.priority > b.priority:
			return -1
		case a.priority < b.priority:
			return 1
		default:
			return 0
		}
	})
}

// notifyLocked wakes every WaitTurn caller by closing the current change channel.
func (q *Queue[T]) notifyLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
