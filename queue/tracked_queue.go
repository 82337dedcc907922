// Package queue holds the FIFO used to stage sequence items.
package queue

// UnlimitedCapacity disables the length bound.
const UnlimitedCapacity = -1

// Hooks observe items entering and leaving a queue. depth is the length after
// the operation.
type Hooks[T any] struct {
	OnEnqueue func(item T, depth int)
	OnDequeue func(item T, depth int)
}

// TrackedQueue is a named FIFO with an optional length bound.
type TrackedQueue[T any] struct {
	name  string
	limit int
	head  int
	buf   []T
	hooks Hooks[T]
}

func NewTrackedQueue[T any](name string, capacity int, hooks Hooks[T]) *TrackedQueue[T] {
	return &TrackedQueue[T]{name: name, limit: capacity, hooks: hooks}
}

func (q *TrackedQueue[T]) Name() string {
	if q == nil {
		return ""
	}
	return q.name
}

func (q *TrackedQueue[T]) Len() int {
	if q == nil {
		return 0
	}
	return len(q.buf) - q.head
}

// Enqueue appends item and reports false when the queue is full.
func (q *TrackedQueue[T]) Enqueue(item T) bool {
	if q == nil || (q.limit >= 0 && q.Len() >= q.limit) {
		return false
	}
	q.buf = append(q.buf, item)
	if fn := q.hooks.OnEnqueue; fn != nil {
		fn(item, q.Len())
	}
	return true
}

// PopFront removes the oldest item.
func (q *TrackedQueue[T]) PopFront() (T, bool) {
	var zero T
	if q.Len() == 0 {
		return zero, false
	}
	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head++
	if q.head == len(q.buf) {
		q.buf, q.head = q.buf[:0], 0
	}
	if fn := q.hooks.OnDequeue; fn != nil {
		fn(item, q.Len())
	}
	return item, true
}
