// Package ringbuf implements a fixed-capacity circular queue that overwrites its oldest element
// when a new one is enqueued into a full buffer.
//
// A Buffer is not safe for concurrent use. Callers sharing one across goroutines must serialize
// access themselves.
package ringbuf

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCapacity = errors.New("invalid capacity")
	ErrEmpty           = errors.New("buffer is empty")
	ErrFull            = errors.New("buffer is full")
	ErrOutOfRange      = errors.New("requested index was out of range")
)

// A Buffer is a circular queue of at most Cap() elements ordered oldest to newest.
type Buffer[T any] struct {
	data     []T
	head     int
	count    int
	observer Observer
}

// An Option configures a Buffer at construction.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver registers an Observer to be notified after each state-changing operation. A nil
// observer is ignored.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// New creates an empty buffer holding up to capacity elements. The capacity must be positive.
func New[T any](capacity int, opts ...Option) (*Buffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("create buffer with capacity %d: %w", capacity, ErrInvalidCapacity)
	}
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Buffer[T]{
		data:     make([]T, capacity),
		observer: o.observer,
	}, nil
}

func (b *Buffer[T]) Len() int {
	return b.count
}

func (b *Buffer[T]) Cap() int {
	return len(b.data)
}

func (b *Buffer[T]) IsEmpty() bool {
	return b.count == 0
}

func (b *Buffer[T]) IsFull() bool {
	return b.count == len(b.data)
}

// Enqueue appends x as the newest element. If the buffer is full the oldest element is evicted
// first; the eviction does not produce its own event.
func (b *Buffer[T]) Enqueue(x T) {
	if b.IsFull() {
		b.data[b.head] = zero[T]()
		b.head = b.wrap(b.head + 1)
		b.count--
	}
	b.push(x)
}

// TryEnqueue appends x only if there is room for it, returning ErrFull otherwise.
func (b *Buffer[T]) TryEnqueue(x T) error {
	if b.IsFull() {
		return fmt.Errorf("enqueue %v: %w", x, ErrFull)
	}
	b.push(x)
	return nil
}

func (b *Buffer[T]) push(x T) {
	b.data[b.wrap(b.head+b.count)] = x
	b.count++
	b.notify(fmt.Sprintf("%s: %v", EventEnqueued, x))
}

// Dequeue removes and returns the oldest element.
func (b *Buffer[T]) Dequeue() (T, error) {
	if b.IsEmpty() {
		return zero[T](), fmt.Errorf("dequeue: %w", ErrEmpty)
	}
	x := b.data[b.head]
	b.data[b.head] = zero[T]()
	b.head = b.wrap(b.head + 1)
	b.count--
	if b.count == 0 {
		b.head = 0
	}
	b.notify(fmt.Sprintf("%s: %v", EventDequeued, x))
	return x, nil
}

// Peek returns the oldest element without removing it.
func (b *Buffer[T]) Peek() (T, error) {
	if b.IsEmpty() {
		return zero[T](), fmt.Errorf("peek: %w", ErrEmpty)
	}
	return b.data[b.head], nil
}

// Get returns the element i positions after the oldest one.
func (b *Buffer[T]) Get(i int) (T, error) {
	if i < 0 || i >= b.count {
		return zero[T](), fmt.Errorf("get %d of %d: %w", i, b.count, ErrOutOfRange)
	}
	return b.data[b.wrap(b.head+i)], nil
}

// Snapshot returns a copy of the elements, oldest first. The returned slice does not share
// memory with the buffer.
func (b *Buffer[T]) Snapshot() []T {
	out := make([]T, b.count)
	n := copy(out, b.data[b.head:min(b.head+b.count, len(b.data))])
	copy(out[n:], b.data[:b.count-n])
	return out
}

// Clear empties the buffer. The capacity and backing storage are kept.
func (b *Buffer[T]) Clear() {
	b.head = 0
	b.count = 0
	b.notify(EventCleared)
}

// Resize changes the capacity to capacity, which must be positive and no smaller than Len().
// Element order is preserved.
func (b *Buffer[T]) Resize(capacity int) error {
	if capacity <= 0 || capacity < b.count {
		return fmt.Errorf("resize to %d with %d elements: %w", capacity, b.count, ErrInvalidCapacity)
	}
	data := make([]T, capacity)
	n := copy(data, b.data[b.head:min(b.head+b.count, len(b.data))])
	copy(data[n:b.count], b.data[:b.count-n])
	b.data = data
	b.head = 0
	b.notify(fmt.Sprintf("%s: %d", EventResized, capacity))
	return nil
}

// String renders the elements oldest first, e.g. "[1 2 3]".
func (b *Buffer[T]) String() string {
	sb := strings.Builder{}
	sb.WriteString("[")
	for i, x := range b.Snapshot() {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprint(&sb, x)
	}
	sb.WriteString("]")
	return sb.String()
}

func (b *Buffer[T]) wrap(i int) int {
	return i % len(b.data)
}

func zero[T any]() T {
	var t T
	return t
}
