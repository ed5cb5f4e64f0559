package ringbuf

import "strings"

// Event kinds. An event string is either a bare kind or "<kind>: <detail>".
const (
	EventEnqueued = "Enqueued"
	EventDequeued = "Dequeued"
	EventCleared  = "Cleared"
	EventResized  = "Resized"
)

// An Observer is notified synchronously after each successful state-changing operation on a
// Buffer. Read-only operations and failed operations do not notify.
type Observer interface {
	Notify(event string)
}

// ObserverFunc adapts a plain function to an Observer.
type ObserverFunc func(event string)

func (f ObserverFunc) Notify(event string) {
	f(event)
}

// EventKind returns the kind prefix of an event string.
func EventKind(event string) string {
	kind, _, _ := strings.Cut(event, ":")
	return kind
}

// notify runs after the mutation has completed, so a panicking observer cannot leave the buffer
// inconsistent; the panic belongs to the observer and is discarded.
func (b *Buffer[T]) notify(event string) {
	if b.observer == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	b.observer.Notify(event)
}
