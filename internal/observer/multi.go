package observer

import "github.com/ttd2089/ring-queue/internal/ringbuf"

// Multi notifies each non-nil observer in order.
func Multi(observers ...ringbuf.Observer) ringbuf.Observer {
	targets := make([]ringbuf.Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			targets = append(targets, o)
		}
	}
	return multi(targets)
}

type multi []ringbuf.Observer

func (m multi) Notify(event string) {
	for _, o := range m {
		o.Notify(event)
	}
}
