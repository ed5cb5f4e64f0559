package main

import (
	"fmt"
	"time"

	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

// sendWindow remembers the timestamps of the last limit sends. Once it is full, the oldest
// timestamp is the one that must be a second old before another send is allowed; recording a
// send then evicts it.
type sendWindow struct {
	sends *ringbuf.Buffer[time.Time]
}

func newSendWindow(limit int, opts ...ringbuf.Option) (sendWindow, error) {
	sends, err := ringbuf.New[time.Time](limit, opts...)
	if err != nil {
		return sendWindow{}, fmt.Errorf("create send window: %w", err)
	}
	return sendWindow{sends: sends}, nil
}

// delay returns how long to wait from now before the next send stays within the limit.
func (w sendWindow) delay(now time.Time) time.Duration {
	if !w.sends.IsFull() {
		return 0
	}
	anchor, err := w.sends.Peek()
	if err != nil {
		return 0
	}
	delay := anchor.Add(time.Second).Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}

func (w sendWindow) record(sent time.Time) {
	w.sends.Enqueue(sent)
}
