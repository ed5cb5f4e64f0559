package observer

import (
	"fmt"

	"github.com/ttd2089/ring-queue/internal/metrics"
	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

// Counting records one count per event under the key "<buffer>:<kind>".
type Counting struct {
	count  *metrics.Count
	buffer string
}

func NewCounting(count *metrics.Count, buffer string) Counting {
	return Counting{
		count:  count,
		buffer: buffer,
	}
}

func (c Counting) Notify(event string) {
	c.count.Record(CountKey(c.buffer, ringbuf.EventKind(event)), 1)
}

// CountKey is the metrics key a Counting observer records events of kind under.
func CountKey(buffer, kind string) string {
	return fmt.Sprintf("%s:%s", buffer, kind)
}
