package observer

import (
	log "github.com/sirupsen/logrus"

	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

// Log forwards events to a logrus logger at debug level, tagged with the buffer name and event
// kind.
type Log struct {
	entry *log.Entry
}

func NewLog(logger log.FieldLogger, buffer string) Log {
	return Log{
		entry: logger.WithField("buffer", buffer),
	}
}

func (l Log) Notify(event string) {
	l.entry.WithFields(log.Fields{
		"kind": ringbuf.EventKind(event),
	}).Debug(event)
}
