package observer

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttd2089/ring-queue/internal/metrics"
	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

func TestCollector(t *testing.T) {
	c := &Collector{}
	b, err := ringbuf.New[int](2, ringbuf.WithObserver(c))
	require.NoError(t, err)

	b.Enqueue(1)
	b.Enqueue(2)
	b.Enqueue(3)
	_, _ = b.Peek()
	b.Clear()

	assert.Equal(t, []string{"Enqueued: 1", "Enqueued: 2", "Enqueued: 3", "Cleared"}, c.Events())

	events := c.Events()
	events[0] = "changed"
	assert.Equal(t, "Enqueued: 1", c.Events()[0])

	c.Reset()
	assert.Empty(t, c.Events())
}

func TestLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	b, err := ringbuf.New[string](3, ringbuf.WithObserver(NewLog(logger, "recent")))
	require.NoError(t, err)
	b.Enqueue("a")
	require.NoError(t, b.Resize(4))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)

	assert.Equal(t, log.DebugLevel, entries[0].Level)
	assert.Equal(t, "Enqueued: a", entries[0].Message)
	assert.Equal(t, "recent", entries[0].Data["buffer"])
	assert.Equal(t, ringbuf.EventEnqueued, entries[0].Data["kind"])

	assert.Equal(t, "Resized: 4", entries[1].Message)
	assert.Equal(t, ringbuf.EventResized, entries[1].Data["kind"])
}

func TestCounting(t *testing.T) {
	count := metrics.NewCount(time.Minute)
	b, err := ringbuf.New[int](2, ringbuf.WithObserver(NewCounting(count, "recent")))
	require.NoError(t, err)

	b.Enqueue(1)
	b.Enqueue(2)
	b.Enqueue(3)
	_, err = b.Dequeue()
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"recent:Enqueued": 3,
		"recent:Dequeued": 1,
	}, count.Totals())
}

type fakeProducer struct {
	messages []*kafka.Message
	err      error
}

func (p *fakeProducer) Produce(msg *kafka.Message, _ chan kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func TestKafka(t *testing.T) {

	t.Run("publishes events", func(t *testing.T) {
		producer := &fakeProducer{}
		logger, _ := test.NewNullLogger()
		sink := NewKafka(producer, "ring-events", "recent", logger)
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		sink.now = func() time.Time { return at }

		b, err := ringbuf.New[int](2, ringbuf.WithObserver(sink))
		require.NoError(t, err)
		b.Enqueue(7)

		require.Len(t, producer.messages, 1)
		msg := producer.messages[0]
		assert.Equal(t, "ring-events", *msg.TopicPartition.Topic)
		assert.Equal(t, kafka.PartitionAny, msg.TopicPartition.Partition)
		assert.Equal(t, []byte("recent"), msg.Key)

		event := Event{}
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		assert.Equal(t, Event{
			Buffer: "recent",
			Kind:   ringbuf.EventEnqueued,
			Event:  "Enqueued: 7",
			Time:   at,
		}, event)
	})

	t.Run("logs produce failures without affecting the buffer", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("queue full")}
		logger, hook := test.NewNullLogger()
		sink := NewKafka(producer, "ring-events", "recent", logger)

		b, err := ringbuf.New[int](2, ringbuf.WithObserver(sink))
		require.NoError(t, err)
		b.Enqueue(1)

		assert.Equal(t, []int{1}, b.Snapshot())
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
		assert.Equal(t, "ring-events", hook.LastEntry().Data["topic"])
	})
}

func TestMulti(t *testing.T) {
	first := &Collector{}
	second := &Collector{}
	o := Multi(first, nil, second)

	b, err := ringbuf.New[int](1, ringbuf.WithObserver(o))
	require.NoError(t, err)
	b.Enqueue(1)
	b.Clear()

	expected := []string{"Enqueued: 1", "Cleared"}
	assert.Equal(t, expected, first.Events())
	assert.Equal(t, expected, second.Events())
}
