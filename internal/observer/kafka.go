package observer

import (
	"encoding/json"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"

	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

// Producer is the part of *kafka.Producer used by Kafka.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

// An Event is the JSON payload Kafka publishes for each buffer event.
type Event struct {
	Buffer string    `json:"buffer"`
	Kind   string    `json:"kind"`
	Event  string    `json:"event"`
	Time   time.Time `json:"time"`
}

// Kafka publishes buffer events to a topic, keyed by buffer name. Produce is asynchronous;
// delivery reports arrive on the producer's Events channel.
type Kafka struct {
	producer Producer
	topic    string
	buffer   string
	logger   log.FieldLogger
	now      func() time.Time
}

func NewKafka(producer Producer, topic string, buffer string, logger log.FieldLogger) *Kafka {
	return &Kafka{
		producer: producer,
		topic:    topic,
		buffer:   buffer,
		logger:   logger,
		now:      time.Now,
	}
}

func (k *Kafka) Notify(event string) {
	value, err := json.Marshal(Event{
		Buffer: k.buffer,
		Kind:   ringbuf.EventKind(event),
		Event:  event,
		Time:   k.now(),
	})
	if err != nil {
		k.logger.WithFields(log.Fields{"buffer": k.buffer, "error": err}).Error("Failed to encode event")
		return
	}

	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &k.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(k.buffer),
		Value: value,
	}, nil)
	if err != nil {
		k.logger.WithFields(log.Fields{"buffer": k.buffer, "topic": k.topic, "error": err}).Error("Failed to produce event")
	}
}
