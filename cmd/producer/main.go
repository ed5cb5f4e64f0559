package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"

	"github.com/ttd2089/ring-queue/internal/config"
	"github.com/ttd2089/ring-queue/internal/logging"
	"github.com/ttd2089/ring-queue/internal/messages"
	"github.com/ttd2089/ring-queue/internal/observer"
	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

type appConfig struct {
	BootstrapServers string        `config_key:"kafka.producer.bootstrap-servers" required:"true"`
	ProduceTopic     string        `config_key:"kafka.producer.topic" default:"messages"`
	MaxRPS           int           `config_key:"producer.max-rps" default:"1000"`
	FlushTimeout     time.Duration `config_key:"producer.flush-timeout" default:"5s"`
}

func main() {
	if err := run(); err != nil {
		log.WithFields(log.Fields{"error": err}).Error("fatal")
		os.Exit(1)
	}
}

func run() error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logCfg, err := config.Parse[logging.Config](config.EnvMap{})
	if err != nil {
		return fmt.Errorf("parse log config: %w", err)
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	cfg, err := config.Parse[appConfig](config.EnvMap{})
	if err != nil {
		return fmt.Errorf("parse app config: %w", err)
	}

	sends, err := newSendWindow(cfg.MaxRPS, ringbuf.WithObserver(observer.NewLog(logger, "sends")))
	if err != nil {
		return err
	}

	producer, err := buildProducer(cfg)
	if err != nil {
		return fmt.Errorf("build Kafka producer: %w", err)
	}

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer producer.Close()
		defer producer.Flush(int(cfg.FlushTimeout.Milliseconds()))

		customerIDs := []string{
			"faa108f9-0815-4035-89c4-403b4f2f7948",
			"e62358f4-47bb-4a45-9db3-a1c5ad6cdab2",
			"139b70a3-60e8-47a0-9b7d-d8a369d18417",
			"432556b3-0a3b-4dbb-83fc-187115228f67",
		}
		types := []string{
			"foo",
			"bar",
			"baz",
		}

		for !isCancelled(ctx) {

			// Publish at ~90% of the rate limit so the limit is hit, but unevenly rather than in
			// predictable batches.
			naturalDelay := (rand.Int63n(time.Second.Nanoseconds()/int64(cfg.MaxRPS)) * 9) / 10
			<-time.After(time.Duration(naturalDelay))

			msg := messages.Message{
				CustomerID: customerIDs[rand.Int()%len(customerIDs)],
				Type:       types[rand.Int()%len(types)],
			}
			msg.Body = fmt.Sprintf("[%v]: %q message for customer %q", time.Now(), msg.Type, msg.CustomerID)

			msgValue, err := json.Marshal(msg)
			if err != nil {
				logger.WithFields(log.Fields{"error": err}).Error("Failed to encode message")
				continue
			}

			timestamp := time.Now()
			if delay := sends.delay(timestamp); delay > 0 {
				logger.WithFields(log.Fields{"delay": delay}).Info("Delaying for rate limit")
				<-time.After(delay)
				timestamp = time.Now()
			}

			err = producer.Produce(&kafka.Message{
				TopicPartition: kafka.TopicPartition{
					Topic:     &cfg.ProduceTopic,
					Partition: kafka.PartitionAny,
				},
				Key:       []byte(msg.Key()),
				Value:     msgValue,
				Timestamp: timestamp,
			}, nil)
			if err != nil {
				logger.WithFields(log.Fields{"error": err}).Error("Failed to produce message")
				continue
			}

			sends.record(timestamp)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range producer.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.WithFields(log.Fields{"error": ev.TopicPartition.Error}).Error("Failed to deliver message")
				}
			case kafka.Error:
				logger.WithFields(log.Fields{"error": ev}).Error("Producer error")
			}
		}
	}()

	wg.Wait()

	return nil
}

func buildProducer(cfg appConfig) (*kafka.Producer, error) {
	kp, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
	})
	if err != nil {
		return nil, fmt.Errorf("create Kafka producer: %w", err)
	}
	return kp, nil
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
