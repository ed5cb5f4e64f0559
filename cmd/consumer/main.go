package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"

	"github.com/ttd2089/ring-queue/internal/config"
	"github.com/ttd2089/ring-queue/internal/logging"
	"github.com/ttd2089/ring-queue/internal/messages"
	"github.com/ttd2089/ring-queue/internal/metrics"
	"github.com/ttd2089/ring-queue/internal/observer"
	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

type appConfig struct {
	HTTPPort         string        `config_key:"http.listen-port" default:"8080"`
	BootstrapServers string        `config_key:"kafka.consumer.bootstrap-servers" required:"true"`
	ConsumerGroupID  string        `config_key:"kafka.consumer.group-id" default:"ring-queue"`
	ConsumeTopic     string        `config_key:"kafka.consumer.topic" default:"messages"`
	EventsTopic      string        `config_key:"kafka.events.topic"`
	RecentCapacity   int           `config_key:"recent.capacity" default:"50"`
	StatsRetention   time.Duration `config_key:"stats.retention" default:"5m"`
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

	stats := metrics.NewCount(cfg.StatsRetention)

	var events *kafka.Producer
	if cfg.EventsTopic != "" {
		events, err = kafka.NewProducer(&kafka.ConfigMap{
			"bootstrap.servers": cfg.BootstrapServers,
		})
		if err != nil {
			return fmt.Errorf("create Kafka events producer: %w", err)
		}
		defer events.Close()
		go logDeliveryErrors(events, logger)
	}

	recent, err := newRecentStore(cfg.RecentCapacity, func(key string) ringbuf.Observer {
		observers := []ringbuf.Observer{
			observer.NewCounting(stats, key),
			observer.NewLog(logger, key),
		}
		if events != nil {
			observers = append(observers, observer.NewKafka(events, cfg.EventsTopic, key, logger))
		}
		return observer.Multi(observers...)
	})
	if err != nil {
		return fmt.Errorf("create recent store: %w", err)
	}

	server := newServer(fmt.Sprintf(":%s", cfg.HTTPPort), stats, recent, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithFields(log.Fields{"error": err}).Error("Failed to shut down server")
		}
	}()

	consumer, err := buildConsumer(cfg, logger)
	if err != nil {
		return fmt.Errorf("build Kafka consumer: %w", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.WithFields(log.Fields{"error": err}).Error("Failed to close consumer")
		}
	}()

	logger.WithFields(log.Fields{
		"topic":    cfg.ConsumeTopic,
		"port":     cfg.HTTPPort,
		"capacity": cfg.RecentCapacity,
	}).Info("Consuming")

	for !isCancelled(ctx) {
		msg, err := consumer.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			logger.WithFields(log.Fields{"error": err}).Error("Failed to consume")
			<-time.After(5 * time.Second)
			continue
		}

		if err := recent.Add(msg); err != nil {
			return fmt.Errorf("handle msg: %w", err)
		}

		if err := consumer.Commit(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}

	return nil
}

type kafkaConsumer struct {
	kc     *kafka.Consumer
	logger log.FieldLogger
}

func (kc kafkaConsumer) Close() error {
	return kc.kc.Close()
}

func (kc kafkaConsumer) Consume(ctx context.Context) (messages.Message, error) {
	for !isCancelled(ctx) {
		event := kc.kc.Poll(50)
		switch event := event.(type) {
		case *kafka.Message:
			msg := messages.Message{}
			if err := json.Unmarshal(event.Value, &msg); err != nil {
				kc.logger.WithFields(log.Fields{"offset": event.TopicPartition.Offset, "error": err}).Warn("Skipping undecodable message")
				continue
			}
			return msg, nil
		case kafka.PartitionEOF:
			<-time.After(time.Second)
		case kafka.Error:
			kc.logger.WithFields(log.Fields{"error": event}).Error("Consumer error")
		}
	}

	return messages.Message{}, ctx.Err()
}

func (kc kafkaConsumer) Commit(_ context.Context) error {
	_, err := kc.kc.Commit()
	if err != nil {
		return err
	}
	return nil
}

func buildConsumer(cfg appConfig, logger log.FieldLogger) (kafkaConsumer, error) {

	kc, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.BootstrapServers,
		"group.id":           cfg.ConsumerGroupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": "false",
	})
	if err != nil {
		return kafkaConsumer{}, fmt.Errorf("create Kafka consumer: %w", err)
	}

	err = kc.Subscribe(cfg.ConsumeTopic, func(c *kafka.Consumer, e kafka.Event) error {
		logger.WithFields(log.Fields{"event": e}).Info("Rebalance")
		return nil
	})
	if err != nil {
		return kafkaConsumer{}, fmt.Errorf("subscribe: %w", err)
	}

	return kafkaConsumer{
		kc:     kc,
		logger: logger,
	}, nil
}

func logDeliveryErrors(p *kafka.Producer, logger log.FieldLogger) {
	for e := range p.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			logger.WithFields(log.Fields{"error": m.TopicPartition.Error}).Error("Failed to deliver event")
		}
	}
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
