package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// newSyncProducer is a seam for tests.
var newSyncProducer = sarama.NewSyncProducer

// Producer publishes assignment notifications to a Kafka topic, keyed by
// assignment id so all events of one assignment land on the same partition.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   logx.Logger
}

// NewProducer creates a new notification producer. Returns nil when Kafka is
// not configured; a nil Producer silently drops notifications.
func NewProducer(logger logx.Logger, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true

	producer, err := newSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

// Publish sends one notification.
func (p *Producer) Publish(_ context.Context, n domain.Notification) error {
	if p == nil {
		return nil
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(n.AssignmentID),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	p.logger.Debug("notification published",
		logx.String("assignment_id", n.AssignmentID),
		logx.String("status", string(n.Status)),
		logx.Int64("offset", offset),
		logx.Int("partition", int(partition)),
	)
	return nil
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
