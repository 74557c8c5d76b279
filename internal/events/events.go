// Package events publishes a notification after each successful refresh.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/seenimoa/marketmap/pkg/models"
)

// Publisher announces completed refreshes.
type Publisher interface {
	PublishRefresh(ctx context.Context, ev models.RefreshEvent) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) PublishRefresh(context.Context, models.RefreshEvent) error { return nil }
func (Nop) Close() error                                             { return nil }

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events as JSON keyed by run id.
type Kafka struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafka builds a publisher writing synchronously to topic.
func NewKafka(brokers []string, topic string, logger *zap.Logger) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewKafkaWithWriter(w, logger)
}

// NewKafkaWithWriter wraps an existing writer.
func NewKafkaWithWriter(w MessageWriter, logger *zap.Logger) *Kafka {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kafka{writer: w, logger: logger}
}

func (k *Kafka) PublishRefresh(ctx context.Context, ev models.RefreshEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode refresh event: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.RunID),
		Value: payload,
		Time:  ev.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("publish refresh event: %w", err)
	}
	k.logger.Debug("refresh event published", zap.String("run_id", ev.RunID))
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
