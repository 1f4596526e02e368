package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/config"
)

const (
	DefaultReloadTopic = "catalog-reload"
	reloadDLQSuffix    = "-dlq"
	maxReloadRetries   = 2
)

// ReloadEvent asks every serving instance to rebuild its index from the
// configured catalog source.
type ReloadEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	RetryCount  int       `json:"retry_count"`
}

func NewReloadEvent(reason, requestedBy string) ReloadEvent {
	return ReloadEvent{
		EventID:     uuid.New(),
		Reason:      reason,
		RequestedBy: requestedBy,
		Timestamp:   time.Now().UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Stats() kafka.ReaderStats
	Close() error
}

// ReloadBus publishes and consumes catalog reload events.
type ReloadBus struct {
	topic      string
	writer     messageWriter
	reader     messageReader
	dlqWriter  messageWriter
	retryDelay time.Duration
	logger     *logrus.Logger
}

func NewReloadBus(cfg *config.Config, instanceID string, logger *logrus.Logger) (*ReloadBus, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	topic := cfg.Kafka.Topics.CatalogReload
	if topic == "" {
		topic = DefaultReloadTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}

	// Every instance must see every reload, so each one reads in its own group.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        cfg.Kafka.GroupID + "-" + instanceID,
		MinBytes:       1,
		MaxBytes:       1e6, // 1MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic + reloadDLQSuffix,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &ReloadBus{
		topic:      topic,
		writer:     writer,
		reader:     reader,
		dlqWriter:  dlqWriter,
		retryDelay: time.Second,
		logger:     logger,
	}, nil
}

func (b *ReloadBus) PublishReload(ctx context.Context, event ReloadEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal reload event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.EventID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "reason", Value: []byte(event.Reason)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := b.writer.WriteMessages(ctx, message); err != nil {
		b.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to publish reload event")
		return fmt.Errorf("failed to write reload event to Kafka: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"reason":   event.Reason,
		"topic":    b.topic,
	}).Info("Reload event published")

	return nil
}

// Consume blocks until ctx is done, calling handler for every reload event.
// A handler that keeps failing after the retries sends the event to the DLQ.
func (b *ReloadBus) Consume(ctx context.Context, handler func(context.Context, ReloadEvent) error) error {
	for {
		message, err := b.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.WithError(err).Error("Failed to read reload event from Kafka")
			continue
		}

		var event ReloadEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			b.logger.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal reload event")
			continue
		}

		if err := b.processWithRetry(ctx, event, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to process reload event after retries")
			if dlqErr := b.sendToDLQ(ctx, event, err); dlqErr != nil {
				b.logger.WithError(dlqErr).Error("Failed to send reload event to DLQ")
			}
		}
	}
}

func (b *ReloadBus) processWithRetry(ctx context.Context, event ReloadEvent, handler func(context.Context, ReloadEvent) error) error {
	for attempt := 0; attempt <= maxReloadRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := b.retryDelay * time.Duration(1<<uint(attempt-1))
			b.logger.WithFields(logrus.Fields{
				"event_id": event.EventID,
				"attempt":  attempt,
				"delay":    delay,
			}).Info("Retrying reload event")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		event.RetryCount = attempt
		if err := handler(ctx, event); err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{
				"event_id": event.EventID,
				"attempt":  attempt,
			}).Warn("Reload event processing failed")

			if attempt == maxReloadRetries {
				return fmt.Errorf("max retries exceeded: %w", err)
			}
			continue
		}

		b.logger.WithFields(logrus.Fields{
			"event_id": event.EventID,
			"attempt":  attempt,
		}).Info("Reload event processed")
		return nil
	}

	return fmt.Errorf("unexpected retry loop exit")
}

func (b *ReloadBus) sendToDLQ(ctx context.Context, event ReloadEvent, originalError error) error {
	dlqMessage := map[string]interface{}{
		"original_event": event,
		"error":          originalError.Error(),
		"dlq_timestamp":  time.Now().UTC(),
	}

	payload, err := json.Marshal(dlqMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.EventID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "original_topic", Value: []byte(b.topic)},
			{Key: "error", Value: []byte(originalError.Error())},
		},
	}

	if err := b.dlqWriter.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to DLQ: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"error":    originalError.Error(),
	}).Warn("Reload event sent to DLQ")

	return nil
}

func (b *ReloadBus) Close() error {
	var errs []error

	if err := b.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}

	if err := b.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}

	if err := b.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing reload bus: %w", errors.Join(errs...))
	}

	return nil
}

// GetMetrics returns consumer statistics for monitoring.
func (b *ReloadBus) GetMetrics() map[string]interface{} {
	stats := b.reader.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"rebalances":      stats.Rebalances,
		"errors":          stats.Errors,
	}
}
