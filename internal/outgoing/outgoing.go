// Package outgoing hands protocol messages to the delivery side of the
// platform. Sends are fire-and-forget: no delivery confirmation is awaited.
package outgoing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Enqueuer publishes a JSON body to a named queue
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, routingKey string, body any) error
}

// QueueSender publishes outgoing messages to a RabbitMQ queue keyed by account
type QueueSender struct {
	queue  Enqueuer
	name   string
	logger *slog.Logger
}

// NewQueueSender creates a sender publishing to the named queue
func NewQueueSender(queue Enqueuer, name string, logger *slog.Logger) *QueueSender {
	if name == "" {
		name = domain.QueueOutgoing
	}
	return &QueueSender{queue: queue, name: name, logger: logger}
}

// SendOne enqueues a single message for accountID
func (s *QueueSender) SendOne(ctx context.Context, accountID string, message domain.OutgoingMessage) error {
	err := s.queue.Enqueue(ctx, s.name, accountID, domain.Envelope{AccountID: accountID, Payload: message})
	if err != nil {
		return fmt.Errorf("failed to send message %s: %w", message.Key.ID, err)
	}

	s.logger.Debug("Outgoing message queued",
		slog.String("account_id", accountID),
		slog.String("message_id", message.Key.ID),
	)
	return nil
}

// MessageWriter is the subset of kafka.Writer used by KafkaSender
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// KafkaSender writes outgoing messages to a Kafka topic keyed by account
type KafkaSender struct {
	writer MessageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewKafkaSender creates a sender over writer
func NewKafkaSender(writer MessageWriter, logger *slog.Logger) *KafkaSender {
	return &KafkaSender{writer: writer, logger: logger, now: time.Now}
}

// SendOne writes a single message for accountID
func (s *KafkaSender) SendOne(ctx context.Context, accountID string, message domain.OutgoingMessage) error {
	value, err := json.Marshal(domain.Envelope{AccountID: accountID, Payload: message})
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", message.Key.ID, err)
	}

	err = s.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(accountID),
		Value: value,
		Time:  s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to send message %s: %w", message.Key.ID, err)
	}

	s.logger.Debug("Outgoing message written",
		slog.String("account_id", accountID),
		slog.String("message_id", message.Key.ID),
	)
	return nil
}
