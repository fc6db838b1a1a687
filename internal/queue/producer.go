package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Publisher sends raw bodies to a named queue
type Publisher interface {
	Publish(ctx context.Context, queue, routingKey string, body []byte) error
}

// Producer encodes job bodies as JSON and hands them to the broker
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new Producer
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// Enqueue marshals body and publishes it to queue with routingKey
func (p *Producer) Enqueue(ctx context.Context, queue, routingKey string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal job for %s: %w", queue, err)
	}

	if err := p.publisher.Publish(ctx, queue, routingKey, data); err != nil {
		return fmt.Errorf("failed to enqueue job to %s: %w", queue, err)
	}

	p.logger.Debug("Job enqueued",
		slog.String("queue", queue),
		slog.String("routing_key", routingKey),
	)

	return nil
}
