package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer sets QoS and starts consuming the commander queue
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	if err := w.broker.Qos(w.prefetchCount); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	w.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.broker.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.queueName),
	)

	return deliveries, nil
}

// decodeJob parses a delivery body into a job
func decodeJob(body []byte) (domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("%w: %v", domain.ErrInvalidJob, err)
	}
	if job.AccountID == "" {
		return job, fmt.Errorf("%w: missing accountId", domain.ErrInvalidJob)
	}
	return job, nil
}

// errDeliveriesClosed is returned when the broker closes the consumer channel
var errDeliveriesClosed = errors.New("delivery channel closed")

// startMessageDispatcher decodes deliveries and hands them to the pool. It
// returns nil once ctx is canceled.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return errDeliveriesClosed
			}

			job, err := decodeJob(delivery.Body)
			if err != nil {
				w.logger.Error("Failed to decode job",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				// poison message, never redelivered
				if nackErr := w.broker.Nack(delivery.DeliveryTag, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			msg := &domain.JobMessage{
				Job:         job,
				DeliveryTag: delivery.DeliveryTag,
			}

			select {
			case w.jobsChan <- msg:
				w.logger.Debug("Job dispatched to worker pool",
					slog.String("account_id", job.AccountID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching job")
				// hand it back so another consumer picks it up
				if nackErr := w.broker.Nack(delivery.DeliveryTag, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return nil
			}
		}
	}
}
