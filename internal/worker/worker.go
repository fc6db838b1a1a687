package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/unoapi-commander/internal/commander"
	"github.com/cuongbtq/unoapi-commander/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker is the consumer side of the job queue
type Broker interface {
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	Ack(deliveryTag uint64) error
	Nack(deliveryTag uint64, requeue bool) error
}

// Handler runs one job to completion
type Handler interface {
	Consume(ctx context.Context, job domain.Job) commander.Result
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Broker        Broker
	Handler       Handler
	QueueName     string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
}

// Worker consumes commander jobs and runs them on a goroutine pool
type Worker struct {
	logger        *slog.Logger
	broker        Broker
	handler       Handler
	queueName     string
	workerID      string
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	jobsChan      chan *domain.JobMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}

	return &Worker{
		logger:        cfg.Logger,
		broker:        cfg.Broker,
		handler:       cfg.Handler,
		queueName:     cfg.QueueName,
		workerID:      "commander-" + uuid.NewString()[:8],
		concurrency:   concurrency,
		prefetchCount: prefetch,
		jobTimeout:    cfg.JobTimeout,
		jobsChan:      make(chan *domain.JobMessage, concurrency),
		stopChan:      make(chan struct{}),
	}
}

// Start subscribes to the queue and processes jobs until ctx is canceled
// or the delivery channel closes
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	return w.startMessageDispatcher(ctx, deliveries)
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
