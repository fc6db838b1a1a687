package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
)

// processJob runs the handler under the job timeout and logs the outcome
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) {
	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	result := w.handler.Consume(jobCtx, msg.Job)

	attrs := []any{
		slog.String("account_id", msg.Job.AccountID),
		slog.String("command", result.Command),
		slog.String("outcome", result.Outcome.String()),
		slog.Duration("duration", time.Since(start)),
	}

	if result.Failed() {
		w.logger.Warn("Job finished without its side effects", attrs...)
		return
	}
	w.logger.Info("Job processed", attrs...)
}
