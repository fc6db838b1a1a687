// Package commander turns inbound account jobs into their side effects:
// bulk imports, webhook and settings updates, and bulk reports.
//
// Consume never returns an error. Every failure ends the job it belongs to
// and is reported through Result; nothing is retried.
package commander

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cuongbtq/unoapi-commander/internal/document"
	"github.com/cuongbtq/unoapi-commander/internal/domain"
	"github.com/cuongbtq/unoapi-commander/internal/template"
	"github.com/google/uuid"
)

// Renderer binds components into a named account template
type Renderer interface {
	Bind(ctx context.Context, accountID, name string, components []domain.Component) (*template.Rendered, error)
}

// DocumentParser parses rendered text. It never fails; problems come back
// as diagnostics alongside a best-effort value.
type DocumentParser interface {
	Parse(text string) document.Parsed
}

// MergingConfigStore writes partial account configs. Keys absent from the
// partial must survive the write.
type MergingConfigStore interface {
	Merge(ctx context.Context, accountID string, partial domain.AccountConfig) error
}

// Enqueuer publishes follow-up jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, routingKey string, body any) error
}

// Sender delivers a protocol message to an account
type Sender interface {
	SendOne(ctx context.Context, accountID string, message domain.OutgoingMessage) error
}

// Queues names the follow-up queues
type Queues struct {
	BulkParser string
	BulkReport string
	Reload     string
}

// Config holds commander dependencies
type Config struct {
	Logger   *slog.Logger
	Renderer Renderer
	Parser   DocumentParser
	Store    MergingConfigStore
	Queue    Enqueuer
	Outgoing Sender
	Queues   Queues

	// NewID and Now default to uuid.NewString and time.Now
	NewID func() string
	Now   func() time.Time
}

// Commander dispatches classified jobs. It holds no per-job state and is
// safe for concurrent use.
type Commander struct {
	logger   *slog.Logger
	renderer Renderer
	parser   DocumentParser
	store    MergingConfigStore
	queue    Enqueuer
	outgoing Sender
	queues   Queues
	newID    func() string
	now      func() time.Time
}

// New creates a new Commander
func New(cfg *Config) *Commander {
	queues := cfg.Queues
	if queues.BulkParser == "" {
		queues.BulkParser = domain.QueueBulkParser
	}
	if queues.BulkReport == "" {
		queues.BulkReport = domain.QueueBulkReport
	}
	if queues.Reload == "" {
		queues.Reload = domain.QueueReload
	}

	c := &Commander{
		logger:   cfg.Logger,
		renderer: cfg.Renderer,
		parser:   cfg.Parser,
		store:    cfg.Store,
		queue:    cfg.Queue,
		outgoing: cfg.Outgoing,
		queues:   queues,
		newID:    cfg.NewID,
		now:      cfg.Now,
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Consume classifies job and runs the matching action
func (c *Commander) Consume(ctx context.Context, job domain.Job) (res Result) {
	cmd := Classify(job)
	logger := c.logger.With(
		slog.String("account_id", job.AccountID),
		slog.String("command", cmd.Name()),
	)

	defer func() {
		if r := recover(); r != nil {
			res = Result{Command: cmd.Name(), Outcome: OutcomeCrashed, Err: fmt.Errorf("panic: %v", r)}
			logger.Error("Commander crashed", slog.Any("panic", r))
		}
	}()

	logger.Debug("Commander processing")

	var outcome Outcome
	var err error
	switch cmd := cmd.(type) {
	case BulkCampaign:
		outcome, err = c.startBulk(ctx, logger, cmd)
	case WebhookTemplate:
		outcome, err = c.applyWebhook(ctx, logger, cmd)
	case BulkReportTemplate:
		outcome, err = c.requestBulkReport(ctx, logger, cmd)
	case ConfigTemplate:
		outcome, err = c.applyConfig(ctx, logger, cmd)
	case Unrecognized:
		logger.Debug("Commander ignore", slog.String("reason", cmd.Reason))
		outcome = OutcomeIgnored
	}

	res = Result{Command: cmd.Name(), Outcome: outcome, Err: err}
	if res.Failed() {
		logger.Error("Error on parse to yml",
			slog.String("outcome", outcome.String()),
			slog.Any("error", err),
		)
	}
	return res
}

func (c *Commander) startBulk(ctx context.Context, logger *slog.Logger, cmd BulkCampaign) (Outcome, error) {
	id := c.newID()

	err := c.queue.Enqueue(ctx, c.queues.BulkParser, cmd.AccountID, domain.Envelope{
		AccountID: cmd.AccountID,
		Payload: domain.BulkJobRequest{
			ID:        id,
			AccountID: cmd.AccountID,
			Template:  domain.BulkTemplate,
			URL:       cmd.Link,
		},
	})
	if err != nil {
		return OutcomeEnqueueFailed, err
	}

	logger.Info("Bulk created", slog.String("bulk_id", id))

	message := domain.OutgoingMessage{
		Key: domain.MessageKey{
			FromMe:    true,
			RemoteJid: domain.PhoneNumberToJid(cmd.AccountID),
			ID:        c.newID(),
		},
		Message: domain.MessageContent{
			Conversation: fmt.Sprintf("The bulk %s is created and will be parsed!", id),
		},
		MessageTimestamp: c.now().UnixMilli(),
	}
	if err := c.outgoing.SendOne(ctx, cmd.AccountID, message); err != nil {
		logger.Warn("Failed to send bulk acknowledgment",
			slog.String("bulk_id", id),
			slog.Any("error", err),
		)
	}

	return OutcomeOK, nil
}

func (c *Commander) applyWebhook(ctx context.Context, logger *slog.Logger, cmd WebhookTemplate) (Outcome, error) {
	webhook, err := c.renderParse(ctx, logger, cmd.AccountID, cmd.Template)
	if err != nil {
		return OutcomeRenderFailed, err
	}

	// an empty document is stored as a null entry
	var entry any
	if webhook != nil {
		entry = webhook
	}
	webhooks := []any{entry}
	logger.Debug("Template webhooks", slog.Any("webhooks", webhooks))

	if err := c.store.Merge(ctx, cmd.AccountID, domain.AccountConfig{"webhooks": webhooks}); err != nil {
		return OutcomeStoreFailed, err
	}

	return c.reload(ctx, cmd.AccountID)
}

func (c *Commander) requestBulkReport(ctx context.Context, logger *slog.Logger, cmd BulkReportTemplate) (Outcome, error) {
	doc, err := c.renderParse(ctx, logger, cmd.AccountID, cmd.Template)
	if err != nil {
		return OutcomeRenderFailed, err
	}

	bulk := doc["bulk"]
	if bulk == nil {
		logger.Warn("Bulk report template has no bulk id")
	}

	err = c.queue.Enqueue(ctx, c.queues.BulkReport, cmd.AccountID, domain.Envelope{
		AccountID: cmd.AccountID,
		Payload: domain.BulkReportRequest{
			AccountID:  cmd.AccountID,
			ID:         bulk,
			Unverified: true,
		},
	})
	if err != nil {
		return OutcomeEnqueueFailed, err
	}

	return OutcomeOK, nil
}

func (c *Commander) applyConfig(ctx context.Context, logger *slog.Logger, cmd ConfigTemplate) (Outcome, error) {
	doc, err := c.renderParse(ctx, logger, cmd.AccountID, cmd.Template)
	if err != nil {
		return OutcomeRenderFailed, err
	}

	update := truthyKeys(doc)
	logger.Debug("Config template to update", slog.Any("config", update))

	if err := c.store.Merge(ctx, cmd.AccountID, update); err != nil {
		return OutcomeStoreFailed, err
	}

	return c.reload(ctx, cmd.AccountID)
}

func (c *Commander) reload(ctx context.Context, accountID string) (Outcome, error) {
	if err := c.queue.Enqueue(ctx, c.queues.Reload, "", domain.Envelope{AccountID: accountID}); err != nil {
		return OutcomeEnqueueFailed, err
	}
	return OutcomeOK, nil
}

// renderParse binds the template and parses the result. A render error
// stops the branch; parse diagnostics are only logged. An empty document
// yields a nil map.
func (c *Commander) renderParse(ctx context.Context, logger *slog.Logger, accountID string, call TemplateCall) (map[string]any, error) {
	rendered, err := c.renderer.Bind(ctx, accountID, call.Name, call.Components)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", call.Name, err)
	}

	logger.Debug("Template content", slog.String("text", rendered.Text))

	parsed := c.parser.Parse(rendered.Text)
	for _, d := range parsed.Errors {
		logger.Error("Error on parse yml",
			slog.String("template", call.Name),
			slog.String("diagnostic", d.String()),
		)
	}

	if parsed.Null {
		return nil, nil
	}
	if parsed.Value == nil {
		return map[string]any{}, nil
	}
	return parsed.Value, nil
}

// truthyKeys drops nil, false, zero, NaN and empty-string values
func truthyKeys(doc map[string]any) domain.AccountConfig {
	out := make(domain.AccountConfig, len(doc))
	for k, v := range doc {
		if truthy(v) {
			out[k] = v
		}
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case uint64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}
