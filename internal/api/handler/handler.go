package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
	"github.com/cuongbtq/unoapi-commander/internal/session"
	"github.com/cuongbtq/unoapi-commander/internal/template"
)

// SessionRegistry finds and drops live sessions
type SessionRegistry interface {
	Get(accountID string) (session.Client, error)
	Remove(accountID string) (session.Client, bool)
}

// ConfigReader reads the stored account config
type ConfigReader interface {
	Get(ctx context.Context, accountID string) (domain.AccountConfig, error)
}

// TemplateWriter stores account template overrides
type TemplateWriter interface {
	SaveTemplate(ctx context.Context, tpl *template.Template) error
}

// Enqueuer publishes jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, routingKey string, body any) error
}

// Dependencies holds all dependencies needed by handlers. Templates may be
// nil when no database is configured.
type Dependencies struct {
	Logger         *slog.Logger
	Sessions       SessionRegistry
	Configs        ConfigReader
	Templates      TemplateWriter
	Queue          Enqueuer
	CommanderQueue string
}

// SessionHandler serves the per-account endpoints
type SessionHandler struct {
	logger         *slog.Logger
	sessions       SessionRegistry
	configs        ConfigReader
	templates      TemplateWriter
	queue          Enqueuer
	commanderQueue string
}

// NewSessionHandler creates a new SessionHandler instance
func NewSessionHandler(deps *Dependencies) *SessionHandler {
	commanderQueue := deps.CommanderQueue
	if commanderQueue == "" {
		commanderQueue = domain.QueueCommander
	}

	return &SessionHandler{
		logger:         deps.Logger,
		sessions:       deps.Sessions,
		configs:        deps.Configs,
		templates:      deps.Templates,
		queue:          deps.Queue,
		commanderQueue: commanderQueue,
	}
}
