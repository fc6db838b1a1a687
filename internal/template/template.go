package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
)

// Template is a stored template body for one account
type Template struct {
	AccountID string    `db:"account_id"`
	Name      string    `db:"name"`
	Body      string    `db:"body"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Rendered is the text produced by binding components into a template
type Rendered struct {
	Text string
}

// Store looks up account templates. Implementations return
// domain.ErrTemplateNotFound when no row matches.
type Store interface {
	GetTemplate(ctx context.Context, accountID, name string) (*Template, error)
}

// Service renders templates, falling back to the built-in unoapi
// templates when the account has no stored override
type Service struct {
	store    Store
	logger   *slog.Logger
	defaults map[string]string
}

// NewService creates a new template Service. store may be nil, in which
// case only built-in templates are available.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		defaults: builtinTemplates,
	}
}

// Bind resolves the template and substitutes the component parameters
func (s *Service) Bind(ctx context.Context, accountID, name string, components []domain.Component) (*Rendered, error) {
	body, err := s.lookup(ctx, accountID, name)
	if err != nil {
		return nil, err
	}

	text := bind(body, components)

	s.logger.Debug("Template bound",
		slog.String("account_id", accountID),
		slog.String("template", name),
		slog.Int("length", len(text)),
	)

	return &Rendered{Text: text}, nil
}

func (s *Service) lookup(ctx context.Context, accountID, name string) (string, error) {
	if s.store != nil {
		tpl, err := s.store.GetTemplate(ctx, accountID, name)
		if err == nil {
			return tpl.Body, nil
		}
		if !errors.Is(err, domain.ErrTemplateNotFound) {
			return "", fmt.Errorf("failed to load template %s: %w", name, err)
		}
	}

	if body, ok := s.defaults[name]; ok {
		return body, nil
	}

	return "", fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// bind replaces {{N}} with the N-th parameter across all components and
// {{name}} with the parameter carrying that parameter_name. Placeholders
// without a value render empty.
func bind(body string, components []domain.Component) string {
	positional := make(map[string]string)
	named := make(map[string]string)

	n := 0
	for _, c := range components {
		for _, p := range c.Parameters {
			n++
			positional[fmt.Sprint(n)] = p.Text
			if p.ParameterName != "" {
				named[p.ParameterName] = p.Text
			}
		}
	}

	return placeholder.ReplaceAllStringFunc(body, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		if v, ok := named[key]; ok {
			return v
		}
		return positional[key]
	})
}
