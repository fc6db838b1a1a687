package template

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
	"github.com/jmoiron/sqlx"
)

// Storage reads account templates from PostgreSQL
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// GetTemplate returns the template stored for the account under name
func (s *Storage) GetTemplate(ctx context.Context, accountID, name string) (*Template, error) {
	query := `
		SELECT account_id, name, body, updated_at
		FROM templates
		WHERE account_id = $1 AND name = $2
	`

	var tpl Template
	err := s.db.GetContext(ctx, &tpl, query, accountID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		s.logger.Error("Failed to get template",
			slog.String("account_id", accountID),
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &tpl, nil
}

// SaveTemplate inserts or replaces the template body for the account
func (s *Storage) SaveTemplate(ctx context.Context, tpl *Template) error {
	query := `
		INSERT INTO templates (account_id, name, body, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account_id, name)
		DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, tpl.AccountID, tpl.Name, tpl.Body); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	s.logger.Info("Template saved",
		slog.String("account_id", tpl.AccountID),
		slog.String("template", tpl.Name),
	)

	return nil
}
