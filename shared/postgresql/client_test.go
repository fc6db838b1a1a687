package postgresql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Host: "db", Port: 5432, User: "u", Password: "p", Database: "unoapi"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=unoapi sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestClient_HealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	client := &Client{
		db:     sqlx.NewDb(db, "postgres"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	assert.NoError(t, client.HealthCheck(context.Background()))

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection refused"))
	err = client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database health check failed")

	mock.ExpectClose()
	assert.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
