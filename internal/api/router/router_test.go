package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cuongbtq/unoapi-commander/internal/api/handler"
	"github.com/cuongbtq/unoapi-commander/internal/domain"
	"github.com/cuongbtq/unoapi-commander/internal/session"
	"github.com/cuongbtq/unoapi-commander/internal/template"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	status        string
	disconnectErr error
	disconnected  bool
}

func (c *fakeClient) Info() any      { return gin.H{"name": "clinic"} }
func (c *fakeClient) Status() string { return c.status }
func (c *fakeClient) Disconnect(context.Context) error {
	c.disconnected = true
	return c.disconnectErr
}

type fakeConfigs struct {
	configs map[string]domain.AccountConfig
	err     error
}

func (f *fakeConfigs) Get(_ context.Context, accountID string) (domain.AccountConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.configs[accountID], nil
}

type fakeTemplates struct {
	saved []*template.Template
	err   error
}

func (f *fakeTemplates) SaveTemplate(_ context.Context, tpl *template.Template) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, tpl)
	return nil
}

type enqueued struct {
	queue, routingKey string
	body              any
}

type fakeQueue struct {
	jobs []enqueued
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, queue, routingKey string, body any) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, enqueued{queue, routingKey, body})
	return nil
}

type fakeCheck struct{ err error }

func (f fakeCheck) HealthCheck(context.Context) error { return f.err }

type fixture struct {
	engine    *gin.Engine
	registry  *session.Registry
	configs   *fakeConfigs
	templates *fakeTemplates
	queue     *fakeQueue
}

func newFixture(t *testing.T, checks map[string]HealthChecker) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		registry:  session.NewRegistry(),
		configs:   &fakeConfigs{configs: map[string]domain.AccountConfig{}},
		templates: &fakeTemplates{},
		queue:     &fakeQueue{},
	}
	f.engine = SetupRouter(&handler.Dependencies{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sessions:  f.registry,
		Configs:   f.configs,
		Templates: f.templates,
		Queue:     f.queue,
	}, checks)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no dependencies",
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name:       "all healthy",
			checks:     map[string]HealthChecker{"redis": fakeCheck{}, "postgres": fakeCheck{}},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name:       "one unhealthy",
			checks:     map[string]HealthChecker{"redis": fakeCheck{err: errors.New("refused")}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.checks)

			w := f.do(http.MethodGet, "/health", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body["status"])
		})
	}
}

func TestSessionInfo(t *testing.T) {
	f := newFixture(t, nil)
	f.registry.Register("5511", &fakeClient{status: "online"})
	f.configs.configs["5511"] = domain.AccountConfig{
		"webhooks": []any{map[string]any{"url": "http://hook", "token": "t", "header": "h"}},
	}

	w := f.do(http.MethodGet, "/v15.0/5511", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"phone": "5511",
		"status": "online",
		"info": {"name": "clinic"},
		"webhooks": [{"url": "http://hook", "token": "t", "header": "h"}]
	}`, w.Body.String())
}

func TestSessionInfo_NoWebhooks(t *testing.T) {
	f := newFixture(t, nil)
	f.registry.Register("5511", &fakeClient{status: "online"})

	w := f.do(http.MethodGet, "/v15.0/5511", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []any{}, body["webhooks"])
}

func TestSessionInfo_Errors(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/v15.0/5511", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.registry.Register("5511", &fakeClient{status: "online"})
	f.configs.err = errors.New("redis down")

	w = f.do(http.MethodGet, "/v15.0/5511", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSessionDelete(t *testing.T) {
	f := newFixture(t, nil)
	client := &fakeClient{status: "online"}
	f.registry.Register("5511", client)

	w := f.do(http.MethodDelete, "/v15.0/5511", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, client.disconnected)
	assert.False(t, f.registry.Has("5511"))

	w = f.do(http.MethodDelete, "/v15.0/5511", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionDelete_DisconnectFails(t *testing.T) {
	f := newFixture(t, nil)
	f.registry.Register("5511", &fakeClient{disconnectErr: errors.New("socket closed")})

	w := f.do(http.MethodDelete, "/v15.0/5511", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, f.registry.Has("5511"))
}

func TestSaveTemplate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		saveErr    error
		wantStatus int
		wantSaved  int
	}{
		{
			name:       "saves body",
			body:       `{"body":"url: {{1}}"}`,
			wantStatus: http.StatusNoContent,
			wantSaved:  1,
		},
		{
			name:       "missing body",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "storage error",
			body:       `{"body":"url: {{1}}"}`,
			saveErr:    errors.New("insert failed"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.templates.err = tt.saveErr

			w := f.do(http.MethodPut, "/v15.0/5511/templates/unoapi-webhook", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			require.Len(t, f.templates.saved, tt.wantSaved)
			if tt.wantSaved > 0 {
				assert.Equal(t, "5511", f.templates.saved[0].AccountID)
				assert.Equal(t, "unoapi-webhook", f.templates.saved[0].Name)
				assert.Equal(t, "url: {{1}}", f.templates.saved[0].Body)
			}
		})
	}
}

func TestSaveTemplate_WithoutStorage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := SetupRouter(&handler.Dependencies{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sessions: session.NewRegistry(),
	}, nil)

	req := httptest.NewRequest(http.MethodPut, "/v15.0/5511/templates/unoapi-webhook", strings.NewReader(`{"body":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEnqueueCommand(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/v15.0/5511/commands", `{"payload":{"type":"document","document":{"caption":"campanha"}}}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"accountId":"5511","queue":"unoapi-commander"}`, w.Body.String())

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, domain.QueueCommander, f.queue.jobs[0].queue)
	assert.Equal(t, "5511", f.queue.jobs[0].routingKey)

	job, ok := f.queue.jobs[0].body.(domain.Job)
	require.True(t, ok)
	assert.Equal(t, "5511", job.AccountID)
	assert.JSONEq(t, `{"type":"document","document":{"caption":"campanha"}}`, string(job.Payload))
}

func TestEnqueueCommand_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		queueErr   error
		wantStatus int
	}{
		{name: "malformed json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "missing payload", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "payload is not an object", body: `{"payload":[1,2]}`, wantStatus: http.StatusBadRequest},
		{name: "queue failure", body: `{"payload":{}}`, queueErr: errors.New("closed"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.queue.err = tt.queueErr

			w := f.do(http.MethodPost, "/v15.0/5511/commands", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Empty(t, f.queue.jobs)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodOptions, "/v15.0/5511", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
