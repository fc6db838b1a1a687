package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/unoapi-commander/internal/api/dto"
	"github.com/cuongbtq/unoapi-commander/internal/domain"
	"github.com/cuongbtq/unoapi-commander/internal/template"
	"github.com/gin-gonic/gin"
)

// Info handles GET /v15.0/:phone
func (h *SessionHandler) Info(c *gin.Context) {
	phone := c.Param("phone")

	client, err := h.sessions.Get(phone)
	if err != nil {
		h.notFound(c, phone, err)
		return
	}

	cfg, err := h.configs.Get(c.Request.Context(), phone)
	if err != nil {
		h.logger.Error("Failed to read account config",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to read account config"})
		return
	}

	webhooks := cfg.Webhooks()
	if webhooks == nil {
		webhooks = []any{}
	}

	c.JSON(http.StatusOK, dto.SessionResponse{
		Phone:    phone,
		Status:   client.Status(),
		Info:     client.Info(),
		Webhooks: webhooks,
	})
}

// Delete handles DELETE /v15.0/:phone
func (h *SessionHandler) Delete(c *gin.Context) {
	phone := c.Param("phone")

	client, err := h.sessions.Get(phone)
	if err != nil {
		h.notFound(c, phone, err)
		return
	}

	if err := client.Disconnect(c.Request.Context()); err != nil {
		h.logger.Error("Failed to disconnect session",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to disconnect session"})
		return
	}

	h.sessions.Remove(phone)
	h.logger.Info("Session removed", slog.String("phone", phone))

	c.Status(http.StatusNoContent)
}

// SaveTemplate handles PUT /v15.0/:phone/templates/:name
func (h *SessionHandler) SaveTemplate(c *gin.Context) {
	if h.templates == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Template storage is not configured"})
		return
	}

	var req dto.SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	tpl := &template.Template{
		AccountID: c.Param("phone"),
		Name:      c.Param("name"),
		Body:      req.Body,
	}
	if err := h.templates.SaveTemplate(c.Request.Context(), tpl); err != nil {
		h.logger.Error("Failed to save template",
			slog.String("phone", tpl.AccountID),
			slog.String("template", tpl.Name),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to save template"})
		return
	}

	c.Status(http.StatusNoContent)
}

// EnqueueCommand handles POST /v15.0/:phone/commands. The payload goes to
// the commander queue as if the account had received it.
func (h *SessionHandler) EnqueueCommand(c *gin.Context) {
	phone := c.Param("phone")

	var req dto.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if !bytes.HasPrefix(bytes.TrimSpace(req.Payload), []byte("{")) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "payload must be a JSON object"})
		return
	}

	job := domain.Job{AccountID: phone, Payload: req.Payload}
	if err := h.queue.Enqueue(c.Request.Context(), h.commanderQueue, phone, job); err != nil {
		h.logger.Error("Failed to enqueue command",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to enqueue command"})
		return
	}

	c.JSON(http.StatusAccepted, dto.CommandAccepted{AccountID: phone, Queue: h.commanderQueue})
}

func (h *SessionHandler) notFound(c *gin.Context, phone string, err error) {
	if !errors.Is(err, domain.ErrSessionNotFound) {
		h.logger.Error("Failed to look up session",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to look up session"})
		return
	}
	c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "session not found"})
}
