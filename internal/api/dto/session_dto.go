package dto

import "encoding/json"

// SessionResponse is returned by GET /v15.0/:phone
type SessionResponse struct {
	Phone    string `json:"phone"`
	Status   string `json:"status"`
	Info     any    `json:"info"`
	Webhooks []any  `json:"webhooks"`
}

// SaveTemplateRequest is the body of PUT /v15.0/:phone/templates/:name
type SaveTemplateRequest struct {
	Body string `json:"body" binding:"required"`
}

// CommandRequest is the body of POST /v15.0/:phone/commands. Payload is
// forwarded untouched to the commander queue.
type CommandRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// CommandAccepted acknowledges a queued command
type CommandAccepted struct {
	AccountID string `json:"accountId"`
	Queue     string `json:"queue"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
}
