package domain

import "encoding/json"

// Job is the unit of work delivered to the commander queue
type Job struct {
	AccountID string          `json:"accountId"`
	Payload   json.RawMessage `json:"payload"`
}

// JobMessage is a decoded job together with its broker delivery tag
type JobMessage struct {
	Job         Job
	DeliveryTag uint64
}

// Parameter is a single value handed to a template render call
type Parameter struct {
	Type          string `json:"type,omitempty"`
	Text          string `json:"text,omitempty"`
	ParameterName string `json:"parameter_name,omitempty"`
}

// Component groups template parameters by section (header, body, button)
type Component struct {
	Type       string      `json:"type,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// BulkJobRequest asks the bulk parser to import content from URL
type BulkJobRequest struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	Template  string `json:"template"`
	URL       string `json:"url,omitempty"`
}

// BulkReportRequest asks for a delivery report of an existing bulk
type BulkReportRequest struct {
	AccountID  string `json:"accountId"`
	ID         any    `json:"id"`
	Unverified bool   `json:"unverified"`
}

// Envelope is the body of every job the commander enqueues
type Envelope struct {
	AccountID string `json:"accountId"`
	Payload   any    `json:"payload,omitempty"`
}
