package domain

import "errors"

var (
	// ErrInvalidJob is returned when a queued job cannot be decoded or has no account
	ErrInvalidJob = errors.New("invalid job")

	// ErrTemplateNotFound is returned when no stored or built-in template matches a name
	ErrTemplateNotFound = errors.New("template not found")

	// ErrSessionNotFound is returned when no live client is registered for an account
	ErrSessionNotFound = errors.New("session not found")
)
