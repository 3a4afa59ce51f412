package models

import "errors"

// Sentinel kinds for the service layer. Handlers map these to HTTP statuses;
// the stream orchestrator maps them to in-stream error events.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("invalid input")
	ErrConflict    = errors.New("already exists")
	ErrGeneration  = errors.New("generation failed")
	ErrScoring     = errors.New("scoring failed")
	ErrPersistence = errors.New("persistence failed")
)
