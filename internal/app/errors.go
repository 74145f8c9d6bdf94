package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidWindow = errors.New("invalid window")
	ErrNoStore       = errors.New("stats store not configured")
)
