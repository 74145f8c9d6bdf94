package repository

import "errors"

// Sentinel kinds for stats store errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidLimit     = errors.New("invalid leaderboard limit")
	ErrInvalidMetric    = errors.New("invalid ranking metric")
	ErrInvalidSheet     = errors.New("invalid score sheet")
	ErrInvalidPeriod    = errors.New("invalid rate period")
	ErrMergeConflict    = errors.New("merge conflict")
	ErrProducerMismatch = errors.New("producer mismatch")
	ErrInvalidDocument  = errors.New("invalid stats document")
	ErrLockTimeout      = errors.New("stats document lock timeout")
)
