package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("leaderboard limit exceeded")
)

func wrapBadRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, msg)
}
