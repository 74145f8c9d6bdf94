package identity

import (
	"fmt"
	"strings"
)

// TieBreak decides which corpmap fragment wins when two fragments of the
// same length match one domain.
type TieBreak string

// Tie break policies.
const (
	TieBreakFirst TieBreak = "first"
	TieBreakLast  TieBreak = "last"
)

// ParseTieBreak validates a tie break policy name.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case "", TieBreakFirst:
		return TieBreakFirst, nil
	case TieBreakLast:
		return TieBreakLast, nil
	}
	return "", fmt.Errorf("%w: unknown tie break %q", ErrConfig, s)
}

// Option configures a Map.
type Option func(*settings)

type settings struct {
	tieBreak   TieBreak
	transitive bool
}

func defaultSettings() settings {
	return settings{tieBreak: TieBreakFirst}
}

// WithTieBreak sets the corpmap tie break policy.
func WithTieBreak(tb TieBreak) Option {
	return func(s *settings) {
		if tb != "" {
			s.tieBreak = tb
		}
	}
}

// WithTransitiveAliases lets mailmap targets be keys themselves. Chains are
// followed to their end and cycles are rejected at load.
func WithTransitiveAliases(enabled bool) Option {
	return func(s *settings) {
		s.transitive = enabled
	}
}
