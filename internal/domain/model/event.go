// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"

	"github.com/okian/revstat/internal/domain/identity"
)

// Role is the kind of act an event records.
type Role string

// Roles produced by the mail and git extraction collaborators.
const (
	RoleAuthor    Role = "author"
	RoleReviewer  Role = "reviewer"
	RoleAcker     Role = "acker"
	RoleCommitter Role = "committer"
)

// ParseRole normalizes a role string. Unknown roles return false.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAuthor:
		return RoleAuthor, true
	case RoleReviewer, "reviewed-by":
		return RoleReviewer, true
	case RoleAcker, "acked-by":
		return RoleAcker, true
	case RoleCommitter, "signed-off-by":
		return RoleCommitter, true
	}
	return "", false
}

// IsReview reports whether the role credits review participation.
func (r Role) IsReview() bool {
	return r == RoleReviewer || r == RoleAcker
}

// IsVolume reports whether the role only feeds volume counters.
func (r Role) IsVolume() bool {
	return r == RoleAuthor || r == RoleCommitter
}

// Event is one observed act. Events are immutable once extracted.
type Event struct {
	EventID       string    `json:"event_id,omitempty"`       // message-id or commit+trailer; optional, used for dedupe
	RawAddress    string    `json:"raw_address"`              // "Name <email>" as it appeared
	Role          Role      `json:"role"`                     // author, reviewer, acker, committer
	SubjectID     string    `json:"subject_id"`               // thread root message-id or commit hash
	Timestamp     time.Time `json:"timestamp"`                // when the act happened
	RelayOverride string    `json:"relay_override,omitempty"` // embedded identity when posted by a relay
}

// Authorship is the canonical author of a subject, as seen by the resolver.
type Authorship struct {
	Identity     identity.Identity
	Organization identity.Organization
}

// Known reports whether the subject had an authoring event.
func (a Authorship) Known() bool {
	return a.Identity.Key() != ""
}

// ResolvedEvent is an Event tagged with its canonical identity and organization.
type ResolvedEvent struct {
	Event
	Identity     identity.Identity
	Organization identity.Organization
	// SelfReview is set on review events whose identity equals the subject author.
	SelfReview bool
	// Author is the subject's authorship; zero when the subject has no author event.
	Author Authorship
}

// Window is the event set of one producer for one release.
type Window struct {
	Producer string  `json:"producer"`
	Release  string  `json:"release"`
	Events   []Event `json:"events"`
}
