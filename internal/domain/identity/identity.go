// Package identity resolves raw "Name <email>" tokens into canonical people
// and organizations using static mailmap and corpmap tables.
package identity

import "strings"

// Sentinel names used in reports for unresolved volume.
const (
	UnmatchedName = "<unmatched>"

	UnknownOrganization Organization = "(Unknown)"
)

// Unmatched is the identity of an empty or unparseable raw address.
var Unmatched = Identity{Name: UnmatchedName} //nolint:gochecknoglobals // immutable sentinel

// Identity is a canonical contributor.
type Identity struct {
	Name  string
	Email string

	// Mapped is set when the identity came from a mailmap rule.
	Mapped bool
	// Relay is set for a relay address that carried no embedded identity.
	Relay bool
	// Bot is set for known automation addresses.
	Bot bool
}

// Key returns the identity's stable key: the lowercased address, or the
// sentinel name for Unmatched. The zero Identity has an empty key.
func (i Identity) Key() string {
	if i.Email != "" {
		return i.Email
	}
	if i.Name == UnmatchedName {
		return UnmatchedName
	}
	return ""
}

// IsUnmatched reports whether i is the unmatched sentinel.
func (i Identity) IsUnmatched() bool {
	return i.Email == "" && i.Name == UnmatchedName
}

// Same reports whether two identities are the same canonical person.
func (i Identity) Same(other Identity) bool {
	k := i.Key()
	return k != "" && k != UnmatchedName && k == other.Key()
}

// String renders the identity the way mailmap targets are written.
func (i Identity) String() string {
	switch {
	case i.Email == "":
		return i.Name
	case i.Name == "":
		return "<" + i.Email + ">"
	default:
		return i.Name + " <" + i.Email + ">"
	}
}

// Organization is a company or affiliation keyed by name.
type Organization string

// IsUnknown reports whether o is the unknown organization sentinel.
func (o Organization) IsUnknown() bool {
	return o == UnknownOrganization || strings.TrimSpace(string(o)) == ""
}
