package identity

import "strings"

// Address is a parsed raw identity token.
type Address struct {
	Name  string // display name, unquoted and trimmed
	Email string // lowercased addr-spec
}

// ParseAddress splits a raw "Name <email>" token. Bare addresses and
// "<email>" are accepted. ok is false when no plausible addr-spec is present.
//
// The parser is deliberately lenient: trailer lines in commit messages and
// mail headers routinely carry unquoted commas, dots and brackets in names.
func ParseAddress(raw string) (Address, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}, false
	}

	var name, email string
	if open := strings.LastIndex(raw, "<"); open >= 0 {
		end := strings.Index(raw[open:], ">")
		if end < 0 {
			return Address{}, false
		}
		email = raw[open+1 : open+end]
		name = raw[:open]
	} else {
		email = raw
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return Address{}, false
	}

	return Address{Name: cleanName(name), Email: email}, true
}

// Domain returns the part of the address after '@'.
func (a Address) Domain() string {
	at := strings.LastIndex(a.Email, "@")
	if at < 0 {
		return ""
	}
	return a.Email[at+1:]
}

func validEmail(email string) bool {
	if strings.ContainsAny(email, " \t<>") {
		return false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	return at < len(email)-1
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'`)
	return strings.Join(strings.Fields(name), " ")
}
