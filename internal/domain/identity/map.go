package identity

import (
	"fmt"
)

// Document is the on-disk identity map.
type Document struct {
	MailMap [][]string `koanf:"mailmap" json:"mailmap"`
	CorpMap [][]string `koanf:"corpmap" json:"corpmap"`
	Relays  []string   `koanf:"relays" json:"relays"`
	Bots    []string   `koanf:"bots" json:"bots"`
}

// Map is a loaded, validated identity map. It is immutable and safe for
// concurrent use.
type Map struct {
	mail   *MailMap
	corp   *CorpMap
	relays map[string]struct{}
	bots   map[string]struct{}
}

// New validates doc and builds a Map.
func New(doc Document, opts ...Option) (*Map, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	mail, err := NewMailMap(doc.MailMap, s.transitive)
	if err != nil {
		return nil, err
	}
	corp, err := NewCorpMap(doc.CorpMap, s.tieBreak)
	if err != nil {
		return nil, err
	}
	relays, err := addressSet("relays", doc.Relays)
	if err != nil {
		return nil, err
	}
	bots, err := addressSet("bots", doc.Bots)
	if err != nil {
		return nil, err
	}

	return &Map{mail: mail, corp: corp, relays: relays, bots: bots}, nil
}

func addressSet(section string, raws []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(raws))
	for i, raw := range raws {
		a, ok := ParseAddress(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s entry %d: %q is not an address", ErrConfig, section, i, raw)
		}
		set[a.Email] = struct{}{}
	}
	return set, nil
}

// MailMap returns the alias table.
func (m *Map) MailMap() *MailMap { return m.mail }

// CorpMap returns the affiliation table.
func (m *Map) CorpMap() *CorpMap { return m.corp }

// IsRelay reports whether raw is a configured relay address.
func (m *Map) IsRelay(raw string) bool {
	a, ok := ParseAddress(raw)
	if !ok {
		return false
	}
	_, relay := m.relays[a.Email]
	return relay
}

// ResolveIdentity maps a raw address onto its canonical identity. It never
// fails: anything unparseable resolves to Unmatched.
func (m *Map) ResolveIdentity(raw string) Identity {
	a, ok := ParseAddress(raw)
	if !ok {
		return Unmatched
	}

	id := Identity{Name: a.Name, Email: a.Email}
	if mapped, hit := m.mail.Lookup(a.Email); hit {
		id = mapped
		if id.Name == "" {
			id.Name = a.Name
		}
	}
	if _, relay := m.relays[a.Email]; relay {
		id.Relay = true
	}
	if _, bot := m.bots[a.Email]; bot {
		id.Bot = true
	}
	if _, bot := m.bots[id.Email]; bot {
		id.Bot = true
	}
	return id
}

// ResolveOrganization attributes a raw address to an organization. The
// corpmap is applied to the original address, never the mailmap target.
func (m *Map) ResolveOrganization(raw string) Organization {
	a, ok := ParseAddress(raw)
	if !ok {
		return UnknownOrganization
	}
	return m.corp.Match(a.Domain())
}

// Resolve applies relay override rules and resolves both dimensions. When
// override is non-empty it replaces raw entirely. A relay address without an
// override stays visible as a Relay identity.
func (m *Map) Resolve(raw, override string) (Identity, Organization) {
	if override != "" {
		return m.ResolveIdentity(override), m.ResolveOrganization(override)
	}
	return m.ResolveIdentity(raw), m.ResolveOrganization(raw)
}
