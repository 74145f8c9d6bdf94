package identity

import (
	"fmt"
	"sort"
)

// Alias is one mailmap rule: an address and the canonical identity it maps to.
type Alias struct {
	From string
	To   Identity
}

// MailMap maps normalized addresses onto canonical identities.
type MailMap struct {
	entries map[string]Identity
}

// NewMailMap builds a MailMap from [address, "Name <email>"] pairs.
//
// Keys are normalized before the duplicate check, so "A@X.org" and
// "a@x.org" collide. With transitive set, a target that is itself a key is
// followed to the end of the chain.
func NewMailMap(pairs [][]string, transitive bool) (*MailMap, error) {
	mm := &MailMap{entries: make(map[string]Identity, len(pairs))}
	seen := make(map[string]int, len(pairs))

	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: mailmap entry %d: want [address, target], got %d fields", ErrConfig, i, len(pair))
		}
		from, ok := ParseAddress(pair[0])
		if !ok {
			return nil, fmt.Errorf("%w: mailmap entry %d: key %q is not an address", ErrConfig, i, pair[0])
		}
		to, ok := ParseAddress(pair[1])
		if !ok {
			return nil, fmt.Errorf("%w: mailmap entry %d: target %q is not an address", ErrConfig, i, pair[1])
		}
		if prev, dup := seen[from.Email]; dup {
			return nil, fmt.Errorf("%w: mailmap entry %d: key %q already mapped by entry %d", ErrConfig, i, from.Email, prev)
		}
		seen[from.Email] = i
		mm.entries[from.Email] = Identity{Name: to.Name, Email: to.Email, Mapped: true}
	}

	if transitive {
		if err := mm.collapse(); err != nil {
			return nil, err
		}
	}
	return mm, nil
}

// collapse rewrites every entry to the end of its alias chain.
func (mm *MailMap) collapse() error {
	resolved := make(map[string]Identity, len(mm.entries))
	for _, key := range mm.keys() {
		cur := mm.entries[key]
		visited := map[string]bool{key: true}
		for {
			next, ok := mm.entries[cur.Email]
			if !ok {
				break
			}
			if next.Email == cur.Email {
				if next.Name != "" {
					cur.Name = next.Name
				}
				break
			}
			if visited[cur.Email] {
				return fmt.Errorf("%w: mailmap cycle through %q", ErrConfig, cur.Email)
			}
			visited[cur.Email] = true
			if next.Name == "" {
				next.Name = cur.Name
			}
			cur = next
		}
		resolved[key] = cur
	}
	mm.entries = resolved
	return nil
}

// Lookup returns the canonical identity for a normalized address.
func (mm *MailMap) Lookup(email string) (Identity, bool) {
	if mm == nil {
		return Identity{}, false
	}
	id, ok := mm.entries[email]
	return id, ok
}

// Len returns the number of rules.
func (mm *MailMap) Len() int {
	if mm == nil {
		return 0
	}
	return len(mm.entries)
}

// Aliases returns every rule sorted by source address.
func (mm *MailMap) Aliases() []Alias {
	out := make([]Alias, 0, mm.Len())
	for _, k := range mm.keys() {
		out = append(out, Alias{From: k, To: mm.entries[k]})
	}
	return out
}

func (mm *MailMap) keys() []string {
	if mm == nil {
		return nil
	}
	keys := make([]string, 0, len(mm.entries))
	for k := range mm.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
