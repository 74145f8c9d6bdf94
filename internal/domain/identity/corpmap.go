package identity

import (
	"fmt"
	"strings"
)

// Affiliation is one corpmap rule.
type Affiliation struct {
	Fragment     string
	Organization Organization
}

// CorpMap attributes address domains to organizations.
//
// Fragments only ever match the domain part of an address, and the longest
// matching fragment wins. Equal-length matches are settled by declaration
// order according to the configured TieBreak.
type CorpMap struct {
	rules    []Affiliation
	tieBreak TieBreak
}

// NewCorpMap builds a CorpMap from [fragment, organization] pairs. A leading
// '@' on a fragment is accepted and dropped.
func NewCorpMap(pairs [][]string, tb TieBreak) (*CorpMap, error) {
	if tb == "" {
		tb = TieBreakFirst
	}
	if tb != TieBreakFirst && tb != TieBreakLast {
		return nil, fmt.Errorf("%w: unknown tie break %q", ErrConfig, tb)
	}

	cm := &CorpMap{rules: make([]Affiliation, 0, len(pairs)), tieBreak: tb}
	seen := make(map[string]int, len(pairs))

	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: corpmap entry %d: want [fragment, organization], got %d fields", ErrConfig, i, len(pair))
		}
		frag := strings.ToLower(strings.TrimSpace(pair[0]))
		frag = strings.TrimPrefix(frag, "@")
		if frag == "" || strings.ContainsAny(frag, "@<> \t\r\n") {
			return nil, fmt.Errorf("%w: corpmap entry %d: %q is not a domain fragment", ErrConfig, i, pair[0])
		}
		org := strings.TrimSpace(pair[1])
		if org == "" {
			return nil, fmt.Errorf("%w: corpmap entry %d: empty organization for %q", ErrConfig, i, frag)
		}
		if prev, dup := seen[frag]; dup {
			return nil, fmt.Errorf("%w: corpmap entry %d: fragment %q already declared by entry %d", ErrConfig, i, frag, prev)
		}
		seen[frag] = i
		cm.rules = append(cm.rules, Affiliation{Fragment: frag, Organization: Organization(org)})
	}
	return cm, nil
}

// Match returns the organization for a domain, or UnknownOrganization.
func (cm *CorpMap) Match(domain string) Organization {
	rule, ok := cm.Rule(domain)
	if !ok {
		return UnknownOrganization
	}
	return rule.Organization
}

// Rule returns the rule that attributes domain, if any.
func (cm *CorpMap) Rule(domain string) (Affiliation, bool) {
	if cm == nil || domain == "" {
		return Affiliation{}, false
	}
	domain = strings.ToLower(domain)

	best := -1
	for i, r := range cm.rules {
		if !strings.Contains(domain, r.Fragment) {
			continue
		}
		switch {
		case best < 0:
			best = i
		case len(r.Fragment) > len(cm.rules[best].Fragment):
			best = i
		case len(r.Fragment) == len(cm.rules[best].Fragment) && cm.tieBreak == TieBreakLast:
			best = i
		}
	}
	if best < 0 {
		return Affiliation{}, false
	}
	return cm.rules[best], true
}

// Len returns the number of rules.
func (cm *CorpMap) Len() int {
	if cm == nil {
		return 0
	}
	return len(cm.rules)
}

// Rules returns the rules in declaration order.
func (cm *CorpMap) Rules() []Affiliation {
	if cm == nil {
		return nil
	}
	out := make([]Affiliation, len(cm.rules))
	copy(out, cm.rules)
	return out
}
