// Package selfcheck runs the resolver and aggregator over a sample of a
// window and reports mapping gaps for a human to fix.
package selfcheck

import (
	"context"
	"sort"
	"strings"

	"github.com/okian/revstat/internal/domain/identity"
	"github.com/okian/revstat/internal/domain/model"
	"github.com/okian/revstat/internal/domain/resolver"
	"github.com/okian/revstat/internal/domain/scoring"
)

const (
	defaultThreshold  = 5
	defaultSampleSize = 200
)

// Option configures a check.
type Option func(*settings)

type settings struct {
	threshold  int
	sampleSize int
	gitdm      Gitdm
}

// WithSelfReviewThreshold sets the self-review count above which an
// identity is reported.
func WithSelfReviewThreshold(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.threshold = n
		}
	}
}

// WithSampleSize limits the check to the first n subjects by subject ID.
// Zero or negative checks every subject.
func WithSampleSize(n int) Option {
	return func(s *settings) {
		s.sampleSize = n
	}
}

// WithGitdm sets a gitdm table used to suggest organizations for addresses
// the corpmap does not attribute.
func WithGitdm(g Gitdm) Option {
	return func(s *settings) {
		s.gitdm = g
	}
}

// Finding is one reported address or identity with its event count.
type Finding struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// Suggestion groups unmapped addresses that share a display name and are
// probably one person.
type Suggestion struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
}

// RuleUse is a mailmap alias or corpmap rule that matched sampled events.
type RuleUse struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Report is the advisory output of a check.
type Report struct {
	Producer         string           `json:"producer"`
	Release          string           `json:"release"`
	Subjects         int              `json:"subjects"`
	SampledSubjects  int              `json:"sampled_subjects"`
	Events           int              `json:"events"`
	Unmatched        []Finding        `json:"unmatched"`
	UnknownOrgs      []Finding        `json:"unknown_organizations"`
	SelfReviewers    []Finding        `json:"self_reviewers"`
	UnremappedRelays []Finding        `json:"unremapped_relays"`
	NoName           []Finding        `json:"no_name"`
	Suggestions      []Suggestion     `json:"mailmap_suggestions"`
	CorpSuggestions  []CorpSuggestion `json:"corpmap_suggestions"`
	AliasesUsed      []RuleUse        `json:"mailmap_aliases_used"`
	RulesUsed        []RuleUse        `json:"corpmap_rules_used"`
	Summary          scoring.Summary  `json:"summary"`
	Threshold        int              `json:"self_review_threshold"`
}

// Clean reports whether the check found nothing to fix.
func (r Report) Clean() bool {
	return len(r.Unmatched) == 0 && len(r.UnknownOrgs) == 0 && len(r.SelfReviewers) == 0 &&
		len(r.UnremappedRelays) == 0 && len(r.NoName) == 0 && len(r.Suggestions) == 0
}

// Run checks a sample of the window. It reads its inputs only; the resolver
// should be built with metrics disabled so a check leaves no trace.
func Run(ctx context.Context, r *resolver.Resolver, w model.Window, opts ...Option) (Report, error) {
	s := settings{threshold: defaultThreshold, sampleSize: defaultSampleSize}
	for _, opt := range opts {
		opt(&s)
	}

	events, total, sampled := sample(w.Events, s.sampleSize)
	resolved, err := r.ResolveWindow(ctx, events)
	if err != nil {
		return Report{}, err
	}

	agg := scoring.New(scoring.WithMetrics(false))
	agg.AddAll(resolved)

	rep := Report{
		Producer:        w.Producer,
		Release:         w.Release,
		Subjects:        total,
		SampledSubjects: sampled,
		Events:          len(events),
		Summary:         agg.Result().Summary,
		Threshold:       s.threshold,
	}

	unmatched := counter{}
	unknown := counter{}
	selfReviews := counter{}
	relays := counter{}
	noName := counter{}
	aliasHits := counter{}
	ruleHits := counter{}
	idmap := r.Map()
	byName := map[string]map[string]struct{}{}
	displayName := map[string]string{}

	for _, re := range resolved {
		raw := re.RawAddress
		if re.RelayOverride != "" {
			raw = re.RelayOverride
		}
		addr, ok := identity.ParseAddress(raw)

		switch {
		case re.Identity.IsUnmatched():
			unmatched.add(strings.TrimSpace(raw))
		case re.Identity.Relay:
			relays.add(re.Identity.Key())
		}
		if ok && re.Organization.IsUnknown() {
			unknown.add(addr.Email)
		}
		if ok && addr.Name == "" && !re.Identity.Mapped {
			noName.add(addr.Email)
		}
		if ok && re.Identity.Mapped {
			aliasHits.add(addr.Email)
		}
		if ok && !re.Organization.IsUnknown() {
			if rule, hit := idmap.CorpMap().Rule(addr.Domain()); hit {
				ruleHits.add(rule.Fragment)
			}
		}
		if re.SelfReview {
			selfReviews.add(re.Identity.Key())
		}

		if ok && !re.Identity.Mapped && !re.Identity.Relay && !re.Identity.Bot && re.Identity.Name != "" {
			fold := strings.ToLower(re.Identity.Name)
			if byName[fold] == nil {
				byName[fold] = map[string]struct{}{}
			}
			byName[fold][re.Identity.Key()] = struct{}{}
			if cur, seen := displayName[fold]; !seen || re.Identity.Name < cur {
				displayName[fold] = re.Identity.Name
			}
		}
	}

	rep.Unmatched = unmatched.findings(0)
	rep.UnknownOrgs = unknown.findings(0)
	rep.SelfReviewers = selfReviews.findings(s.threshold)
	rep.UnremappedRelays = relays.findings(0)
	rep.NoName = noName.findings(0)
	rep.Suggestions = suggestions(byName, displayName)
	rep.CorpSuggestions = corpSuggestions(rep.UnknownOrgs, s.gitdm)

	for _, a := range idmap.MailMap().Aliases() {
		if n := aliasHits[a.From]; n > 0 {
			rep.AliasesUsed = append(rep.AliasesUsed, RuleUse{From: a.From, To: a.To.String(), Count: n})
		}
	}
	for _, rule := range idmap.CorpMap().Rules() {
		if n := ruleHits[rule.Fragment]; n > 0 {
			rep.RulesUsed = append(rep.RulesUsed, RuleUse{From: rule.Fragment, To: string(rule.Organization), Count: n})
		}
	}
	return rep, nil
}

// sample keeps the events of the first n subjects in subject ID order.
// Events without a subject are dropped from the sample.
func sample(events []model.Event, n int) ([]model.Event, int, int) {
	set := map[string]struct{}{}
	for _, ev := range events {
		if ev.SubjectID != "" {
			set[ev.SubjectID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}

	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if _, ok := keep[ev.SubjectID]; ok {
			out = append(out, ev)
		}
	}
	return out, len(set), len(ids)
}

type counter map[string]int

func (c counter) add(key string) {
	if key != "" {
		c[key]++
	}
}

// findings returns entries whose count exceeds above, most frequent first.
func (c counter) findings(above int) []Finding {
	out := make([]Finding, 0, len(c))
	for k, n := range c {
		if n > above {
			out = append(out, Finding{Subject: k, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

func suggestions(byName map[string]map[string]struct{}, display map[string]string) []Suggestion {
	var out []Suggestion
	for fold, keys := range byName {
		if len(keys) < 2 {
			continue
		}
		addrs := make([]string, 0, len(keys))
		for k := range keys {
			addrs = append(addrs, k)
		}
		sort.Strings(addrs)
		out = append(out, Suggestion{Name: display[fold], Addresses: addrs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
