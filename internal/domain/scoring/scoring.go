// Package scoring aggregates resolved events into participation score sheets
// and review coverage for one release window.
package scoring

import (
	"time"

	"github.com/okian/revstat/internal/domain/identity"
	"github.com/okian/revstat/internal/domain/model"
	"github.com/okian/revstat/pkg/metrics"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMetrics toggles Prometheus counters for scored reviews.
func WithMetrics(enabled bool) Option {
	return func(a *Aggregator) {
		a.metrics = enabled
	}
}

type accumulator struct {
	entry    Entry
	cross    int64
	authored map[string]struct{}
	reviewed map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		authored: make(map[string]struct{}),
		reviewed: make(map[string]struct{}),
	}
}

// name keeps the lexically smallest non-empty display name.
func (a *accumulator) name(n string) {
	if n == "" {
		return
	}
	if a.entry.Name == "" || n < a.entry.Name {
		a.entry.Name = n
	}
}

type subject struct {
	terminal    time.Time
	hasTerminal bool

	credited    time.Time
	hasCredited bool

	cross    time.Time
	hasCross bool
}

func earliest(cur time.Time, has bool, ts time.Time) time.Time {
	if !has || ts.Before(cur) {
		return ts
	}
	return cur
}

// Aggregator consumes ResolvedEvents of one window. The result depends only
// on the set of events added, never on their order. An Aggregator is not
// safe for concurrent use.
type Aggregator struct {
	individual map[string]*accumulator
	corporate  map[string]*accumulator
	subjects   map[string]*subject
	summary    Summary
	metrics    bool
}

// New creates an empty Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		individual: make(map[string]*accumulator),
		corporate:  make(map[string]*accumulator),
		subjects:   make(map[string]*subject),
		metrics:    true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NoteDuplicates records events dropped upstream as re-deliveries.
func (a *Aggregator) NoteDuplicates(n int) {
	if n > 0 {
		a.summary.DuplicatesDropped += int64(n)
	}
}

// AddAll adds every event.
func (a *Aggregator) AddAll(events []model.ResolvedEvent) {
	for i := range events {
		a.Add(events[i])
	}
}

// Add scores one resolved event.
func (a *Aggregator) Add(ev model.ResolvedEvent) {
	a.summary.Events++
	a.span(ev.Timestamp)
	if !ev.Role.IsReview() && !ev.Role.IsVolume() {
		a.summary.IgnoredEvents++
		return
	}

	if ev.Identity.IsUnmatched() {
		a.summary.UnmappedIdentities++
	}
	if ev.Organization.IsUnknown() {
		a.summary.UnmappedOrganizations++
	}
	if ev.Identity.Relay {
		a.summary.UnremappedRelays++
	}

	ind := a.person(ev.Identity)
	org := a.company(ev.Organization)

	var subj *subject
	if ev.SubjectID != "" {
		subj = a.subject(ev.SubjectID)
	}

	switch {
	case ev.Role == model.RoleAuthor:
		for _, acc := range [...]*accumulator{ind, org} {
			acc.entry.Counts.Authored++
			if ev.SubjectID != "" {
				acc.authored[ev.SubjectID] = struct{}{}
			}
		}

	case ev.Role == model.RoleCommitter:
		ind.entry.Counts.Committed++
		org.entry.Counts.Committed++
		if subj != nil {
			if !subj.hasTerminal || ev.Timestamp.After(subj.terminal) {
				subj.terminal = ev.Timestamp
			}
			subj.hasTerminal = true
		}

	case ev.Role.IsReview():
		a.review(ev, ind, org, subj)
	}
}

// span widens the window bounds. Zero timestamps are ignored.
func (a *Aggregator) span(ts time.Time) {
	if ts.IsZero() {
		return
	}
	ts = ts.UTC()
	if a.summary.FirstEvent.IsZero() || ts.Before(a.summary.FirstEvent) {
		a.summary.FirstEvent = ts
	}
	if ts.After(a.summary.LastEvent) {
		a.summary.LastEvent = ts
	}
}

func (a *Aggregator) review(ev model.ResolvedEvent, ind, org *accumulator, subj *subject) {
	for _, acc := range [...]*accumulator{ind, org} {
		acc.entry.Counts.Reviewed++
		if ev.SubjectID != "" {
			acc.reviewed[ev.SubjectID] = struct{}{}
		}
	}

	switch {
	case ev.SelfReview:
		for _, acc := range [...]*accumulator{ind, org} {
			acc.entry.Score.Negative++
			acc.entry.Counts.SelfReviewed++
		}
		a.summary.SelfReviews++
		if a.metrics {
			metrics.RecordSelfReview()
		}

	case ev.Identity.Bot || ev.Identity.Relay:
		for _, acc := range [...]*accumulator{ind, org} {
			acc.entry.Score.Negative++
			acc.entry.Counts.ExcludedReviews++
		}
		a.summary.ExcludedReviews++
		if a.metrics {
			metrics.RecordExcludedReview()
		}

	default:
		cross := crossCompany(ev)
		for _, acc := range [...]*accumulator{ind, org} {
			acc.entry.Score.Positive++
			if cross {
				acc.cross++
			}
		}
		if subj != nil {
			subj.credited = earliest(subj.credited, subj.hasCredited, ev.Timestamp)
			subj.hasCredited = true
			if cross {
				subj.cross = earliest(subj.cross, subj.hasCross, ev.Timestamp)
				subj.hasCross = true
			}
		}
		if a.metrics {
			metrics.RecordCreditedReview()
		}
	}
}

// crossCompany reports whether a credited review crosses organizations. Both
// sides must be attributed for the review to count.
func crossCompany(ev model.ResolvedEvent) bool {
	if !ev.Author.Known() || ev.Author.Organization.IsUnknown() || ev.Organization.IsUnknown() {
		return false
	}
	return ev.Author.Organization != ev.Organization
}

func (a *Aggregator) person(id identity.Identity) *accumulator {
	key := id.Key()
	if key == "" {
		key = identity.UnmatchedName
	}
	acc, ok := a.individual[key]
	if !ok {
		acc = newAccumulator()
		a.individual[key] = acc
	}
	acc.name(id.Name)
	return acc
}

func (a *Aggregator) company(o identity.Organization) *accumulator {
	if o.IsUnknown() {
		o = identity.UnknownOrganization
	}
	key := string(o)
	acc, ok := a.corporate[key]
	if !ok {
		acc = newAccumulator()
		a.corporate[key] = acc
	}
	acc.name(key)
	return acc
}

func (a *Aggregator) subject(id string) *subject {
	s, ok := a.subjects[id]
	if !ok {
		s = &subject{}
		a.subjects[id] = s
	}
	return s
}

// Result finalizes derived values and returns a snapshot. The Aggregator
// may keep receiving events afterwards.
func (a *Aggregator) Result() Result {
	sum := a.summary
	sum.Subjects = int64(len(a.subjects))
	for _, s := range a.subjects {
		if !s.hasTerminal {
			continue
		}
		sum.TerminalSubjects++
		if s.hasCredited && !s.credited.After(s.terminal) {
			sum.CoveredSubjects++
		}
		if s.hasCross && !s.cross.After(s.terminal) {
			sum.CrossCompanyCoveredSubjects++
		}
	}
	sum.ReviewCoverage = ratio(sum.CoveredSubjects, sum.TerminalSubjects)
	sum.CrossCompanyCoverage = ratio(sum.CrossCompanyCoveredSubjects, sum.TerminalSubjects)

	return Result{
		Individual: finalize(a.individual),
		Corporate:  finalize(a.corporate),
		Summary:    sum,
	}
}

func finalize(accs map[string]*accumulator) Sheet {
	sheet := make(Sheet, len(accs))
	for key, acc := range accs {
		e := acc.entry
		e.Counts.AuthoredSubjects = int64(len(acc.authored))
		e.Counts.ReviewedSubjects = int64(len(acc.reviewed))
		e.CrossCompanyRatio = ratio(acc.cross, e.Score.Positive)
		sheet[key] = e
	}
	return sheet
}

func ratio(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
