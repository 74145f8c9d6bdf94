package scoring

import (
	"strings"
	"time"
)

// Score is the signed participation score of an entity.
type Score struct {
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
}

// Net returns positive minus negative.
func (s Score) Net() int64 { return s.Positive - s.Negative }

// Counts are the raw tallies behind a Score.
type Counts struct {
	Authored         int64 `json:"authored"`
	AuthoredSubjects int64 `json:"authored_subjects"`
	Reviewed         int64 `json:"reviewed"`
	ReviewedSubjects int64 `json:"reviewed_subjects"`
	SelfReviewed     int64 `json:"self_reviewed"`
	ExcludedReviews  int64 `json:"excluded_reviews"`
	Committed        int64 `json:"committed"`
}

// Entry is one row of a ScoreSheet.
type Entry struct {
	Name              string  `json:"name"`
	Score             Score   `json:"score"`
	Counts            Counts  `json:"counts"`
	CrossCompanyRatio float64 `json:"cross_company_ratio"`
}

// Sheet maps an entity key (identity key or organization name) to its entry.
type Sheet map[string]Entry

// Clone returns a deep copy of s.
func (s Sheet) Clone() Sheet {
	if s == nil {
		return nil
	}
	out := make(Sheet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Summary holds window-level tallies and coverage ratios.
type Summary struct {
	Events                      int64   `json:"events"`
	IgnoredEvents               int64   `json:"ignored_events"`
	Subjects                    int64   `json:"subjects"`
	TerminalSubjects            int64   `json:"terminal_subjects"`
	CoveredSubjects             int64   `json:"covered_subjects"`
	CrossCompanyCoveredSubjects int64   `json:"cross_company_covered_subjects"`
	ReviewCoverage              float64 `json:"review_coverage"`
	CrossCompanyCoverage        float64 `json:"cross_company_coverage"`
	SelfReviews                 int64   `json:"self_reviews"`
	ExcludedReviews             int64   `json:"excluded_reviews"`
	UnmappedIdentities          int64   `json:"unmapped_identities"`
	UnmappedOrganizations       int64   `json:"unmapped_organizations"`
	UnremappedRelays            int64   `json:"unremapped_relays"`
	DuplicatesDropped           int64   `json:"duplicates_dropped"`

	FirstEvent time.Time `json:"first_event,omitzero"`
	LastEvent  time.Time `json:"last_event,omitzero"`
}

// Days returns the window span in days, at least one when any event was
// seen. Per-day rates across releases divide by it.
func (s Summary) Days() float64 {
	if s.FirstEvent.IsZero() {
		return 0
	}
	d := s.LastEvent.Sub(s.FirstEvent).Hours() / 24
	if d < 1 {
		return 1
	}
	return d
}

// Result is the scored output of one release window.
type Result struct {
	Individual Sheet   `json:"individual"`
	Corporate  Sheet   `json:"corporate"`
	Summary    Summary `json:"summary"`
}

// Empty reports whether the result carries no data.
func (r Result) Empty() bool {
	return len(r.Individual) == 0 && len(r.Corporate) == 0 && r.Summary == Summary{}
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	return Result{
		Individual: r.Individual.Clone(),
		Corporate:  r.Corporate.Clone(),
		Summary:    r.Summary,
	}
}

// Metric names accepted by Entry.Metric.
const (
	MetricPositive         = "positive"
	MetricNegative         = "negative"
	MetricNet              = "net"
	MetricAuthored         = "authored"
	MetricAuthoredSubjects = "authored_subjects"
	MetricReviewed         = "reviewed"
	MetricReviewedSubjects = "reviewed_subjects"
	MetricSelfReviewed     = "self_reviewed"
	MetricExcludedReviews  = "excluded_reviews"
	MetricCommitted        = "committed"
	MetricCrossCompany     = "cross_company_ratio"
)

// Metrics lists every metric name in display order.
func Metrics() []string {
	return []string{
		MetricPositive, MetricNegative, MetricNet,
		MetricAuthored, MetricAuthoredSubjects,
		MetricReviewed, MetricReviewedSubjects,
		MetricSelfReviewed, MetricExcludedReviews,
		MetricCommitted, MetricCrossCompany,
	}
}

// Metric returns the named value of the entry.
func (e Entry) Metric(name string) (float64, bool) {
	switch strings.ToLower(name) {
	case MetricPositive:
		return float64(e.Score.Positive), true
	case MetricNegative:
		return float64(e.Score.Negative), true
	case MetricNet:
		return float64(e.Score.Net()), true
	case MetricAuthored:
		return float64(e.Counts.Authored), true
	case MetricAuthoredSubjects:
		return float64(e.Counts.AuthoredSubjects), true
	case MetricReviewed:
		return float64(e.Counts.Reviewed), true
	case MetricReviewedSubjects:
		return float64(e.Counts.ReviewedSubjects), true
	case MetricSelfReviewed:
		return float64(e.Counts.SelfReviewed), true
	case MetricExcludedReviews:
		return float64(e.Counts.ExcludedReviews), true
	case MetricCommitted:
		return float64(e.Counts.Committed), true
	case MetricCrossCompany:
		return e.CrossCompanyRatio, true
	}
	return 0, false
}
