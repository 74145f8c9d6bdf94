package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/revstat/internal/domain/scoring"
	"github.com/okian/revstat/internal/domain/types"
)

// Sheet names.
const (
	SheetIndividual = "individual"
	SheetCorporate  = "corporate"
)

// Rate periods. Counts are divided by the window span so that windows of
// different length compare.
const (
	PerDay  = "day"
	PerWeek = "week"
)

// Query selects a ranked view of one score sheet.
type Query struct {
	Producer string
	Release  string
	Sheet    string // individual (default) or corporate
	By       string // metric name, positive by default
	Limit    int    // 0 means no limit
	Per      string // empty for totals, day or week for rates
}

func (q Query) normalized() Query {
	if q.Sheet == "" {
		q.Sheet = SheetIndividual
	}
	if q.By == "" {
		q.By = scoring.MetricPositive
	}
	q.Sheet = strings.ToLower(q.Sheet)
	q.By = strings.ToLower(q.By)
	q.Per = strings.ToLower(q.Per)
	return q
}

func (db DB) sheet(q Query) (scoring.Sheet, scoring.Summary, error) {
	w, ok := db.Window(q.Producer, q.Release)
	if !ok {
		return nil, scoring.Summary{}, fmt.Errorf("%w: window %s/%s", ErrNotFound, q.Producer, q.Release)
	}
	switch q.Sheet {
	case SheetIndividual:
		return w.Individual, w.Summary, nil
	case SheetCorporate:
		return w.Corporate, w.Summary, nil
	}
	return nil, scoring.Summary{}, fmt.Errorf("%w: %q", ErrInvalidSheet, q.Sheet)
}

// divisor returns what count metrics are divided by for q.Per. Ratios are
// never divided.
func divisor(q Query, sum scoring.Summary) (float64, error) {
	if q.By == scoring.MetricCrossCompany {
		return 1, nil
	}
	switch q.Per {
	case "":
		return 1, nil
	case PerDay, PerWeek:
		days := sum.Days()
		if days == 0 {
			return 0, fmt.Errorf("%w: window %s/%s has no event span", ErrInvalidPeriod, q.Producer, q.Release)
		}
		if q.Per == PerWeek {
			return days / 7, nil
		}
		return days, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, q.Per)
}

// Ranked returns every entry of the selected sheet ordered by the metric
// desc, then key asc. Equal values share a rank and the next value takes the
// following rank.
func (db DB) Ranked(q Query) (types.Ranking, error) {
	q = q.normalized()
	sheet, sum, err := db.sheet(q)
	if err != nil {
		return nil, err
	}
	if _, ok := (scoring.Entry{}).Metric(q.By); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, q.By)
	}
	div, err := divisor(q, sum)
	if err != nil {
		return nil, err
	}

	out := make(types.Ranking, 0, len(sheet))
	for key, e := range sheet {
		v, _ := e.Metric(q.By)
		out = append(out, types.Entry{Key: key, Name: e.Name, Value: v / div})
	}
	sortEntries(out)
	assignRanksWithTies(out)
	return out, nil
}

// TopN returns the first q.Limit entries of the ranked sheet.
func (db DB) TopN(q Query) (types.Ranking, error) {
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, q.Limit)
	}
	out, err := db.Ranked(q)
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Rank returns the ranked entry of one key.
func (db DB) Rank(q Query, key string) (types.Entry, error) {
	out, err := db.Ranked(q)
	if err != nil {
		return types.Entry{}, err
	}
	for _, e := range out {
		if e.Key == key {
			return e, nil
		}
	}
	return types.Entry{}, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// sortEntries orders by value desc, then key asc.
func sortEntries(entries types.Ranking) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Key < entries[j].Key
	})
}

// assignRanksWithTies gives equal values the same rank. Ranks are dense.
func assignRanksWithTies(entries types.Ranking) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Value != entries[i-1].Value {
			rank++
		}
		entries[i].Rank = rank
	}
}
