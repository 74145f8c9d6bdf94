package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/okian/revstat/internal/domain/scoring"
	"github.com/okian/revstat/pkg/metrics"
)

// Merge folds incoming's section for producer into existing and returns the
// result. Neither input is modified.
//
// Rules per release:
//   - absent or empty in existing: incoming is stored;
//   - equal content: no-op, so re-merging the same output never double counts;
//   - different content: ErrMergeConflict.
//
// Incoming sections for any other producer are rejected with
// ErrProducerMismatch.
func Merge(existing, incoming DB, producer string) (DB, error) {
	for p := range incoming {
		if p != producer {
			return nil, fmt.Errorf("%w: incoming section %q, merging as %q", ErrProducerMismatch, p, producer)
		}
	}
	return mergeProducer(existing.Clone(), incoming, producer)
}

// MergeAll merges every producer section of incoming.
func MergeAll(existing, incoming DB) (DB, error) {
	out := existing.Clone()
	for _, producer := range incoming.Producers() {
		var err error
		if out, err = mergeProducer(out, incoming, producer); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// mergeProducer mutates out, which must be a private copy.
func mergeProducer(out, incoming DB, producer string) (DB, error) {
	releases := incoming[producer]
	if len(releases) == 0 {
		return out, nil
	}
	if out[producer] == nil {
		out[producer] = make(Releases, len(releases))
	}

	for _, release := range incoming.Releases(producer) {
		next := releases[release]
		cur, ok := out[producer][release]
		if !ok || cur.Empty() {
			out[producer][release] = next.Clone()
			metrics.RecordMerge("applied")
			continue
		}

		same, err := equalContent(cur, next)
		if err != nil {
			return nil, err
		}
		if same {
			metrics.RecordMerge("noop")
			continue
		}
		metrics.RecordMergeConflict()
		return nil, fmt.Errorf("%w: %s/%s already holds different content", ErrMergeConflict, producer, release)
	}
	return out, nil
}

// equalContent compares windows by their canonical JSON encoding.
// encoding/json sorts map keys, which makes the encoding canonical.
func equalContent(a, b scoring.Result) (bool, error) {
	ab, err := json.Marshal(normalize(a))
	if err != nil {
		return false, fmt.Errorf("encode window: %w", err)
	}
	bb, err := json.Marshal(normalize(b))
	if err != nil {
		return false, fmt.Errorf("encode window: %w", err)
	}
	return bytes.Equal(ab, bb), nil
}

// normalize treats a nil sheet like an empty one.
func normalize(r scoring.Result) scoring.Result {
	if r.Individual == nil {
		r.Individual = scoring.Sheet{}
	}
	if r.Corporate == nil {
		r.Corporate = scoring.Sheet{}
	}
	return r
}
