package repository_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/revstat/internal/adapters/repository"
	"github.com/okian/revstat/internal/domain/scoring"
	"github.com/okian/revstat/internal/domain/types"
	"github.com/okian/revstat/pkg/logger"
)

var spanStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func keys(r types.Ranking) []string {
	out := make([]string, len(r))
	for i, e := range r {
		out[i] = e.Key
	}
	return out
}

func window(positive int64) scoring.Result {
	return scoring.Result{
		Individual: scoring.Sheet{
			"alice@corp.example": {Name: "Alice", Score: scoring.Score{Positive: positive}},
			"bob@corp.example":   {Name: "Bob", Score: scoring.Score{Positive: 2, Negative: 1}},
			"carol@corp.example": {Name: "Carol", Score: scoring.Score{Positive: 2}},
		},
		Corporate: scoring.Sheet{
			"Corp": {Name: "Corp", Score: scoring.Score{Positive: positive + 4, Negative: 1}},
		},
		Summary: scoring.Summary{
			Events: 10, TerminalSubjects: 2, CoveredSubjects: 1, ReviewCoverage: 0.5,
			FirstEvent: spanStart, LastEvent: spanStart.AddDate(0, 0, 14),
		},
	}
}

func TestMerge(t *testing.T) {
	mail := repository.DB{"mail": {"2024Q1": window(3)}}

	t.Run("different producers coexist", func(t *testing.T) {
		git := repository.DB{"git": {"2024Q1": window(5)}}

		merged, err := repository.Merge(mail, git, "git")
		require.NoError(t, err)
		assert.Equal(t, []string{"git", "mail"}, merged.Producers())
		assert.Len(t, mail, 1, "existing must not be mutated")
	})

	t.Run("same producer and release with different content conflicts", func(t *testing.T) {
		_, err := repository.Merge(mail, repository.DB{"mail": {"2024Q1": window(4)}}, "mail")
		require.Error(t, err)
		assert.True(t, errors.Is(err, repository.ErrMergeConflict))
	})

	t.Run("merging identical output twice is a no-op", func(t *testing.T) {
		incoming := repository.DB{"mail": {"2024Q2": window(1)}}

		once, err := repository.Merge(mail, incoming, "mail")
		require.NoError(t, err)
		twice, err := repository.Merge(once, incoming, "mail")
		require.NoError(t, err)

		assert.Equal(t, once, twice)
		w, ok := twice.Window("mail", "2024Q2")
		require.True(t, ok)
		assert.EqualValues(t, 1, w.Individual["alice@corp.example"].Score.Positive)
	})

	t.Run("an empty existing window is filled", func(t *testing.T) {
		withEmpty := repository.DB{"mail": {"2024Q1": scoring.Result{}}}
		merged, err := repository.Merge(withEmpty, mail, "mail")
		require.NoError(t, err)
		w, _ := merged.Window("mail", "2024Q1")
		assert.False(t, w.Empty())
	})

	t.Run("nil and empty sheets compare equal", func(t *testing.T) {
		a := repository.DB{"mail": {"r": {Summary: scoring.Summary{Events: 1}}}}
		b := repository.DB{"mail": {"r": {Individual: scoring.Sheet{}, Corporate: scoring.Sheet{}, Summary: scoring.Summary{Events: 1}}}}
		_, err := repository.Merge(a, b, "mail")
		assert.NoError(t, err)
	})

	t.Run("foreign producer sections are rejected", func(t *testing.T) {
		_, err := repository.Merge(mail, repository.DB{"git": {"2024Q1": window(1)}}, "mail")
		assert.True(t, errors.Is(err, repository.ErrProducerMismatch))
	})

	t.Run("merge all takes every producer", func(t *testing.T) {
		incoming := repository.DB{"git": {"2024Q1": window(5)}, "mail": {"2024Q1": window(3)}}
		merged, err := repository.MergeAll(mail, incoming)
		require.NoError(t, err)
		assert.Len(t, merged, 2)

		_, err = repository.MergeAll(mail, repository.DB{"mail": {"2024Q1": window(9)}})
		assert.True(t, errors.Is(err, repository.ErrMergeConflict))
	})
}

func TestRanking(t *testing.T) {
	db := repository.DB{"mail": {"2024Q1": window(5)}}
	q := repository.Query{Producer: "mail", Release: "2024Q1"}

	t.Run("ranked by positive with ties", func(t *testing.T) {
		out, err := db.Ranked(q)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice@corp.example", "bob@corp.example", "carol@corp.example"}, keys(out))
		assert.Equal(t, 1, out[0].Rank)
		assert.Equal(t, 2, out[1].Rank)
		assert.Equal(t, 2, out[2].Rank)
	})

	t.Run("ranked by another metric", func(t *testing.T) {
		q := q
		q.By = "negative"
		out, err := db.Ranked(q)
		require.NoError(t, err)
		assert.Equal(t, "bob@corp.example", out[0].Key)
	})

	t.Run("top n and corporate sheet", func(t *testing.T) {
		q := q
		q.Limit = 1
		out, err := db.TopN(q)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "Alice", out[0].Name)

		q.Sheet = "corporate"
		out, err = db.TopN(q)
		require.NoError(t, err)
		assert.Equal(t, "Corp", out[0].Key)
		assert.EqualValues(t, 9, out[0].Value)
	})

	t.Run("rank of a key", func(t *testing.T) {
		e, err := db.Rank(q, "carol@corp.example")
		require.NoError(t, err)
		assert.Equal(t, 2, e.Rank)

		_, err = db.Rank(q, "nobody@corp.example")
		assert.True(t, errors.Is(err, repository.ErrNotFound))
	})

	t.Run("rates over the window span", func(t *testing.T) {
		q := q
		q.Per = repository.PerDay
		out, err := db.Ranked(q)
		require.NoError(t, err)
		assert.Equal(t, "alice@corp.example", out[0].Key)
		assert.InDelta(t, 5.0/14.0, out[0].Value, 1e-9)

		q.Per = "Week"
		out, err = db.Ranked(q)
		require.NoError(t, err)
		assert.InDelta(t, 2.5, out[0].Value, 1e-9)

		q.By = scoring.MetricCrossCompany
		out, err = db.Ranked(q)
		require.NoError(t, err)
		assert.Zero(t, out[0].Value)
	})

	t.Run("invalid queries", func(t *testing.T) {
		noSpan := repository.DB{"mail": {"r": {Individual: scoring.Sheet{"a": {}}, Summary: scoring.Summary{Events: 1}}}}
		_, err := noSpan.Ranked(repository.Query{Producer: "mail", Release: "r", Per: repository.PerDay})
		assert.True(t, errors.Is(err, repository.ErrInvalidPeriod))

		bad := q
		bad.Per = "month"
		_, err = db.Ranked(bad)
		assert.True(t, errors.Is(err, repository.ErrInvalidPeriod))

		_, err = db.Ranked(repository.Query{Producer: "mail", Release: "missing"})
		assert.True(t, errors.Is(err, repository.ErrNotFound))

		bad = q
		bad.By = "karma"
		_, err = db.Ranked(bad)
		assert.True(t, errors.Is(err, repository.ErrInvalidMetric))

		bad = q
		bad.Sheet = "team"
		_, err = db.Ranked(bad)
		assert.True(t, errors.Is(err, repository.ErrInvalidSheet))

		bad = q
		bad.Limit = -1
		_, err = db.TopN(bad)
		assert.True(t, errors.Is(err, repository.ErrInvalidLimit))
	})
}

func newStore(t *testing.T, opts ...repository.Option) *repository.FileStore {
	t.Helper()
	require.NoError(t, logger.Init(logger.WithOutput(io.Discard)))
	return repository.NewFileStore(filepath.Join(t.TempDir(), "stats.json"), opts...)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing document loads empty", func(t *testing.T) {
		s := newStore(t)
		db, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, db)
	})

	t.Run("update round trips through disk", func(t *testing.T) {
		s := newStore(t)
		incoming := repository.DB{"mail": {"2024Q1": window(3)}}

		err := s.Update(ctx, func(db repository.DB) (repository.DB, error) {
			return repository.Merge(db, incoming, "mail")
		})
		require.NoError(t, err)

		db, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, incoming, db)

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, st.Producers)
		assert.Equal(t, 1, st.Windows)
		assert.Equal(t, []string{"2024Q1"}, st.Releases["mail"])
		assert.Positive(t, st.SizeBytes)
	})

	t.Run("failed update leaves the document untouched", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, repository.DB{"mail": {"2024Q1": window(3)}}))
		before, err := os.ReadFile(s.Path())
		require.NoError(t, err)

		err = s.Update(ctx, func(db repository.DB) (repository.DB, error) {
			return repository.Merge(db, repository.DB{"mail": {"2024Q1": window(4)}}, "mail")
		})
		assert.True(t, errors.Is(err, repository.ErrMergeConflict))

		after, err := os.ReadFile(s.Path())
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("schema violations are rejected", func(t *testing.T) {
		s := newStore(t)
		doc := `{"mail":{"2024Q1":{"individual":{"a@x":{"score":{"positive":-1,"negative":0}}}}}}`
		require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o600))

		_, err := s.Load(ctx)
		assert.True(t, errors.Is(err, repository.ErrInvalidDocument))

		unchecked := repository.NewFileStore(s.Path(), repository.WithSchemaValidation(false))
		_, err = unchecked.Load(ctx)
		assert.NoError(t, err)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, os.WriteFile(s.Path(), []byte(`{"mail": [1,2]}`), 0o600))
		_, err := s.Load(ctx)
		assert.True(t, errors.Is(err, repository.ErrInvalidDocument))
	})

	t.Run("lock timeout", func(t *testing.T) {
		s := newStore(t, repository.WithLockTimeout(100*time.Millisecond), repository.WithLockRetryDelay(10*time.Millisecond))
		held := flock.New(s.Path() + ".lock")
		locked, err := held.TryLock()
		require.NoError(t, err)
		require.True(t, locked)
		defer held.Unlock() //nolint:errcheck // test cleanup

		err = s.Update(ctx, func(db repository.DB) (repository.DB, error) { return db, nil })
		assert.True(t, errors.Is(err, repository.ErrLockTimeout))
	})

	t.Run("concurrent writers serialize", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				release := string(rune('a' + i))
				errs <- s.Update(ctx, func(db repository.DB) (repository.DB, error) {
					return repository.Merge(db, repository.DB{"mail": {release: window(int64(i))}}, "mail")
				})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		db, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, db["mail"], 8)
	})
}
