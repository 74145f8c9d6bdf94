// Package service composes identity resolution, scoring and the stats store
// into the operations used by the CLI and the inspector API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	eventqueue "github.com/okian/revstat/internal/adapters/mq/queue"
	workerpool "github.com/okian/revstat/internal/adapters/mq/worker"
	"github.com/okian/revstat/internal/adapters/repository"
	"github.com/okian/revstat/internal/domain/dedupe"
	"github.com/okian/revstat/internal/domain/identity"
	"github.com/okian/revstat/internal/domain/model"
	"github.com/okian/revstat/internal/domain/resolver"
	"github.com/okian/revstat/internal/domain/scoring"
	"github.com/okian/revstat/internal/domain/selfcheck"
	"github.com/okian/revstat/internal/domain/types"
	"github.com/okian/revstat/pkg/logger"
	"github.com/okian/revstat/pkg/metrics"
)

// Service runs release windows through the engine.
type Service struct {
	idmap *identity.Map
	store repository.Store

	workerCount         int
	queueSize           int
	selfReviewThreshold int
	sampleSize          int
	dedupeMaxIDs        int
	gitdm               selfcheck.Gitdm

	logger logger.Logger
}

// New constructs a Service.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:         runtime.NumCPU(),
		queueSize:           64,
		selfReviewThreshold: 5,
		sampleSize:          200,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// LoadWindow reads a window document from disk.
func LoadWindow(path string) (model.Window, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Window{}, fmt.Errorf("read window: %w", err)
	}
	var w model.Window
	if err := json.Unmarshal(data, &w); err != nil {
		return model.Window{}, fmt.Errorf("%w: %s: %w", ErrInvalidWindow, path, err)
	}
	return w, validateWindow(w)
}

func validateWindow(w model.Window) error {
	if w.Producer == "" || w.Release == "" {
		return fmt.Errorf("%w: producer and release are required", ErrInvalidWindow)
	}
	return nil
}

// Score dedupes, resolves and aggregates one window. Nothing is persisted.
func (s *Service) Score(ctx context.Context, w model.Window) (scoring.Result, error) {
	if err := validateWindow(w); err != nil {
		return scoring.Result{}, err
	}

	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeMaxIDs))
	events, dropped := dedupe.Filter(ctx, seen, w.Events)

	resolved, err := resolver.New(s.idmap, resolver.WithLogger(s.logger)).ResolveWindow(ctx, events)
	if err != nil {
		return scoring.Result{}, err
	}

	agg := scoring.New()
	agg.NoteDuplicates(dropped)
	agg.AddAll(resolved)
	res := agg.Result()

	metrics.UpdateReviewCoverage(w.Producer, w.Release, res.Summary.ReviewCoverage)
	s.logger.Info(ctx, "window scored",
		logger.String("producer", w.Producer),
		logger.String("release", w.Release),
		logger.Int("events", len(w.Events)),
		logger.Int("duplicates", dropped),
		logger.Int("remembered_ids", int(seen.Size())),
		logger.Float64("review_coverage", res.Summary.ReviewCoverage))
	return res, nil
}

// Commit scores a window and merges it into the stats store.
func (s *Service) Commit(ctx context.Context, w model.Window) (scoring.Result, error) {
	if s.store == nil {
		return scoring.Result{}, ErrNoStore
	}
	res, err := s.Score(ctx, w)
	if err != nil {
		return scoring.Result{}, err
	}

	incoming := repository.DB{w.Producer: {w.Release: res}}
	err = s.store.Update(ctx, func(db repository.DB) (repository.DB, error) {
		return repository.Merge(db, incoming, w.Producer)
	})
	if err != nil {
		return scoring.Result{}, err
	}
	return res, nil
}

// Outcome is the result of one window in a batch run.
type Outcome struct {
	Source   string          `json:"source"`
	Producer string          `json:"producer"`
	Release  string          `json:"release"`
	Summary  scoring.Summary `json:"summary"`
	Err      error           `json:"-"`
}

// Run commits every job through the worker pool. Windows run in parallel;
// events inside a window never do. Outcomes are returned in source order.
func (s *Service) Run(ctx context.Context, jobs []eventqueue.Job) ([]Outcome, error) {
	size := s.queueSize
	if len(jobs) > size {
		size = len(jobs)
	}
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(size))
	for _, j := range jobs {
		if err := q.Enqueue(ctx, j); err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", j.Source, err)
		}
	}

	var mu sync.Mutex
	outcomes := make([]Outcome, 0, len(jobs))
	proc := workerpool.ProcessorFunc(func(ctx context.Context, j eventqueue.Job) error {
		res, err := s.Commit(ctx, j.Window)
		mu.Lock()
		outcomes = append(outcomes, Outcome{
			Source:   j.Source,
			Producer: j.Window.Producer,
			Release:  j.Window.Release,
			Summary:  res.Summary,
			Err:      err,
		})
		mu.Unlock()
		return err
	})

	workers := s.workerCount
	if workers > len(jobs) {
		workers = len(jobs)
	}
	pool := workerpool.NewPool(workers, q, proc)
	s.logger.Info(ctx, "running windows",
		logger.Int("windows", len(jobs)),
		logger.Int("workers", pool.Size()))
	pool.Start(ctx)
	err := pool.Wait(ctx)
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	if err != nil {
		// Workers still inside a window finish it before Run returns.
		if serr := pool.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			s.logger.Error(ctx, "worker pool shutdown", logger.Error(serr))
		}
		return nil, err
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Source < outcomes[j].Source })
	return outcomes, nil
}

// Merge folds an externally produced stats document into the store.
func (s *Service) Merge(ctx context.Context, incoming repository.DB) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.Update(ctx, func(db repository.DB) (repository.DB, error) {
		return repository.MergeAll(db, incoming)
	})
}

// Check runs a self-check over a sample of the window. It never writes.
func (s *Service) Check(ctx context.Context, w model.Window) (selfcheck.Report, error) {
	r := resolver.New(s.idmap, resolver.WithLogger(s.logger), resolver.WithMetrics(false))
	return selfcheck.Run(ctx, r, w,
		selfcheck.WithSelfReviewThreshold(s.selfReviewThreshold),
		selfcheck.WithSampleSize(s.sampleSize),
		selfcheck.WithGitdm(s.gitdm))
}

// TopN returns the leading entries of a sheet.
func (s *Service) TopN(ctx context.Context, q repository.Query) (types.Ranking, error) {
	db, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return db.TopN(q)
}

// Rank returns the ranked entry of one key.
func (s *Service) Rank(ctx context.Context, q repository.Query, key string) (types.Entry, error) {
	db, err := s.load(ctx)
	if err != nil {
		return types.Entry{}, err
	}
	return db.Rank(q, key)
}

// Stats describes the stats document.
func (s *Service) Stats(ctx context.Context) (repository.Stats, error) {
	if s.store == nil {
		return repository.Stats{}, ErrNoStore
	}
	return s.store.Stats(ctx)
}

func (s *Service) load(ctx context.Context) (repository.DB, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Load(ctx)
}
