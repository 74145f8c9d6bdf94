package service

import (
	"github.com/okian/revstat/internal/adapters/repository"
	"github.com/okian/revstat/internal/domain/identity"
	"github.com/okian/revstat/internal/domain/selfcheck"
	"github.com/okian/revstat/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithIdentityMap sets the identity map every window is resolved against.
func WithIdentityMap(m *identity.Map) Option {
	return func(s *Service) {
		s.idmap = m
	}
}

// WithStore sets the stats store that scored windows are merged into.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of windows processed in parallel.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the number of windows waiting for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSelfReviewThreshold sets the self-check reporting threshold.
func WithSelfReviewThreshold(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.selfReviewThreshold = n
		}
	}
}

// WithSampleSize sets how many subjects a self-check samples.
func WithSampleSize(n int) Option {
	return func(s *Service) {
		s.sampleSize = n
	}
}

// WithDedupeMaxIDs bounds the event IDs remembered while deduping a window.
// Zero keeps every ID.
func WithDedupeMaxIDs(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.dedupeMaxIDs = n
		}
	}
}

// WithGitdm sets the gitdm table a self-check consults for unattributed
// addresses.
func WithGitdm(g selfcheck.Gitdm) Option {
	return func(s *Service) {
		s.gitdm = g
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
