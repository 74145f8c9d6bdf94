package repository

import "time"

const (
	defaultLockTimeout = 10 * time.Second
	defaultRetryDelay  = 50 * time.Millisecond
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithLockTimeout bounds how long Update waits for the document lock.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *FileStore) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// WithLockRetryDelay sets the polling interval while waiting for the lock.
func WithLockRetryDelay(delay time.Duration) Option {
	return func(s *FileStore) {
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// WithSchemaValidation toggles JSON schema validation on load.
func WithSchemaValidation(enabled bool) Option {
	return func(s *FileStore) {
		s.validate = enabled
	}
}
