package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/okian/revstat/pkg/logger"
	"github.com/okian/revstat/pkg/metrics"
)

// FileStore keeps the StatsDB as a JSON document on disk. Writers serialize
// through an advisory lock file next to the document.
type FileStore struct {
	path        string
	lockTimeout time.Duration
	retryDelay  time.Duration
	validate    bool
	log         logger.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store for the document at path.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:        path,
		lockTimeout: defaultLockTimeout,
		retryDelay:  defaultRetryDelay,
		validate:    true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.Named("store")
	return s
}

// Path returns the document path.
func (s *FileStore) Path() string { return s.path }

// Load reads and validates the document.
func (s *FileStore) Load(_ context.Context) (DB, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return DB{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return Decode(data, s.validate)
}

// Decode parses a stats document, optionally validating it first. Empty
// input decodes to an empty DB.
func Decode(data []byte, validate bool) (DB, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return DB{}, nil
	}
	if validate {
		if err := validateDocument(data); err != nil {
			return nil, err
		}
	}
	var db DB
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if db == nil {
		db = DB{}
	}
	return db, nil
}

// Encode renders db in its stable on-disk form.
func Encode(db DB) ([]byte, error) {
	if db == nil {
		db = DB{}
	}
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode stats document: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes db atomically: a temp file in the same directory is renamed
// over the document. Save does not take the lock; use Update for that.
func (s *FileStore) Save(_ context.Context, db DB) error {
	data, err := Encode(db)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Update runs fn under an exclusive lock. fn receives a private copy of the
// current document and returns the document to store.
func (s *FileStore) Update(ctx context.Context, fn func(DB) (DB, error)) error {
	lock := flock.New(s.path + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	start := time.Now()
	locked, err := lock.TryLockContext(lockCtx, s.retryDelay)
	metrics.RecordStoreLockWait(float64(time.Since(start).Milliseconds()))
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s after %s", ErrLockTimeout, s.path, s.lockTimeout)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.log.Warn(ctx, "failed to release stats lock", logger.Error(err))
		}
	}()

	cur, err := s.Load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(cur.Clone())
	if err != nil {
		return err
	}
	if err := s.Save(ctx, next); err != nil {
		return err
	}

	s.log.Debug(ctx, "stats document updated", logger.String("path", s.path))
	return nil
}

// Stats reports the document's size and shape.
func (s *FileStore) Stats(ctx context.Context) (Stats, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{Path: s.path, Producers: len(db), Releases: make(map[string][]string, len(db))}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	for _, p := range db.Producers() {
		st.Releases[p] = db.Releases(p)
		st.Windows += len(st.Releases[p])
	}
	return st, nil
}
