// Package repository persists release-keyed score sheets and serves ranking
// views over them.
package repository

import (
	"context"
	"sort"

	"github.com/okian/revstat/internal/domain/scoring"
)

// Releases maps a release label to its scored window.
type Releases map[string]scoring.Result

// DB is the StatsDB document: producer -> release -> window.
type DB map[string]Releases

// Clone returns a deep copy of db. The zero DB clones to an empty one.
func (db DB) Clone() DB {
	out := make(DB, len(db))
	for producer, releases := range db {
		rc := make(Releases, len(releases))
		for release, w := range releases {
			rc[release] = w.Clone()
		}
		out[producer] = rc
	}
	return out
}

// Window returns the scored window of a producer and release.
func (db DB) Window(producer, release string) (scoring.Result, bool) {
	releases, ok := db[producer]
	if !ok {
		return scoring.Result{}, false
	}
	w, ok := releases[release]
	return w, ok
}

// Producers returns the producer names, sorted.
func (db DB) Producers() []string {
	out := make([]string, 0, len(db))
	for p := range db {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Releases returns the release labels of a producer, sorted.
func (db DB) Releases(producer string) []string {
	out := make([]string, 0, len(db[producer]))
	for r := range db[producer] {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Put returns a copy of db with the window stored under producer/release,
// replacing whatever was there.
func (db DB) Put(producer, release string, w scoring.Result) DB {
	out := db.Clone()
	if out[producer] == nil {
		out[producer] = make(Releases)
	}
	out[producer][release] = w.Clone()
	return out
}

// Stats describes a stats document.
type Stats struct {
	Path      string              `json:"path"`
	SizeBytes int64               `json:"size_bytes"`
	Producers int                 `json:"producers"`
	Windows   int                 `json:"windows"`
	Releases  map[string][]string `json:"releases"`
}

// Store provides access to the StatsDB document.
type Store interface {
	// Load returns the current document. A missing document is empty.
	Load(ctx context.Context) (DB, error)

	// Update runs a read-modify-write cycle under an exclusive lock. The
	// document is left untouched when fn fails.
	Update(ctx context.Context, fn func(DB) (DB, error)) error

	// Stats reports document size and shape.
	Stats(ctx context.Context) (Stats, error)
}
