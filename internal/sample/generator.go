// Package sample generates synthetic release windows together with an
// identity map that covers them.
package sample

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/revstat/internal/domain/identity"
	"github.com/okian/revstat/internal/domain/model"
	"github.com/okian/revstat/pkg/logger"
)

// ErrInvalidConfig is returned for configurations that cannot produce a window.
var ErrInvalidConfig = errors.New("invalid sample config")

// Addresses every generated map knows about.
const (
	RelayAddress = "Dev List <dev@lists.example>"
	BotAddress   = "CI Bot <ci-bot@ci.example>"

	freemailDomain = "mail.example"
	homeDomain     = "home.example"
	filePerm       = 0o600
)

// namespace seeds name-based UUIDs so equal seeds give equal IDs.
var namespace = uuid.MustParse("6f1f4a3e-8c1d-4b5e-9a57-3d1c2f0e9b11")

type person struct {
	name    string
	email   string
	alias   string
	primary string
}

func (p person) address(useAlias bool) string {
	if useAlias && p.alias != "" {
		return fmt.Sprintf("%s <%s>", p.name, p.alias)
	}
	return p.primary
}

// Generate builds a window and its identity map. Output depends only on cfg.
func Generate(ctx context.Context, cfg Config) (model.Window, identity.Document, Stats, error) {
	if cfg.Producer == "" || cfg.Release == "" {
		return model.Window{}, identity.Document{}, Stats{}, fmt.Errorf("%w: producer and release are required", ErrInvalidConfig)
	}
	if cfg.Subjects < 1 || cfg.People < 2 || cfg.Orgs < 0 || cfg.MaxReviews < 0 {
		return model.Window{}, identity.Document{}, Stats{}, fmt.Errorf("%w: need at least 1 subject and 2 people", ErrInvalidConfig)
	}

	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // synthetic data
	people, doc, stats := population(r, cfg)

	w := model.Window{Producer: cfg.Producer, Release: cfg.Release}
	seq := 0
	emit := func(subject string, ev model.Event) {
		seq++
		ev.SubjectID = subject
		ev.EventID = uuid.NewSHA1(namespace, fmt.Appendf(nil, "%s/%d", subject, seq)).String()
		w.Events = append(w.Events, ev)
		stats.Events++
		if r.Float64() < cfg.DuplicateRate {
			w.Events = append(w.Events, ev)
			stats.Duplicates++
		}
	}

	for n := 0; n < cfg.Subjects; n++ {
		if err := ctx.Err(); err != nil {
			return model.Window{}, identity.Document{}, Stats{}, fmt.Errorf("generate: %w", err)
		}
		subject := uuid.NewSHA1(namespace, fmt.Appendf(nil, "%s/%s/%d", cfg.Producer, cfg.Release, n)).String()
		ts := cfg.Start.Add(time.Duration(n) * time.Hour)
		author := r.IntN(len(people))

		emit(subject, model.Event{RawAddress: people[author].primary, Role: model.RoleAuthor, Timestamp: ts})

		reviews := 0
		if cfg.MaxReviews > 0 {
			reviews = r.IntN(cfg.MaxReviews + 1)
		}
		for j := 0; j < reviews; j++ {
			ev := model.Event{Role: model.RoleReviewer, Timestamp: ts.Add(time.Duration(j+1) * 10 * time.Minute)}
			if j%2 == 1 {
				ev.Role = model.RoleAcker
			}

			reviewer := author
			if r.Float64() < cfg.SelfRate {
				stats.SelfReviews++
			} else {
				reviewer = (author + 1 + r.IntN(len(people)-1)) % len(people)
			}
			ev.RawAddress = people[reviewer].address(r.IntN(2) == 0)

			if r.Float64() < cfg.RelayRate {
				ev.RelayOverride = ev.RawAddress
				ev.RawAddress = RelayAddress
				if r.IntN(2) == 0 {
					ev.RelayOverride = ""
				}
				stats.Relayed++
			}
			emit(subject, ev)
			stats.Reviews++
		}

		if r.Float64() < cfg.BotRate {
			emit(subject, model.Event{RawAddress: BotAddress, Role: model.RoleReviewer, Timestamp: ts.Add(5 * time.Minute)})
			stats.Bots++
		}

		committer := people[r.IntN(len(people))]
		emit(subject, model.Event{RawAddress: committer.primary, Role: model.RoleCommitter, Timestamp: ts.Add(2 * time.Hour)})
		stats.Subjects++
	}

	logger.Get().Named("sample").Info(ctx, "window generated",
		logger.String("producer", cfg.Producer),
		logger.String("release", cfg.Release),
		logger.Int("events", len(w.Events)),
		logger.Int("duplicates", stats.Duplicates))
	return w, doc, stats, nil
}

// population creates the contributors and the identity map that covers them.
// Every (Orgs+1)th person posts from a freemail domain with no corporate rule.
func population(r *rand.Rand, cfg Config) ([]person, identity.Document, Stats) {
	var stats Stats
	doc := identity.Document{
		MailMap: [][]string{},
		CorpMap: make([][]string, 0, cfg.Orgs),
		Relays:  []string{RelayAddress},
		Bots:    []string{BotAddress},
	}
	for o := 0; o < cfg.Orgs; o++ {
		doc.CorpMap = append(doc.CorpMap, []string{fmt.Sprintf("org%d.example", o), fmt.Sprintf("Org %d", o)})
	}

	people := make([]person, cfg.People)
	for i := range people {
		domain := freemailDomain
		if o := i % (cfg.Orgs + 1); o < cfg.Orgs {
			domain = fmt.Sprintf("dev.org%d.example", o)
		}
		p := person{
			name:  fmt.Sprintf("Dev %03d", i),
			email: fmt.Sprintf("dev%03d@%s", i, domain),
		}
		p.primary = fmt.Sprintf("%s <%s>", p.name, p.email)
		if r.Float64() < cfg.AliasRate {
			p.alias = fmt.Sprintf("dev%03d@%s", i, homeDomain)
			doc.MailMap = append(doc.MailMap, []string{p.alias, p.primary})
			stats.Aliases++
		}
		people[i] = p
	}
	return people, doc, stats
}

// Write stores the window and the identity map as JSON under dir and returns
// both paths.
func Write(dir string, w model.Window, doc identity.Document) (windowPath, mapPath string, err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "", fmt.Errorf("create %s: %w", dir, err)
	}
	windowPath = filepath.Join(dir, fmt.Sprintf("%s-%s.json", w.Producer, w.Release))
	mapPath = filepath.Join(dir, "identity.json")
	if err := writeJSON(windowPath, w); err != nil {
		return "", "", err
	}
	if err := writeJSON(mapPath, doc); err != nil {
		return "", "", err
	}
	return windowPath, mapPath, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), filePerm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
