// Command sample-events writes a synthetic release window and the identity
// map that covers it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/revstat/internal/sample"
	"github.com/okian/revstat/pkg/logger"
)

const defaultTimeout = time.Minute

func main() {
	def := sample.DefaultConfig()
	var (
		out        = flag.String("out", ".", "Directory for the generated files")
		producer   = flag.String("producer", def.Producer, "Producer name")
		release    = flag.String("release", def.Release, "Release label")
		subjects   = flag.Int("subjects", def.Subjects, "Number of threads or commits")
		people     = flag.Int("people", def.People, "Number of distinct contributors")
		orgs       = flag.Int("orgs", def.Orgs, "Number of organizations")
		maxReviews = flag.Int("reviews", def.MaxReviews, "Maximum reviews per subject")
		selfRate   = flag.Float64("self-rate", def.SelfRate, "Chance that a review is a self-review")
		relayRate  = flag.Float64("relay-rate", def.RelayRate, "Chance that a review arrives through the list relay")
		dupRate    = flag.Float64("dup-rate", def.DuplicateRate, "Chance that an event is delivered twice")
		seed       = flag.Uint64("seed", def.Seed, "Random seed")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cfg := def
	cfg.Producer = *producer
	cfg.Release = *release
	cfg.Subjects = *subjects
	cfg.People = *people
	cfg.Orgs = *orgs
	cfg.MaxReviews = *maxReviews
	cfg.SelfRate = *selfRate
	cfg.RelayRate = *relayRate
	cfg.DuplicateRate = *dupRate
	cfg.Seed = *seed

	w, doc, stats, err := sample.Generate(ctx, cfg)
	if err != nil {
		logger.Get().Error(ctx, "generate failed", logger.Error(err))
		os.Exit(1)
	}
	winPath, mapPath, err := sample.Write(*out, w, doc)
	if err != nil {
		logger.Get().Error(ctx, "write failed", logger.Error(err))
		os.Exit(1)
	}
	logger.Get().Info(ctx, "sample written",
		logger.String("window", winPath),
		logger.String("identity_map", mapPath),
		logger.Any("stats", stats))
}
