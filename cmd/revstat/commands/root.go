// Package commands implements the revstat command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/revstat/internal/adapters/repository"
	service "github.com/okian/revstat/internal/app"
	"github.com/okian/revstat/internal/config"
	"github.com/okian/revstat/internal/domain/identity"
	"github.com/okian/revstat/internal/domain/selfcheck"
	"github.com/okian/revstat/pkg/logger"
)

// Sentinel errors returned by commands.
var (
	ErrRunFailed    = errors.New("one or more windows failed")
	ErrCheckFailed  = errors.New("self-check found mapping gaps")
	ErrNoWindow     = errors.New("producer and release are required (use --producer and --release)")
	ErrNotInitiated = errors.New("command environment not initialized")
)

// env carries state shared by subcommands. It is filled by the root
// command's PersistentPreRunE.
type env struct {
	out    io.Writer
	errOut io.Writer

	configPath  string
	statsDB     string
	identityMap string
	producer    string
	release     string
	logLevel    string

	cfg *config.Config
	log logger.Logger
}

// NewRootCommand builds the revstat command tree writing reports to out and
// logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	e := &env{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "revstat",
		Short: "Identity resolution and participation scoring for release windows",
		Long: `revstat resolves the addresses found in mailing list and git events to
canonical identities and organizations, scores review participation per
release window, and merges the results into a shared stats document.

Commands:
  run       Score windows and merge them into the stats document
  merge     Merge an externally produced stats document
  check     Report identity mapping gaps in a window
  top       Print a leaderboard from the stats document
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.init(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&e.configPath, "config", "c", "", "YAML config file (default $"+config.EnvConfigFile+")")
	pf.StringVar(&e.statsDB, "stats-db", "", "stats document path")
	pf.StringVar(&e.identityMap, "identity-map", "", "identity map document path")
	pf.StringVar(&e.producer, "producer", "", "producer of the selected window")
	pf.StringVar(&e.release, "release", "", "release of the selected window")
	pf.StringVar(&e.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newRunCommand(e),
		newMergeCommand(e),
		newCheckCommand(e),
		newTopCommand(e),
		newVersionCommand(e),
	)
	return root
}

func (e *env) init(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		cfg *config.Config
		err error
	)
	if e.configPath != "" {
		cfg, err = config.LoadFile(ctx, e.configPath)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("stats-db", &cfg.StatsDB, e.statsDB)
	override("identity-map", &cfg.IdentityMap, e.identityMap)
	override("producer", &cfg.Producer, e.producer)
	override("release", &cfg.Release, e.release)
	override("log-level", &cfg.LogLevel, e.logLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.WithOutput(e.errOut), logger.WithFormat(strings.ToLower(cfg.LogFormat))); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	e.cfg = cfg
	e.log = logger.Named("cli")
	return nil
}

// service builds a Service from the loaded configuration. The identity map
// is loaded only when withMap is set.
func (e *env) service(ctx context.Context, withMap bool) (*service.Service, error) {
	if e.cfg == nil {
		return nil, ErrNotInitiated
	}
	opts := []service.Option{
		service.WithLogger(e.log),
		service.WithStore(repository.NewFileStore(e.cfg.StatsDB, repository.WithLockTimeout(e.cfg.LockTimeout()))),
		service.WithWorkerCount(e.cfg.WorkerCount),
		service.WithQueueSize(e.cfg.QueueSize),
		service.WithSelfReviewThreshold(e.cfg.SelfReviewThreshold),
		service.WithSampleSize(e.cfg.SampleSize),
		service.WithDedupeMaxIDs(e.cfg.DedupeMaxIDs),
	}
	if withMap {
		m, err := e.loadMap(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithIdentityMap(m))
	}
	if withMap && e.cfg.GitdmDB != "" {
		g, err := selfcheck.LoadGitdm(e.cfg.GitdmDB)
		if err != nil {
			return nil, err
		}
		e.log.Debug(ctx, "gitdm dump loaded", logger.String("path", e.cfg.GitdmDB), logger.Int("addresses", len(g)))
		opts = append(opts, service.WithGitdm(g))
	}
	return service.New(opts...), nil
}

func (e *env) loadMap(ctx context.Context) (*identity.Map, error) {
	if e.cfg.IdentityMap == "" {
		e.log.Warn(ctx, "no identity map configured; every address resolves to itself")
		return identity.New(identity.Document{}, e.cfg.IdentityOptions()...)
	}
	return identity.Load(ctx, e.cfg.IdentityMap, e.cfg.IdentityOptions()...)
}

func (e *env) query() (repository.Query, error) {
	if e.cfg.Producer == "" || e.cfg.Release == "" {
		return repository.Query{}, ErrNoWindow
	}
	return repository.Query{Producer: e.cfg.Producer, Release: e.cfg.Release}, nil
}
