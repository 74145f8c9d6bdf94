package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information, set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newVersionCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// No config is needed to print the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(e.out, "revstat %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}
