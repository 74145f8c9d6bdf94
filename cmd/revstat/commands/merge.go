package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/revstat/internal/adapters/repository"
)

func newMergeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <incoming.json>",
		Short: "Merge an externally produced stats document",
		Long: `Merges every producer section of the incoming document. Stored windows with
equal content are left alone; differing content aborts the merge and leaves the
stats document untouched. With --producer, any section of another producer is
rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			incoming, err := repository.Decode(data, true)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if p := e.cfg.Producer; p != "" {
				if _, err := repository.Merge(repository.DB{}, incoming, p); err != nil {
					return err
				}
			}

			svc, err := e.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := svc.Merge(cmd.Context(), incoming); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "merged %s into %s\n", args[0], e.cfg.StatsDB)
			return nil
		},
	}
}
