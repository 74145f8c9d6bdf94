package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/revstat/internal/adapters/mq/queue"
	service "github.com/okian/revstat/internal/app"
)

func newRunCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <window.json>...",
		Short: "Score windows and merge them into the stats document",
		Long: `Each window file holds {"producer","release","events"}. Windows are scored in
parallel and merged under the stats document lock. Re-running a window that is
already stored is a no-op; a window whose content differs from the stored one
is reported as a conflict.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := e.service(ctx, true)
			if err != nil {
				return err
			}

			jobs := make([]queue.Job, 0, len(args))
			for _, path := range args {
				w, err := service.LoadWindow(path)
				if err != nil {
					return err
				}
				jobs = append(jobs, queue.Job{Source: path, Window: w})
			}

			outcomes, err := svc.Run(ctx, jobs)
			if err != nil {
				return err
			}
			return renderOutcomes(e, outcomes)
		},
	}
	return cmd
}

func renderOutcomes(e *env, outcomes []service.Outcome) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Source", "Producer", "Release", "Events", "Coverage", "Cross-company", "Status"})

	var failed error
	for _, o := range outcomes {
		status := "ok"
		if o.Err != nil {
			status = o.Err.Error()
			if failed == nil {
				failed = fmt.Errorf("%w: %s: %w", ErrRunFailed, o.Source, o.Err)
			}
		}
		tbl.AppendRow(table.Row{
			o.Source, o.Producer, o.Release, o.Summary.Events,
			percent(o.Summary.ReviewCoverage), percent(o.Summary.CrossCompanyCoverage), status,
		})
	}
	fmt.Fprintln(e.out, tbl.Render())
	return failed
}

func percent(r float64) string {
	return fmt.Sprintf("%.1f%%", 100*r)
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	return tbl
}
