package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/revstat/internal/app"
)

func newCheckCommand(e *env) *cobra.Command {
	var (
		strict    bool
		threshold int
		sample    int
		gitdm     string
	)

	cmd := &cobra.Command{
		Use:   "check <window.json>",
		Short: "Report identity mapping gaps in a window",
		Long: `Resolves a sample of the window against the identity map and lists unmatched
addresses, unknown organizations, frequent self-reviewers, relays without an
embedded identity and likely mailmap entries. With a gitdm developer dump,
unattributed addresses that gitdm knows are proposed as corpmap entries.
Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("threshold") {
				e.cfg.SelfReviewThreshold = threshold
			}
			if cmd.Flags().Changed("sample") {
				e.cfg.SampleSize = sample
			}
			if cmd.Flags().Changed("gitdm") {
				e.cfg.GitdmDB = gitdm
			}
			if err := e.cfg.Validate(); err != nil {
				return err
			}

			w, err := service.LoadWindow(args[0])
			if err != nil {
				return err
			}
			svc, err := e.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			rep, err := svc.Check(cmd.Context(), w)
			if err != nil {
				return err
			}
			if err := rep.Render(e.out); err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			if strict && !rep.Clean() {
				return ErrCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when gaps are found")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "self-review count above which an identity is reported")
	cmd.Flags().IntVar(&sample, "sample", 0, "number of subjects to check, 0 for all")
	cmd.Flags().StringVar(&gitdm, "gitdm", "", "gitdm developer dump used to suggest corpmap entries")
	return cmd
}
