package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/revstat/internal/adapters/repository"
	"github.com/okian/revstat/internal/domain/scoring"
)

func newTopCommand(e *env) *cobra.Command {
	var (
		sheet  string
		by     string
		per    string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print a leaderboard from the stats document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := e.query()
			if err != nil {
				return err
			}
			q.Sheet = sheet
			q.By = by
			q.Per = per
			q.Limit = e.cfg.TopN
			if cmd.Flags().Changed("limit") {
				q.Limit = limit
			}

			svc, err := e.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			ranking, err := svc.TopN(cmd.Context(), q)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(ranking)
			}

			heading := fmt.Sprintf("%s/%s %s by %s", q.Producer, q.Release, sheetName(q.Sheet), metricName(q.By))
			if q.Per != "" {
				heading += " per " + q.Per
			}
			color.New(color.FgCyan, color.Bold).Fprintln(e.out, heading)
			tbl := newTable()
			tbl.AppendHeader(table.Row{"Rank", "Key", "Name", "Value"})
			prec := -1
			if q.Per != "" {
				prec = 2
			}
			for _, entry := range ranking {
				tbl.AppendRow(table.Row{entry.Rank, entry.Key, entry.Name, strconv.FormatFloat(entry.Value, 'f', prec, 64)})
			}
			fmt.Fprintln(e.out, tbl.Render())
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", repository.SheetIndividual, "score sheet: individual or corporate")
	cmd.Flags().StringVar(&by, "by", scoring.MetricPositive, "ranking metric")
	cmd.Flags().StringVar(&per, "per", "", "divide counts by the window span: day or week")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of rows (default top_n)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func sheetName(s string) string {
	if s == "" {
		return repository.SheetIndividual
	}
	return s
}

func metricName(m string) string {
	if m == "" {
		return scoring.MetricPositive
	}
	return m
}
