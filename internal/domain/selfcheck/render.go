package selfcheck

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Render writes the report as text tables.
func (r Report) Render(w io.Writer) error {
	heading := color.New(color.FgCyan, color.Bold)
	if _, err := heading.Fprintf(w, "Self-check %s/%s\n", r.Producer, r.Release); err != nil {
		return err
	}
	fmt.Fprintf(w, "  subjects sampled: %d of %d, events: %d\n", r.SampledSubjects, r.Subjects, r.Events)
	fmt.Fprintf(w, "  review coverage: %.1f%%, cross-company: %.1f%%\n",
		100*r.Summary.ReviewCoverage, 100*r.Summary.CrossCompanyCoverage)

	usage := []struct {
		title, from, to string
		rows            []RuleUse
	}{
		{"Mailmap aliases used", "Alias", "Identity", r.AliasesUsed},
		{"Corpmap rules used", "Fragment", "Organization", r.RulesUsed},
	}
	for _, u := range usage {
		if len(u.rows) == 0 {
			continue
		}
		color.New(color.FgBlue).Fprintf(w, "\n%s\n", u.title)
		tbl := newTable()
		tbl.AppendHeader(table.Row{u.from, u.to, "Events"})
		for _, row := range u.rows {
			tbl.AppendRow(table.Row{row.From, row.To, strconv.Itoa(row.Count)})
		}
		fmt.Fprintln(w, tbl.Render())
	}

	if r.Clean() {
		color.New(color.FgGreen).Fprintln(w, "No mapping gaps found.")
		return nil
	}

	sections := []struct {
		title, column string
		rows          []Finding
	}{
		{"Unmatched addresses (add to mailmap or fix extraction)", "Raw address", r.Unmatched},
		{"Unknown organizations (corpmap candidates)", "Address", r.UnknownOrgs},
		{fmt.Sprintf("Self-reviews above %d", r.Threshold), "Identity", r.SelfReviewers},
		{"Relays without embedded identity", "Relay", r.UnremappedRelays},
		{"Addresses without a display name", "Address", r.NoName},
	}
	for _, s := range sections {
		if len(s.rows) == 0 {
			continue
		}
		color.New(color.FgYellow).Fprintf(w, "\n%s\n", s.title)
		fmt.Fprintln(w, findingsTable(s.column, s.rows))
	}

	if len(r.CorpSuggestions) > 0 {
		color.New(color.FgYellow).Fprintf(w, "\n%s\n", "Corpmap candidates from gitdm")
		tbl := newTable()
		tbl.AppendHeader(table.Row{"Address", "Organization", "Events"})
		for _, c := range r.CorpSuggestions {
			tbl.AppendRow(table.Row{c.Address, c.Organization, strconv.Itoa(c.Count)})
		}
		fmt.Fprintln(w, tbl.Render())
	}

	if len(r.Suggestions) > 0 {
		color.New(color.FgYellow).Fprintf(w, "\n%s\n", "Possible mailmap entries (same name, several addresses)")
		tbl := newTable()
		tbl.AppendHeader(table.Row{"Name", "Addresses"})
		for _, s := range r.Suggestions {
			for i, a := range s.Addresses {
				name := s.Name
				if i > 0 {
					name = ""
				}
				tbl.AppendRow(table.Row{name, a})
			}
		}
		fmt.Fprintln(w, tbl.Render())
	}
	return nil
}

func findingsTable(column string, rows []Finding) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{column, "Events"})
	for _, f := range rows {
		tbl.AppendRow(table.Row{f.Subject, strconv.Itoa(f.Count)})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(rows))})
	return tbl.Render()
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	return tbl
}
