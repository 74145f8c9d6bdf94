package selfcheck

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// GitdmEntry is one developer record of a gitdm dump.
type GitdmEntry struct {
	Organization string
	Name         string
}

// Gitdm maps lowercased addresses to gitdm developer records.
type Gitdm map[string]GitdmEntry

// Organizations gitdm uses when it does not know the employer.
var gitdmPlaceholders = map[string]struct{}{ //nolint:gochecknoglobals // lookup table
	"(Unknown)":   {},
	"Independent": {},
	"NotFound":    {},
}

// ParseGitdm reads a tab separated gitdm developer dump with the columns
// organization, address ('!' in place of '@'), name and statistics.
// Records without a real organization are skipped; a later record for the
// same address wins.
func ParseGitdm(r io.Reader) (Gitdm, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	out := Gitdm{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGitdm, err)
		}
		if len(rec) < 2 {
			continue
		}
		org := strings.TrimSpace(rec[0])
		if _, placeholder := gitdmPlaceholders[org]; placeholder || org == "" {
			continue
		}
		addr := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(rec[1]), "!", "@"))
		if !strings.Contains(addr, "@") {
			continue
		}
		entry := GitdmEntry{Organization: org}
		if len(rec) > 2 {
			entry.Name = strings.TrimSpace(rec[2])
		}
		out[addr] = entry
	}
}

// LoadGitdm reads a gitdm dump from path.
func LoadGitdm(path string) (Gitdm, error) {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGitdm, err)
	}
	defer f.Close()
	return ParseGitdm(f)
}

// CorpSuggestion proposes an organization for an unattributed address.
type CorpSuggestion struct {
	Address      string `json:"address"`
	Organization string `json:"organization"`
	Count        int    `json:"count"`
}

func corpSuggestions(unknown []Finding, g Gitdm) []CorpSuggestion {
	var out []CorpSuggestion
	for _, f := range unknown {
		if e, ok := g[f.Subject]; ok {
			out = append(out, CorpSuggestion{Address: f.Subject, Organization: e.Organization, Count: f.Count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Organization != out[j].Organization {
			return out[i].Organization < out[j].Organization
		}
		return out[i].Address < out[j].Address
	})
	return out
}
