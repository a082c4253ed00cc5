// The externally agreed JSON shape of an identity resolution run.
//
// Identities is always an array and Commits is always an object, both
// possibly empty, so consumers never need to check for null.
package report

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"

	"github.com/sinclairtarget/idman/internal/identity"
	"github.com/sinclairtarget/idman/internal/tally"
)

type Identity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Names       []string `json:"names"`
	Emails      []string `json:"emails"`
	CommitCount int      `json:"commitCount"`
	FirstSeen   int64    `json:"firstSeen"`
	LastSeen    int64    `json:"lastSeen"`
	Transitive  bool     `json:"transitive"`
}

type CommitStats struct {
	Count      int      `json:"count"`
	FirstSeen  int64    `json:"firstSeen"`
	LastSeen   int64    `json:"lastSeen"`
	Merges     int      `json:"merges"`
	Branches   int      `json:"branches"`
	ActiveDays int      `json:"activeDays"`
	Hashes     []string `json:"hashes,omitempty"`
}

type Report struct {
	Identities []Identity             `json:"identities"`
	Commits    map[string]CommitStats `json:"commits"`
}

type Options struct {
	IncludeHashes bool
}

func Empty() *Report {
	return &Report{
		Identities: []Identity{},
		Commits:    map[string]CommitStats{},
	}
}

// Builds a report from finalized clusters and their aggregated stats.
//
// Identities are ordered by commit count, most first, then by first seen,
// then by id.
func Build(
	clusters []identity.Cluster,
	stats map[string]tally.Stats,
	opts Options,
) *Report {
	r := Empty()

	for _, c := range clusters {
		s := stats[c.ID]

		r.Identities = append(r.Identities, Identity{
			ID:          c.ID,
			Name:        c.Canonical.Name,
			Email:       c.Canonical.Email,
			Names:       nonNil(c.Names),
			Emails:      nonNil(c.Emails),
			CommitCount: s.Count,
			FirstSeen:   s.FirstSeen.Unix(),
			LastSeen:    s.LastSeen.Unix(),
			Transitive:  c.Transitive,
		})

		commits := CommitStats{
			Count:      s.Count,
			FirstSeen:  s.FirstSeen.Unix(),
			LastSeen:   s.LastSeen.Unix(),
			Merges:     s.Merges,
			Branches:   s.Branches,
			ActiveDays: s.ActiveDays,
		}
		if opts.IncludeHashes {
			commits.Hashes = nonNil(s.Hashes)
		}
		r.Commits[c.ID] = commits
	}

	slices.SortFunc(r.Identities, func(a, b Identity) int {
		return cmp.Or(
			-cmp.Compare(a.CommitCount, b.CommitCount),
			cmp.Compare(a.FirstSeen, b.FirstSeen),
			cmp.Compare(a.ID, b.ID),
		)
	})

	return r
}

// Writes the report as a single JSON document followed by a newline. Output
// is byte-identical for identical reports.
func Write(w io.Writer, r *Report, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(r)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
