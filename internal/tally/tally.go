// Handles summations over commits.
package tally

import (
	"cmp"
	"slices"
	"time"

	"github.com/sinclairtarget/idman/internal/git"
)

const dayFormat = "2006-01-02"

// Metrics for a single identity, computed once all commits have been seen.
type Stats struct {
	Count      int       // Num distinct commits
	FirstSeen  time.Time // Earliest author date
	LastSeen   time.Time // Latest author date
	Merges     int       // Num commits with more than one parent
	Branches   int       // Num distinct parent commits touched
	ActiveDays int       // Num distinct UTC days with a commit
	Hashes     []string  // Ordered by author date, then hash
}

// A non-final tally that can be combined with other tallies and then
// finalized.
type Tally struct {
	commits   map[string]int64 // Hash to author date
	mergeset  map[string]bool
	parentset map[string]bool
	dayset    map[string]bool
	first     time.Time
	last      time.Time
}

// Folds a commit into the tally. Adding the same hash twice has no effect.
func (t *Tally) Add(commit git.Commit) {
	t.init()

	if _, ok := t.commits[commit.Hash]; ok {
		return
	}

	t.commits[commit.Hash] = commit.Date.Unix()
	if commit.IsMerge() {
		t.mergeset[commit.Hash] = true
	}

	for _, parent := range commit.Parents {
		t.parentset[parent] = true
	}

	t.dayset[commit.Date.UTC().Format(dayFormat)] = true
	t.first = minTime(t.first, commit.Date)
	t.last = maxTime(t.last, commit.Date)
}

func (t *Tally) init() {
	if t.commits == nil {
		t.commits = map[string]int64{}
		t.mergeset = map[string]bool{}
		t.parentset = map[string]bool{}
		t.dayset = map[string]bool{}
	}
}

// Folds other into t in place. other is not modified and shares no maps with
// t afterwards.
func (t *Tally) Merge(other Tally) {
	t.init()

	copyInto(t.commits, other.commits)
	copyInto(t.mergeset, other.mergeset)
	copyInto(t.parentset, other.parentset)
	copyInto(t.dayset, other.dayset)
	t.first = minTime(t.first, other.first)
	t.last = maxTime(t.last, other.last)
}

// Returns a new tally. Neither a nor b is modified.
func (a Tally) Combine(b Tally) Tally {
	var c Tally
	c.Merge(a)
	c.Merge(b)
	return c
}

func (t Tally) Final() Stats {
	hashes := make([]string, 0, len(t.commits))
	for hash := range t.commits {
		hashes = append(hashes, hash)
	}

	slices.SortFunc(hashes, func(a, b string) int {
		return cmp.Or(cmp.Compare(t.commits[a], t.commits[b]), cmp.Compare(a, b))
	})

	return Stats{
		Count:      len(t.commits),
		FirstSeen:  t.first,
		LastSeen:   t.last,
		Merges:     len(t.mergeset),
		Branches:   len(t.parentset),
		ActiveDays: len(t.dayset),
		Hashes:     hashes,
	}
}

// Finalizes a tally per identity. Empty input gives an empty, non-nil map.
func Aggregate(tallies map[string]Tally) map[string]Stats {
	stats := make(map[string]Stats, len(tallies))
	for id, t := range tallies {
		stats[id] = t.Final()
	}

	logger().WithField("identities", len(stats)).Debug("aggregated tallies")
	return stats
}

func copyInto[V any](dst, src map[string]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func minTime(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	} else if b.IsZero() || a.Before(b) {
		return a
	}

	return b
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}

	return a
}
