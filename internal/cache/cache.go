// Caches parsed commit records between runs.
//
// Commits are immutable, so a record cached under its hash stays valid for as
// long as the things that change what git reports for it (mailmap files, when
// git's mailmap is in use) stay the same. Those inputs are folded into the
// state key that names the cache file.
package cache

import (
	"iter"
	"slices"
	"time"

	"github.com/sinclairtarget/idman/internal/git"
)

type Backend interface {
	Name() string
	Open() error
	Close() error
	Get(revs []string) (iter.Seq[git.Commit], func() error)
	Add(commits []git.Commit) error
	Clear() error
}

// Cache hits for a lookup.
type Result struct {
	Revs    []string // Hashes found in the cache
	Commits []git.Commit
}

// Returns the revs in revs that were not hits.
func (r Result) Misses(revs []string) []string {
	hits := make(map[string]bool, len(r.Revs))
	for _, rev := range r.Revs {
		hits[rev] = true
	}

	misses := []string{}
	for _, rev := range revs {
		if !hits[rev] {
			misses = append(misses, rev)
		}
	}

	return misses
}

type Cache struct {
	backend Backend
}

func NewCache(b Backend) Cache {
	return Cache{backend: b}
}

func (c Cache) Name() string {
	return c.backend.Name()
}

func (c Cache) Open() error {
	start := time.Now()

	err := c.backend.Open()
	if err != nil {
		return err
	}

	logger().WithField("backend", c.Name()).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("cache open")
	return nil
}

func (c Cache) Close() error {
	return c.backend.Close()
}

func (c Cache) Get(revs []string) (Result, error) {
	start := time.Now()

	seq, finish := c.backend.Get(revs)
	commits := slices.Collect(seq)
	err := finish()
	if err != nil {
		return Result{}, err
	}

	hitRevs := make([]string, 0, len(commits))
	for _, commit := range commits {
		hitRevs = append(hitRevs, commit.Hash)
	}

	logger().WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("requested", len(revs)).
		WithField("hits", len(commits)).
		Debug("cache get")

	return Result{Revs: hitRevs, Commits: commits}, nil
}

func (c Cache) Add(commits []git.Commit) error {
	if len(commits) == 0 {
		return nil
	}

	start := time.Now()

	err := c.backend.Add(commits)
	if err != nil {
		return err
	}

	logger().WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("count", len(commits)).
		Debug("cache add")
	return nil
}

func (c Cache) Clear() error {
	return c.backend.Clear()
}
