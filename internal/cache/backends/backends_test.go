package backends_test

import (
	"iter"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sinclairtarget/idman/internal/cache/backends"
	"github.com/sinclairtarget/idman/internal/git"
)

type backend interface {
	Name() string
	Open() error
	Close() error
	Get(revs []string) (iter.Seq[git.Commit], func() error)
	Add(commits []git.Commit) error
	Clear() error
}

var commitOne = git.Commit{
	ShortHash:   "1e9ea76",
	Hash:        "1e9ea7662b1001d860471a4cece5e2f1de8062fb",
	Parents:     []string{"0e9ea7662b1001d860471a4cece5e2f1de8062fb"},
	AuthorName:  "Bob",
	AuthorEmail: "bob@work.com",
	Date:        time.Date(2025, 1, 30, 16, 35, 26, 0, time.UTC),
}

var commitTwo = git.Commit{
	ShortHash: "2e9ea76",
	Hash:      "2e9ea7662b1001d860471a4cece5e2f1de8062fb",
	Parents: []string{
		"1e9ea7662b1001d860471a4cece5e2f1de8062fb",
		"3e9ea7662b1001d860471a4cece5e2f1de8062fb",
	},
	AuthorName:  "Alice",
	AuthorEmail: "alice@work.com",
	Date:        time.Date(2025, 1, 31, 16, 35, 26, 0, time.UTC),
}

// Each constructor returns a fresh backend rooted in dir.
var constructors = map[string]func(dir string) backend{
	"gob": func(dir string) backend {
		return &backends.GobBackend{
			Dir:  dir,
			Path: filepath.Join(dir, backends.GobCacheFilename("state")),
		}
	},
	"json": func(dir string) backend {
		return backends.JSONBackend{Path: filepath.Join(dir, "state.jsonl")}
	},
	"sqlite": func(dir string) backend {
		return &backends.SQLiteBackend{Path: filepath.Join(dir, "state.sqlite")}
	},
}

func get(t *testing.T, b backend, revs []string) []git.Commit {
	t.Helper()

	seq, finish := b.Get(revs)
	commits := slices.Collect(seq)
	if err := finish(); err != nil {
		t.Fatalf("error iterating cached commits: %v", err)
	}

	slices.SortFunc(commits, func(a, b git.Commit) int {
		return a.Date.Compare(b.Date)
	})
	return commits
}

func open(t *testing.T, b backend) {
	t.Helper()

	if err := b.Open(); err != nil {
		t.Fatalf("could not open cache: %v", err)
	}
}

func TestAddGetClear(t *testing.T) {
	for name, newBackend := range constructors {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "cache")
			if err := os.MkdirAll(dir, 0o700); err != nil {
				t.Fatal(err)
			}

			b := newBackend(dir)
			open(t, b)
			defer b.Close()

			err := b.Add([]git.Commit{commitOne})
			if err != nil {
				t.Fatalf("add commits to cache failed with error: %v", err)
			}

			commits := get(t, b, []string{commitOne.Hash})
			if diff := cmp.Diff([]git.Commit{commitOne}, commits); diff != "" {
				t.Errorf("cached commits are wrong:\n%s", diff)
			}

			err = b.Clear()
			if err != nil {
				t.Fatalf("clearing cache failed with error: %v", err)
			}

			b = newBackend(dir)
			open(t, b)
			defer b.Close()

			commits = get(t, b, []string{commitOne.Hash})
			if len(commits) > 0 {
				t.Errorf("cache result after clear should have been empty")
			}
		})
	}
}

func TestAddGetAddGet(t *testing.T) {
	for name, newBackend := range constructors {
		t.Run(name, func(t *testing.T) {
			b := newBackend(t.TempDir())
			open(t, b)
			defer b.Close()

			revs := []string{commitOne.Hash, commitTwo.Hash}

			err := b.Add([]git.Commit{commitOne})
			if err != nil {
				t.Fatalf("add commits to cache failed with error: %v", err)
			}

			if n := len(get(t, b, revs)); n != 1 {
				t.Errorf("expected to get one commit from cache, but got %d", n)
			}

			err = b.Add([]git.Commit{commitTwo})
			if err != nil {
				t.Fatalf("add commits to cache failed with error: %v", err)
			}

			commits := get(t, b, revs)
			expected := []git.Commit{commitOne, commitTwo}
			if diff := cmp.Diff(expected, commits); diff != "" {
				t.Errorf("cached commits are wrong:\n%s", diff)
			}

			// Only asked-for revs come back
			commits = get(t, b, []string{commitTwo.Hash})
			if diff := cmp.Diff([]git.Commit{commitTwo}, commits); diff != "" {
				t.Errorf("cached commits are wrong:\n%s", diff)
			}
		})
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	for name, newBackend := range constructors {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			b := newBackend(dir)
			open(t, b)
			err := b.Add([]git.Commit{commitOne, commitTwo})
			if err != nil {
				t.Fatalf("add commits to cache failed with error: %v", err)
			}
			if err := b.Close(); err != nil {
				t.Fatalf("could not close cache: %v", err)
			}

			b = newBackend(dir)
			open(t, b)
			defer b.Close()

			commits := get(t, b, []string{commitOne.Hash, commitTwo.Hash})
			if len(commits) != 2 {
				t.Errorf("expected two commits after reopen, got %d", len(commits))
			}
		})
	}
}

func TestGobCompressesOnClose(t *testing.T) {
	dir := t.TempDir()
	b := &backends.GobBackend{
		Dir:  dir,
		Path: filepath.Join(dir, backends.GobCacheFilename("state")),
	}

	open(t, b)
	if err := b.Add([]git.Commit{commitOne}); err != nil {
		t.Fatal(err)
	}

	// A cache file from an older state should be cleaned up
	stale := filepath.Join(dir, backends.GobCacheFilename("old")+".zst")
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("could not close cache: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}

	expected := []string{"state.gobs.zst"}
	if diff := cmp.Diff(expected, names); diff != "" {
		t.Errorf("cache dir contents are wrong:\n%s", diff)
	}
}

func TestGobTruncatedFrameIsAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, backends.GobCacheFilename("state"))
	b := &backends.GobBackend{Dir: dir, Path: path}

	open(t, b)
	if err := b.Add([]git.Commit{commitOne, commitTwo}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, info.Size()-1); err != nil {
		t.Fatal(err)
	}

	seq, finish := b.Get([]string{commitOne.Hash, commitTwo.Hash})
	if commits := slices.Collect(seq); len(commits) != 0 {
		t.Errorf("expected no commits from a truncated frame, got %d", len(commits))
	}
	if err := finish(); err == nil {
		t.Error("expected error reading truncated cache")
	}
}

func TestNoopCachesNothing(t *testing.T) {
	b := backends.NoopBackend{}
	open(t, b)

	if err := b.Add([]git.Commit{commitOne}); err != nil {
		t.Fatal(err)
	}

	if n := len(get(t, b, []string{commitOne.Hash})); n != 0 {
		t.Errorf("expected no commits from noop cache, got %d", n)
	}
}
