package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinclairtarget/idman/internal/cache"
	"github.com/sinclairtarget/idman/internal/git"
	"github.com/sinclairtarget/idman/internal/git/config"
)

func TestStateKeyIgnoresMailmapUnlessUsed(t *testing.T) {
	dir := t.TempDir()
	mailmap := filepath.Join(dir, ".mailmap")
	require.NoError(t, os.WriteFile(mailmap, []byte("Alice <alice@mail.com>\n"), 0o644))

	none, err := cache.StateKey(config.SupplementalFiles{}, false)
	require.NoError(t, err)

	unused, err := cache.StateKey(
		config.SupplementalFiles{RepoMailmapPath: mailmap},
		false,
	)
	require.NoError(t, err)
	assert.Equal(t, none, unused)

	used, err := cache.StateKey(
		config.SupplementalFiles{RepoMailmapPath: mailmap},
		true,
	)
	require.NoError(t, err)
	assert.NotEqual(t, none, used)

	require.NoError(t, os.WriteFile(mailmap, []byte("Bob <bob@mail.com>\n"), 0o644))
	changed, err := cache.StateKey(
		config.SupplementalFiles{RepoMailmapPath: mailmap},
		true,
	)
	require.NoError(t, err)
	assert.NotEqual(t, used, changed, "editing the mailmap should change the key")
}

func TestStateKeyMissingMailmap(t *testing.T) {
	key, err := cache.StateKey(
		config.SupplementalFiles{RepoMailmapPath: "/does/not/exist/.mailmap"},
		true,
	)
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}

func TestRepoDir(t *testing.T) {
	a := cache.RepoDir("/cache", "/src/project/.git")
	b := cache.RepoDir("/cache", "/other/project/.git")
	bare := cache.RepoDir("/cache", "/srv/project.git")

	assert.NotEqual(t, a, b)
	assert.Equal(t, "/cache", filepath.Dir(a))
	assert.Regexp(t, `^project-[0-9a-f]+$`, filepath.Base(a))
	assert.Regexp(t, `^project\.git-[0-9a-f]+$`, filepath.Base(bare))
}

func TestStorageDirOverride(t *testing.T) {
	dir, err := cache.StorageDir("/tmp/idman-cache")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/idman-cache", dir)
}

func TestOpenAndMisses(t *testing.T) {
	commit := git.Commit{
		Hash:        "1e9ea7662b1001d860471a4cece5e2f1de8062fb",
		ShortHash:   "1e9ea76",
		AuthorName:  "Bob",
		AuthorEmail: "bob@work.com",
		Date:        time.Unix(100, 0).UTC(),
	}
	other := "2e9ea7662b1001d860471a4cece5e2f1de8062fb"

	for _, kind := range []string{"gob", "json", "sqlite"} {
		t.Run(kind, func(t *testing.T) {
			repoDir := filepath.Join(t.TempDir(), "repo")

			c, err := cache.Open(kind, repoDir, "state")
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, kind, c.Name())
			require.NoError(t, c.Add([]git.Commit{commit}))

			result, err := c.Get([]string{commit.Hash, other})
			require.NoError(t, err)

			assert.Equal(t, []string{commit.Hash}, result.Revs)
			assert.Equal(t, []string{other}, result.Misses([]string{commit.Hash, other}))
		})
	}
}

func TestOpenNoop(t *testing.T) {
	c, err := cache.Open("noop", t.TempDir(), "state")
	require.NoError(t, err)
	assert.Equal(t, "noop", c.Name())

	result, err := c.Get([]string{"abc"})
	require.NoError(t, err)
	assert.Empty(t, result.Revs)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := cache.Open("redis", t.TempDir(), "state")
	assert.Error(t, err)
}
