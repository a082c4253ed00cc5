package config_test

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinclairtarget/idman/internal/git/config"
)

func TestMailmapHash(t *testing.T) {
	dir := t.TempDir()
	repoMailmap := filepath.Join(dir, ".mailmap")
	globalMailmap := filepath.Join(dir, "contacts")

	require.NoError(t, os.WriteFile(repoMailmap, []byte("Alice <alice@mail.com>"), 0o644))
	require.NoError(t, os.WriteFile(globalMailmap, []byte("Bob <bob@mail.com>"), 0o644))

	hashOf := func(sf config.SupplementalFiles) uint32 {
		h := fnv.New32()
		require.NoError(t, sf.MailmapHash(h))
		return h.Sum32()
	}

	none := hashOf(config.SupplementalFiles{})
	repoOnly := hashOf(config.SupplementalFiles{RepoMailmapPath: repoMailmap})
	both := hashOf(config.SupplementalFiles{
		RepoMailmapPath:   repoMailmap,
		GlobalMailmapPath: globalMailmap,
	})

	assert.Equal(t, fnv.New32().Sum32(), none)
	assert.NotEqual(t, none, repoOnly)
	assert.NotEqual(t, repoOnly, both)

	missing := hashOf(config.SupplementalFiles{
		RepoMailmapPath: filepath.Join(dir, "does-not-exist"),
	})
	assert.Equal(t, none, missing, "missing mailmap files hash like no files")
}

func TestHasMailmap(t *testing.T) {
	assert.False(t, config.SupplementalFiles{}.HasMailmap())
	assert.True(t, config.SupplementalFiles{GlobalMailmapPath: "x"}.HasMailmap())
}
