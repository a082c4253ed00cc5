package cache

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/sinclairtarget/idman/internal/cache/backends"
	"github.com/sinclairtarget/idman/internal/git/config"
)

// Bump when the cached record layout changes.
const formatVersion = 1

// Returns where caches are stored: override if set, else the user cache dir.
func StorageDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("could not find user cache dir: %w", err)
	}

	return filepath.Join(dir, "idman"), nil
}

// Directory for one repository's cache files. The name includes a hash of the
// git dir so caches for different repos never collide.
func RepoDir(storageDir string, gitDir string) string {
	h := fnv.New32()
	h.Write([]byte(gitDir))

	base := filepath.Base(filepath.Dir(gitDir))
	if filepath.Base(gitDir) != ".git" {
		base = filepath.Base(gitDir)
	}

	return filepath.Join(storageDir, fmt.Sprintf("%s-%x", base, h.Sum32()))
}

// Names the state that cached records depend on. Mailmap contents only count
// when git applies its mailmap to the log.
func StateKey(files config.SupplementalFiles, useMailmap bool) (string, error) {
	h := fnv.New64a()
	fmt.Fprintf(h, "v%d", formatVersion)

	if useMailmap {
		h.Write([]byte("mailmap"))

		err := files.MailmapHash(h)
		if err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%x", h.Sum64()), nil
}

// Builds and opens a cache. kind is one of gob, json, sqlite or noop.
func Open(kind string, repoDir string, stateKey string) (_ Cache, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error opening %s cache: %w", kind, err)
		}
	}()

	var b Backend
	switch kind {
	case backends.NoopBackendName:
		return NewCache(backends.NoopBackend{}), nil
	case backends.GobBackendName, "":
		b = &backends.GobBackend{
			Dir:  repoDir,
			Path: filepath.Join(repoDir, backends.GobCacheFilename(stateKey)),
		}
	case backends.JSONBackendName:
		b = backends.JSONBackend{
			Path: filepath.Join(repoDir, stateKey+".jsonl"),
		}
	case backends.SQLiteBackendName:
		b = &backends.SQLiteBackend{
			Path: filepath.Join(repoDir, stateKey+".sqlite"),
		}
	default:
		return Cache{}, fmt.Errorf("unknown cache backend %q", kind)
	}

	err = os.MkdirAll(repoDir, 0o700)
	if err != nil {
		return Cache{}, err
	}

	c := NewCache(b)
	err = c.Open()
	if err != nil {
		return Cache{}, err
	}

	return c, nil
}

// Removes every cache under storageDir.
func Wipe(storageDir string) error {
	logger().WithField("dir", storageDir).Debug("wiping caches")
	return os.RemoveAll(storageDir)
}
