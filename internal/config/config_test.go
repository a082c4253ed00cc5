package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinclairtarget/idman/internal/config"
)

// Isolates the test from the user's config file and any .env in the cwd.
func isolate(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load("", "")
	require.NoError(t, err)

	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("config is wrong:\n%s", diff)
	}
}

func TestLoadRepoFile(t *testing.T) {
	isolate(t)

	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, config.RepoFilename), `
algorithm = "composite"
composite = ["alias", "fuzzy=0.9"]
alias_table = "people.yaml"
order = "oldest"
jobs = 4

[cache]
enabled = false
backend = "sqlite"

[log]
level = "debug"
`)

	cfg, err := config.Load("", repo)
	require.NoError(t, err)

	assert.Equal(t, "composite", cfg.Algorithm)
	assert.Equal(t, []string{"alias", "fuzzy=0.9"}, cfg.Composite)
	assert.Equal(t, filepath.Join(repo, "people.yaml"), cfg.AliasTable)
	assert.True(t, cfg.OldestFirst())
	assert.Equal(t, 4, cfg.Jobs)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep defaults")
	assert.Equal(t, filepath.Join(repo, config.RepoFilename), cfg.Path)
}

func TestLoadUserFile(t *testing.T) {
	isolate(t)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	writeFile(t, filepath.Join(xdg, "idman", "config.toml"), `algorithm = "name"`)

	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "name", cfg.Algorithm)
}

func TestExplicitPathWins(t *testing.T) {
	isolate(t)

	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, config.RepoFilename), `algorithm = "name"`)

	explicit := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, explicit, `algorithm = "fuzzy"`)

	cfg, err := config.Load(explicit, repo)
	require.NoError(t, err)
	assert.Equal(t, "fuzzy", cfg.Algorithm)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.toml"), repo)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)

	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, config.RepoFilename), `
algorithm = "name"
jobs = 2
`)

	t.Setenv("IDMAN_ALGORITHM", "email")
	t.Setenv("IDMAN_JOBS", "8")
	t.Setenv("IDMAN_COMPOSITE", "email,name")
	t.Setenv("IDMAN_CACHE", "false")

	cfg, err := config.Load("", repo)
	require.NoError(t, err)

	assert.Equal(t, "email", cfg.Algorithm)
	assert.Equal(t, 8, cfg.Jobs)
	assert.Equal(t, []string{"email", "name"}, cfg.Composite)
	assert.False(t, cfg.Cache.Enabled)
}

func TestDotEnv(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "IDMAN_ORDER=oldest\n")
	t.Chdir(dir)

	// godotenv sets real environment variables; unset on cleanup
	t.Setenv("IDMAN_ORDER", "")
	os.Unsetenv("IDMAN_ORDER")

	cfg, err := config.Load("", "")
	require.NoError(t, err)
	assert.Equal(t, config.OrderOldest, cfg.Order)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"unknown key":   `colour = "blue"`,
		"bad order":     `order = "sideways"`,
		"bad backend":   "[cache]\nbackend = \"redis\"",
		"bad threshold": `fuzzy_threshold = 1.5`,
		"nan threshold": `fuzzy_threshold = nan`,
		"bad jobs":      `jobs = -1`,
		"bad toml":      `algorithm = `,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)

			path := filepath.Join(t.TempDir(), "config.toml")
			writeFile(t, path, content)

			_, err := config.Load(path, "")
			assert.Error(t, err)
		})
	}
}

func TestBadEnvValue(t *testing.T) {
	isolate(t)
	t.Setenv("IDMAN_JOBS", "many")

	_, err := config.Load("", "")
	assert.Error(t, err)
}

func TestNaNThresholdFromEnvIsRejected(t *testing.T) {
	isolate(t)
	t.Setenv("IDMAN_FUZZY_THRESHOLD", "NaN")

	_, err := config.Load("", "")
	assert.Error(t, err)
}
