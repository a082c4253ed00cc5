// Loads settings from defaults, a TOML file and the environment.
//
// Later sources win: defaults, then the first config file found, then .env
// and IDMAN_* environment variables. Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/sinclairtarget/idman/internal/match"
)

const (
	RepoFilename = ".idman.toml"
	EnvPrefix    = "IDMAN_"

	OrderNewest = "newest"
	OrderOldest = "oldest"
)

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Algorithm      string      `toml:"algorithm"`
	Composite      []string    `toml:"composite"`
	FuzzyThreshold float64     `toml:"fuzzy_threshold"`
	AliasTable     string      `toml:"alias_table"`
	Order          string      `toml:"order"`
	Jobs           int         `toml:"jobs"`
	UseGitMailmap  bool        `toml:"use_git_mailmap"`
	Cache          CacheConfig `toml:"cache"`
	Log            LogConfig   `toml:"log"`

	// File the settings were read from, if any
	Path string `toml:"-"`
}

func Default() Config {
	return Config{
		Algorithm:      match.DefaultAlgorithm,
		FuzzyThreshold: match.DefaultFuzzyThreshold,
		Order:          OrderNewest,
		Cache: CacheConfig{
			Enabled: true,
			Backend: "gob",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c Config) OldestFirst() bool {
	return c.Order == OrderOldest
}

// Loads configuration. explicitPath must exist if given; otherwise the repo's
// .idman.toml (when repoRoot is set) and then the user config file are tried.
func Load(explicitPath string, repoRoot string) (_ Config, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error loading config: %w", err)
		}
	}()

	cfg := Default()

	path, err := findFile(explicitPath, repoRoot)
	if err != nil {
		return cfg, err
	}

	if path != "" {
		err = decodeFile(path, &cfg)
		if err != nil {
			return cfg, err
		}
	}

	err = godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("could not read .env: %w", err)
	}

	err = applyEnv(&cfg, os.LookupEnv)
	if err != nil {
		return cfg, err
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, err
	}

	logger().WithField("path", cfg.Path).Debug("loaded config")
	return cfg, nil
}

func findFile(explicitPath string, repoRoot string) (string, error) {
	if explicitPath != "" {
		_, err := os.Stat(explicitPath)
		if err != nil {
			return "", err
		}
		return explicitPath, nil
	}

	candidates := []string{}
	if repoRoot != "" {
		candidates = append(candidates, filepath.Join(repoRoot, RepoFilename))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "idman", "config.toml"))
	}

	for _, p := range candidates {
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}

	return "", nil
}

func decodeFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("could not parse %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf(
			"unknown keys in %s: %s",
			path,
			strings.Join(keys, ", "),
		)
	}

	// Paths in a config file are relative to the file
	if cfg.AliasTable != "" && !filepath.IsAbs(cfg.AliasTable) {
		cfg.AliasTable = filepath.Join(filepath.Dir(path), cfg.AliasTable)
	}

	cfg.Path = path
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dest *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dest = v
		}
	}

	boolean := func(name string, dest *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}

		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dest = b
		return nil
	}

	str("ALGORITHM", &cfg.Algorithm)
	str("ALIAS_TABLE", &cfg.AliasTable)
	str("ORDER", &cfg.Order)
	str("CACHE_BACKEND", &cfg.Cache.Backend)
	str("CACHE_DIR", &cfg.Cache.Dir)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v, ok := lookup(EnvPrefix + "COMPOSITE"); ok && v != "" {
		cfg.Composite = strings.Split(v, ",")
	}

	if v, ok := lookup(EnvPrefix + "FUZZY_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sFUZZY_THRESHOLD: %w", EnvPrefix, err)
		}
		cfg.FuzzyThreshold = f
	}

	if v, ok := lookup(EnvPrefix + "JOBS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sJOBS: %w", EnvPrefix, err)
		}
		cfg.Jobs = n
	}

	if err := boolean("USE_GIT_MAILMAP", &cfg.UseGitMailmap); err != nil {
		return err
	}

	return boolean("CACHE", &cfg.Cache.Enabled)
}

func (c Config) Validate() error {
	switch c.Order {
	case OrderNewest, OrderOldest:
	default:
		return fmt.Errorf(
			"order must be %q or %q, got %q",
			OrderNewest,
			OrderOldest,
			c.Order,
		)
	}

	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}

	threshold := c.FuzzyThreshold
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return fmt.Errorf(
			"fuzzy_threshold must be in (0, 1], got %v",
			c.FuzzyThreshold,
		)
	}

	switch c.Cache.Backend {
	case "gob", "json", "sqlite", "noop":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	return nil
}
