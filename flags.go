package main

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sinclairtarget/idman/internal/clierr"
	"github.com/sinclairtarget/idman/internal/config"
	"github.com/sinclairtarget/idman/internal/git"
	"github.com/sinclairtarget/idman/internal/logging"
	"github.com/sinclairtarget/idman/internal/pretty"
	"github.com/sinclairtarget/idman/pkg/idman"
)

type globalFlags struct {
	configPath string
	verbose    bool
}

func (f *globalFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.configPath, "config", "", strings.TrimSpace(`
Read settings from this TOML file instead of .idman.toml or the user config
	`))
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Enables debug logging")
}

// Flags selecting which commits are read.
type logFlags struct {
	revs     []string
	since    string
	until    string
	authors  []string
	nauthors []string
	reverse  bool
	mailmap  bool
}

func (f *logFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVar(&f.revs, "rev", nil, strings.TrimSpace(`
Only read commits reachable from these revisions (default HEAD). Can be
specified multiple times
	`))
	flags.StringVar(&f.since, "since", "", strings.TrimSpace(`
Only count commits after the given date. See git-commit(1) for valid date formats
	`))
	flags.StringVar(&f.until, "until", "", strings.TrimSpace(`
Only count commits before the given date. See git-commit(1) for valid date formats
	`))
	flags.StringArrayVar(&f.authors, "author", nil, strings.TrimSpace(`
Only count commits by these authors. Can be specified multiple times
	`))
	flags.StringArrayVar(&f.nauthors, "nauthor", nil, strings.TrimSpace(`
Exclude commits by these authors. Can be specified multiple times
	`))
	flags.BoolVar(&f.reverse, "reverse", false, "Read history oldest first")
	flags.BoolVar(
		&f.mailmap,
		"mailmap",
		false,
		"Let git rewrite authors with the repository's .mailmap before matching",
	)
}

func (f *logFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if f.reverse {
		cfg.Order = config.OrderOldest
	}
	if cmd.Flags().Changed("mailmap") {
		cfg.UseGitMailmap = f.mailmap
	}
}

func (f *logFlags) logOpts(cfg config.Config) git.LogOpts {
	return git.LogOpts{
		Revs: f.revs,
		Filters: git.LogFilters{
			Since:    f.since,
			Until:    f.until,
			Authors:  f.authors,
			Nauthors: f.nauthors,
		},
		OldestFirst: cfg.OldestFirst(),
		UseMailmap:  cfg.UseGitMailmap,
	}
}

func resolveOptions(
	cfg config.Config,
	filters logFlags,
	includeHashes bool,
) idman.Options {
	return idman.Options{
		Revs:           filters.revs,
		Since:          filters.since,
		Until:          filters.until,
		Authors:        filters.authors,
		Nauthors:       filters.nauthors,
		OldestFirst:    cfg.OldestFirst(),
		UseGitMailmap:  cfg.UseGitMailmap,
		FuzzyThreshold: cfg.FuzzyThreshold,
		AliasTable:     cfg.AliasTable,
		Composite:      cfg.Composite,
		IncludeHashes:  includeHashes,
		Jobs:           cfg.Jobs,
		Cache: idman.CacheOptions{
			Enabled: cfg.Cache.Enabled,
			Backend: cfg.Cache.Backend,
			Dir:     cfg.Cache.Dir,
		},
	}
}

// Loads config for a run against location, applies flag overrides and sets up
// logging. Config problems are usage errors.
func loadSettings(
	cmd *cobra.Command,
	global globalFlags,
	location string,
	override func(*config.Config),
) (config.Config, error) {
	cfg, err := config.Load(global.configPath, repoRoot(location))
	if err != nil {
		return cfg, clierr.Wrap(clierr.CodeUsage, "", err)
	}

	if override != nil {
		override(&cfg)
	}
	if global.verbose {
		cfg.Log.Level = "debug"
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, clierr.Wrap(clierr.CodeUsage, "invalid settings", err)
	}

	logging.Configure(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	logger().WithField("config", cfg.Path).Debug("settings loaded")

	return cfg, nil
}

// Where to look for a repository config file. Remote locations have none.
func repoRoot(location string) string {
	if location == "" || git.IsRemoteLocation(location) {
		return ""
	}

	info, err := os.Stat(location)
	if err != nil || !info.IsDir() {
		return ""
	}

	return location
}

// Indent only when a person is likely reading.
func defaultIndent(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && pretty.AllowDynamic(f)
}
