// Resolves contributor identities across the commit history of a git
// repository.
//
// Resolve runs in process and returns a typed Report. Exec runs an idman
// binary and parses what it prints, for callers that want process isolation.
package idman

import (
	"context"
	"fmt"

	"github.com/sinclairtarget/idman/internal/cache"
	"github.com/sinclairtarget/idman/internal/concurrent"
	"github.com/sinclairtarget/idman/internal/git"
	"github.com/sinclairtarget/idman/internal/git/config"
	"github.com/sinclairtarget/idman/internal/identity"
	"github.com/sinclairtarget/idman/internal/match"
	"github.com/sinclairtarget/idman/internal/report"
	"github.com/sinclairtarget/idman/internal/tally"
)

type (
	Report      = report.Report
	Identity    = report.Identity
	CommitStats = report.CommitStats

	// Implement Strategy to plug a custom matching rule into ResolveWith.
	Strategy = match.Strategy
	Fragment = match.Fragment

	RepositoryNotFoundError = git.RepositoryNotFoundError
	CorruptHistoryError     = git.CorruptHistoryError
	UnknownAlgorithmError   = match.UnknownAlgorithmError
	InvalidParamsError      = match.InvalidParamsError
	AliasTableError         = match.AliasTableError
	MalformedOutputError    = report.MalformedOutputError
)

const DefaultAlgorithm = match.DefaultAlgorithm

type CacheOptions struct {
	Enabled bool
	Backend string // gob, json, sqlite or noop
	Dir     string // Defaults to the user cache dir
}

type Options struct {
	// Which commits to read
	Revs        []string // Defaults to HEAD
	Since       string
	Until       string
	Authors     []string
	Nauthors    []string
	OldestFirst bool

	// Let git rewrite authors with its own mailmap before matching
	UseGitMailmap bool

	// Strategy settings used when no positional parameters override them
	FuzzyThreshold float64
	AliasTable     string
	Composite      []string

	IncludeHashes bool
	Jobs          int // 0 means one per CPU
	Cache         CacheOptions
}

func (opts Options) logOpts() git.LogOpts {
	return git.LogOpts{
		Revs: opts.Revs,
		Filters: git.LogFilters{
			Since:    opts.Since,
			Until:    opts.Until,
			Authors:  opts.Authors,
			Nauthors: opts.Nauthors,
		},
		OldestFirst: opts.OldestFirst,
		UseMailmap:  opts.UseGitMailmap,
	}
}

func (opts Options) matchOptions() match.Options {
	return match.Options{
		FuzzyThreshold: opts.FuzzyThreshold,
		AliasTable:     opts.AliasTable,
		Composite:      opts.Composite,
	}
}

// Lists the algorithm identifiers Resolve accepts.
func Algorithms() []string {
	return match.NewRegistry().Names()
}

// Reads the history at location and merges its authors into identities using
// the named algorithm. An unknown algorithm or unreadable alias table fails
// before the repository is touched.
func Resolve(
	ctx context.Context,
	location string,
	algorithm string,
	params []string,
	opts Options,
) (*Report, error) {
	strategy, err := match.Lookup(algorithm, params, opts.matchOptions())
	if err != nil {
		return nil, err
	}

	return ResolveWith(ctx, location, strategy, opts)
}

// Like Resolve but with an already built strategy.
func ResolveWith(
	ctx context.Context,
	location string,
	strategy Strategy,
	opts Options,
) (_ *Report, err error) {
	repo, err := git.OpenRepo(ctx, location)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger().Warn(fmt.Sprintf("failed to clean up repository: %v", err))
		}
	}()

	logOpts := opts.logOpts()
	if len(logOpts.Revs) > 0 {
		logOpts.Revs, err = repo.ParseRevs(ctx, logOpts.Revs)
		if err != nil {
			return nil, err
		}
	}

	c := openCache(ctx, repo, opts)
	defer func() {
		if err := c.Close(); err != nil {
			logger().Warn(fmt.Sprintf("failed to close cache: %v", err))
		}
	}()

	builder := identity.NewBuilder(strategy)
	err = concurrent.Read(ctx, repo, concurrent.Options{
		Log:      logOpts,
		Jobs:     opts.Jobs,
		Cache:    c,
		UseCache: c.Name() != "noop",
	}, builder.Add)
	if err != nil {
		return nil, err
	}

	clusters := builder.Clusters()
	stats := tally.Aggregate(identity.Tallies(clusters))

	logger().WithField("strategy", strategy.Name()).
		WithField("fragments", builder.NumFragments()).
		WithField("identities", len(clusters)).
		Info("resolved identities")

	return report.Build(clusters, stats, report.Options{
		IncludeHashes: opts.IncludeHashes,
	}), nil
}

func warnFail(err error) cache.Cache {
	logger().Warn(fmt.Sprintf("failed to initialize cache: %v", err))
	logger().Warn("disabling caching")
	return noopCache()
}

func noopCache() cache.Cache {
	c, _ := cache.Open("noop", "", "")
	return c
}

// Returns the repository's cache, falling back to no caching on any failure.
// Temporary clones are never cached.
func openCache(ctx context.Context, repo *git.Repo, opts Options) cache.Cache {
	if !opts.Cache.Enabled || opts.Cache.Backend == "noop" || repo.IsTemporary() {
		return noopCache()
	}

	storageDir, err := cache.StorageDir(opts.Cache.Dir)
	if err != nil {
		return warnFail(err)
	}

	files := config.SupplementalFiles{}
	if opts.UseGitMailmap {
		files, err = config.DetectSupplementalFiles(ctx, repo.GitDir, repo.WorkTree)
		if err != nil {
			return warnFail(err)
		}
	}

	stateKey, err := cache.StateKey(files, opts.UseGitMailmap)
	if err != nil {
		return warnFail(err)
	}

	repoDir := cache.RepoDir(storageDir, repo.GitDir)
	c, err := cache.Open(opts.Cache.Backend, repoDir, stateKey)
	if err != nil {
		return warnFail(err)
	}

	logger().WithField("dir", repoDir).
		WithField("backend", c.Name()).
		Debug("cache initialized")
	return c
}
