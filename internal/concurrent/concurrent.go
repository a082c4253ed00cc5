// Try to get some speed up on large repos by running git log in parallel and
// by skipping commits we have already parsed on an earlier run.
//
// However records are fetched, they are handed to a single consumer on the
// calling goroutine, so whatever folds them never needs locking.
package concurrent

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/sinclairtarget/idman/internal/cache"
	"github.com/sinclairtarget/idman/internal/git"
)

// Revs handed to one git log invocation.
var chunkSize = 5_000

// Below this many uncached commits a single git log beats fanning out.
var parallelThreshold = 20_000

type Options struct {
	Log      git.LogOpts
	Jobs     int // Max concurrent git processes. 0 means one per CPU.
	Cache    cache.Cache
	UseCache bool
}

func (opts Options) jobs() int {
	if opts.Jobs > 0 {
		return opts.Jobs
	}

	return runtime.GOMAXPROCS(0)
}

func getNWorkers(jobs int, nRevs int) int {
	nChunks := (nRevs + chunkSize - 1) / chunkSize
	return max(1, min(jobs, nChunks))
}

// Reads every commit selected by opts.Log and calls fn with each one on the
// calling goroutine. Commits come back in no particular order.
func Read(
	ctx context.Context,
	repo *git.Repo,
	opts Options,
	fn func(git.Commit),
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error reading history: %w", err)
		}
	}()

	start := time.Now()
	defer func() {
		logger().WithField("duration_ms", time.Since(start).Milliseconds()).
			Debug("read history")
	}()

	sequential, err := shouldReadSequentially(ctx, repo, opts)
	if err != nil {
		return err
	}
	if sequential {
		return readSequential(ctx, repo, opts.Log, fn)
	}

	revs, err := repo.RevList(ctx, opts.Log)
	if err != nil {
		return err
	}
	logger().WithField("value", len(revs)).Debug("got commit count with rev-list")

	misses := revs
	if opts.UseCache {
		result, err := opts.Cache.Get(revs)
		if err != nil {
			logger().Warn(fmt.Sprintf("failed to read cache: %v", err))
		} else {
			for _, c := range result.Commits {
				fn(c)
			}
			misses = result.Misses(revs)
		}
	}

	if len(misses) == 0 {
		return nil
	}

	consume := fn
	var batcher *cacheBatcher
	if opts.UseCache {
		batcher = newCacheBatcher(opts.Cache)
		consume = func(c git.Commit) {
			fn(c)
			batcher.add(c)
		}
	}

	nWorkers := 1
	if len(misses) >= parallelThreshold {
		nWorkers = getNWorkers(opts.jobs(), len(misses))
	}
	logger().WithField("value", nWorkers).Debug("decided to use n workers")

	if nWorkers > 1 {
		err = readParallel(ctx, repo, misses, nWorkers, opts.Log.UseMailmap, consume)
	} else {
		err = readChunked(ctx, repo, misses, opts.Log.UseMailmap, consume)
	}
	if err != nil {
		return err
	}

	if batcher != nil {
		batcher.flush()
	}

	return nil
}

// Without a cache there is nothing to skip, so a single git log wins unless
// the history is large enough to split across workers.
func shouldReadSequentially(
	ctx context.Context,
	repo *git.Repo,
	opts Options,
) (bool, error) {
	if opts.UseCache {
		return false, nil
	}
	if opts.jobs() == 1 {
		return true, nil
	}

	nCommits, err := repo.NumCommits(ctx, opts.Log)
	if err != nil {
		return false, err
	}
	logger().WithField("value", nCommits).Debug("got commit count")

	return nCommits < parallelThreshold, nil
}

// Streams a single git log.
func readSequential(
	ctx context.Context,
	repo *git.Repo,
	opts git.LogOpts,
	fn func(git.Commit),
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	commits, closer, err := repo.Commits(ctx, opts)
	if err != nil {
		return err
	}

	for c, err := range commits {
		if err != nil {
			cancel()
			closer()
			return err
		}

		fn(c)
	}

	return closer()
}

func readChunked(
	ctx context.Context,
	repo *git.Repo,
	revs []string,
	useMailmap bool,
	fn func(git.Commit),
) error {
	for chunk := range slices.Chunk(revs, chunkSize) {
		commits, err := repo.CommitsForRevs(ctx, chunk, useMailmap)
		if err != nil {
			return err
		}

		for _, c := range commits {
			fn(c)
		}
	}

	return nil
}
