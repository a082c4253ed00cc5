package concurrent

import (
	"context"
	"fmt"
	"sync"

	"github.com/sinclairtarget/idman/internal/git"
)

// Write chunks of work to our work queue to be handled by workers downstream.
func runWriter(ctx context.Context, revs []string, q chan<- []string) {
	logger().Debug("writer started")
	defer logger().Debug("writer exited")
	defer close(q)

	i := 0
	for i < len(revs) {
		select {
		case <-ctx.Done():
			return
		case q <- revs[i:min(i+chunkSize, len(revs))]:
			i += chunkSize
		}
	}
}

// A worker that runs git log for each chunk of work.
func runWorker(
	ctx context.Context,
	id int,
	repo *git.Repo,
	useMailmap bool,
	in <-chan []string,
	results chan<- []git.Commit,
) (err error) {
	logger := logger().WithField("workerId", id)
	logger.Debug("worker started")

	defer func() {
		if err != nil {
			err = fmt.Errorf("error in worker %d: %w", id, err)
		}

		logger.Debug("worker exited")
	}()

	for {
		var revs []string
		var ok bool

		select {
		case <-ctx.Done():
			return ctx.Err()
		case revs, ok = <-in:
			if !ok {
				return nil // We're done, input channel is closed
			}
		}

		commits, err := repo.CommitsForRevs(ctx, revs, useMailmap)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case results <- commits:
		}
	}
}

// Fans revs out to nWorkers git processes. Results are consumed here, on the
// calling goroutine. The first worker error cancels the rest.
func readParallel(
	ctx context.Context,
	repo *git.Repo,
	revs []string,
	nWorkers int,
	useMailmap bool,
	fn func(git.Commit),
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	q := make(chan []string)
	results := make(chan []git.Commit)
	errs := make(chan error, nWorkers)

	go runWriter(ctx, revs, q)

	var wg sync.WaitGroup
	for id := 1; id <= nWorkers; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := runWorker(ctx, id, repo, useMailmap, q, results)
			if err != nil {
				errs <- err
				cancel()
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for commits := range results {
		for _, c := range commits {
			fn(c)
		}
	}

	select {
	case err := <-errs:
		return err
	default:
	}

	// Workers exit quietly only once the queue is drained, unless the caller
	// cancelled us.
	return ctx.Err()
}
