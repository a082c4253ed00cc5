package subcommands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sinclairtarget/idman/internal/git"
)

// Just prints out the output of git log as seen by idman, one field per line.
// Newlines inside fields are escaped.
func Dump(
	ctx context.Context,
	w io.Writer,
	location string,
	opts git.LogOpts,
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"dump\": %w", err)
		}
	}()

	logger().WithField("location", location).
		WithField("revs", opts.Revs).
		WithField("filters", opts.Filters).
		Debug("called dump()")

	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	repo, err := openRepo(ctx, location, &opts)
	if err != nil {
		return err
	}
	defer closeRepo(repo)

	lines, closer, err := repo.LogFields(ctx, opts)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for line := range lines {
		fmt.Fprintln(bw, strings.ReplaceAll(line, "\n", "\\n"))
	}

	err = bw.Flush()
	if err != nil {
		cancel()
		closer()
		return err
	}

	err = closer()
	if err != nil {
		return err
	}

	logger().WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("finished dump")

	return nil
}

// Opens the repository and expands any revisions in opts in place.
func openRepo(
	ctx context.Context,
	location string,
	opts *git.LogOpts,
) (_ *git.Repo, err error) {
	repo, err := git.OpenRepo(ctx, location)
	if err != nil {
		return nil, err
	}

	if len(opts.Revs) > 0 {
		opts.Revs, err = repo.ParseRevs(ctx, opts.Revs)
		if err != nil {
			closeRepo(repo)
			return nil, err
		}
	}

	return repo, nil
}

func closeRepo(repo *git.Repo) {
	if err := repo.Close(); err != nil {
		logger().Warn(fmt.Sprintf("failed to clean up repository: %v", err))
	}
}
