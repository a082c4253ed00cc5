package subcommands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sinclairtarget/idman/internal/format"
	"github.com/sinclairtarget/idman/internal/git"
)

// Prints a simple representation of each commit idman parses from git log,
// for debugging.
func Parse(
	ctx context.Context,
	w io.Writer,
	location string,
	opts git.LogOpts,
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"parse\": %w", err)
		}
	}()

	logger().WithField("location", location).
		WithField("revs", opts.Revs).
		Debug("called parse()")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	repo, err := openRepo(ctx, location, &opts)
	if err != nil {
		return err
	}
	defer closeRepo(repo)

	commits, closer, err := repo.Commits(ctx, opts)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for commit, err := range commits {
		if err != nil {
			cancel()
			closer()
			return fmt.Errorf("error iterating commits: %w", err)
		}

		fmt.Fprintln(bw, format.CommitLine(
			commit.Name(),
			commit.Date.UTC().Format(time.RFC3339),
			commit.AuthorName,
			commit.AuthorEmail,
			commit.IsMerge(),
		))
	}

	err = bw.Flush()
	if err != nil {
		cancel()
		closer()
		return err
	}

	return closer()
}
