/*
* Handles invoking Git as a subprocess.
 */
package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

const (
	logFormat        = "--pretty=format:%H%x00%h%x00%P%x00%an%x00%ae%x00%ad%x00"
	mailmapLogFormat = "--pretty=format:%H%x00%h%x00%P%x00%aN%x00%aE%x00%ad%x00"
)

type LogOpts struct {
	Revs        []string
	Filters     LogFilters
	OldestFirst bool
	UseMailmap  bool
}

func baseLogArgs(useMailmap bool, oldestFirst bool) []string {
	var args []string
	if useMailmap {
		args = []string{
			"log",
			mailmapLogFormat,
			"-z",
			"--date=unix",
			"--no-show-signature",
		}
	} else {
		args = []string{
			"log",
			logFormat,
			"-z",
			"--date=unix",
			"--no-show-signature",
			"--no-mailmap",
		}
	}

	if oldestFirst {
		args = append(args, "--reverse")
	}

	return args
}

// Runs git log
func RunLog(ctx context.Context, dir string, opts LogOpts) (*Subprocess, error) {
	args := slices.Concat(
		baseLogArgs(opts.UseMailmap, opts.OldestFirst),
		opts.Filters.ToArgs(),
		opts.Revs,
		[]string{"--"},
	)

	needStdin := false
	subprocess, err := run(ctx, dir, args, needStdin)
	if err != nil {
		return nil, fmt.Errorf("failed to run git log: %w", err)
	}

	return subprocess, nil
}

// Runs git log --stdin. Revisions are written to the subprocess by the caller.
func RunStdinLog(
	ctx context.Context,
	dir string,
	useMailmap bool,
) (*Subprocess, error) {
	args := slices.Concat(
		baseLogArgs(useMailmap, false),
		[]string{"--stdin", "--no-walk=unsorted"},
	)

	needStdin := true
	subprocess, err := run(ctx, dir, args, needStdin)
	if err != nil {
		return nil, fmt.Errorf("error running git log --stdin: %w", err)
	}

	return subprocess, nil
}

// Runs git rev-parse with the given arguments
func RunRevParse(
	ctx context.Context,
	dir string,
	args []string,
) (*Subprocess, error) {
	needStdin := false
	subprocess, err := run(
		ctx,
		dir,
		slices.Concat([]string{"rev-parse"}, args),
		needStdin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run git rev-parse: %w", err)
	}

	return subprocess, nil
}

// Runs git rev-list. When countOnly is true, passes --count, which is much
// faster than printing then getting all the revisions when all you need is the
// count.
func RunRevList(
	ctx context.Context,
	dir string,
	opts LogOpts,
	countOnly bool,
) (*Subprocess, error) {
	if len(opts.Revs) == 0 {
		return nil, errors.New("git rev-list requires revision spec")
	}

	baseArgs := []string{"rev-list"}
	if countOnly {
		baseArgs = append(baseArgs, "--count")
	} else if opts.OldestFirst {
		baseArgs = append(baseArgs, "--reverse")
	}

	args := slices.Concat(
		baseArgs,
		opts.Filters.ToArgs(),
		opts.Revs,
		[]string{"--"},
	)

	needStdin := false
	subprocess, err := run(ctx, dir, args, needStdin)
	if err != nil {
		return nil, fmt.Errorf("failed to run git rev-list: %w", err)
	}

	return subprocess, nil
}

// Runs git config --get
func RunConfigGet(
	ctx context.Context,
	dir string,
	args []string,
) (*Subprocess, error) {
	needStdin := false
	subprocess, err := run(
		ctx,
		dir,
		slices.Concat([]string{"config", "--get"}, args),
		needStdin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run git config: %w", err)
	}

	return subprocess, nil
}

// Runs a partial bare clone that only fetches commits and trees.
func RunClone(ctx context.Context, url string, dest string) (*Subprocess, error) {
	args := []string{
		"clone",
		"--bare",
		"--quiet",
		"--filter=blob:none",
		"--",
		url,
		dest,
	}

	needStdin := false
	subprocess, err := run(ctx, "", args, needStdin)
	if err != nil {
		return nil, fmt.Errorf("failed to run git clone: %w", err)
	}

	return subprocess, nil
}
