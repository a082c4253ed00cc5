package git

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sinclairtarget/idman/internal/git/cmd"
	rev "github.com/sinclairtarget/idman/internal/git/revision"
)

// Expands user-supplied revisions (names, ranges, --all) into the full hashes
// git log accepts, so bad revisions fail before any history is read.
//
// We call git rev-parse to disambiguate.
func (r *Repo) ParseRevs(ctx context.Context, args []string) (_ []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("could not parse revisions %v: %w", args, err)
		}
	}()

	if len(args) == 0 {
		return []string{}, nil
	}

	subprocess, err := cmd.RunRevParse(
		ctx,
		r.dir,
		slices.Concat(args, []string{"--"}),
	)
	if err != nil {
		return nil, err
	}

	lines, finish := subprocess.StdoutLines()
	revs := []string{}
	for line := range lines {
		if line == "--" {
			continue
		}

		if !rev.IsFullHash(line) {
			subprocess.Wait()
			return nil, fmt.Errorf("unexpected rev-parse output %q", line)
		}
		revs = append(revs, line)
	}

	if err := finish(); err != nil {
		return nil, err
	}

	err = subprocess.Wait()
	if err != nil {
		return nil, err
	}

	if len(revs) == 0 {
		return nil, errors.New("no revisions matched")
	}

	return revs, nil
}
