package git

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	rev "github.com/sinclairtarget/idman/internal/git/revision"
)

// Number of NUL-delimited fields git log writes per commit.
const fieldsPerCommit = 6

func allowCommit(commit Commit) bool {
	if commit.AuthorName == "" && commit.AuthorEmail == "" {
		logger().WithField("commit", commit.Name()).
			Debug("skipping commit with no author")
		return false
	}

	return true
}

func parseParents(line string) []string {
	if line == "" {
		return nil
	}

	return strings.Fields(line)
}

// Turns an iterator over NUL-delimited fields from git log into an iterator of
// commits.
//
// Parsing stops at the first malformed record. The returned finish() reports
// it as a *CorruptHistoryError and must be called after iteration.
func ParseCommits(lines iter.Seq[string]) (iter.Seq[Commit], func() error) {
	var iterErr error

	seq := func(yield func(Commit) bool) {
		var commit Commit
		field := 0
		ordinal := 0

		fail := func(err error) {
			iterErr = &CorruptHistoryError{
				Record:  commit.Hash,
				Ordinal: ordinal,
				Err:     err,
			}
		}

		for line := range lines {
			if field == 0 {
				if line == "" {
					continue // Separator between records
				}

				ordinal += 1
				commit = Commit{}
			}

			switch field {
			case 0:
				if !rev.IsHash(line) {
					fail(fmt.Errorf("invalid commit hash %q", line))
					return
				}
				commit.Hash = line
			case 1:
				commit.ShortHash = line
			case 2:
				commit.Parents = parseParents(line)
			case 3:
				commit.AuthorName = line
			case 4:
				commit.AuthorEmail = line
			case 5:
				i, err := strconv.ParseInt(line, 10, 64)
				if err != nil {
					fail(fmt.Errorf("error parsing date: %w", err))
					return
				}
				commit.Date = time.Unix(i, 0).UTC()
			}

			field += 1
			if field == fieldsPerCommit {
				field = 0
				if allowCommit(commit) {
					if !yield(commit) {
						return
					}
				}
			}
		}

		if field > 0 {
			fail(errors.New("truncated commit record"))
		}
	}

	finish := func() error {
		return iterErr
	}

	return seq, finish
}
