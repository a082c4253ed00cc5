package git

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sinclairtarget/idman/internal/git/cmd"
)

var remoteLocationRegexp = regexp.MustCompile(
	`^([a-z][a-z0-9+.-]*://|[A-Za-z0-9._-]+@[A-Za-z0-9._-]+:)`,
)

// IsRemoteLocation reports whether location names a remote repository that
// must be cloned before it can be read.
func IsRemoteLocation(location string) bool {
	return remoteLocationRegexp.MatchString(location)
}

// A repository whose history we can read. Exclusively owns any temporary
// clone made for it until Close() is called.
type Repo struct {
	Location string // As given by the caller
	GitDir   string // Absolute path to the git directory
	WorkTree string // Empty for bare repositories
	dir      string // Where git subprocesses run
	tempDir  string
}

type LogOpts = cmd.LogOpts
type LogFilters = cmd.LogFilters

// Opens the repository at location, cloning it first when it is remote.
//
// Returns a *RepositoryNotFoundError when there is no repository there.
func OpenRepo(ctx context.Context, location string) (_ *Repo, err error) {
	if strings.TrimSpace(location) == "" {
		return nil, &RepositoryNotFoundError{
			Location: location,
			Err:      errors.New("empty repository location"),
		}
	}

	repo := &Repo{Location: location}

	if IsRemoteLocation(location) {
		err = repo.clone(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		info, err := os.Stat(location)
		if err != nil {
			return nil, &RepositoryNotFoundError{Location: location, Err: err}
		}
		if !info.IsDir() {
			return nil, &RepositoryNotFoundError{
				Location: location,
				Err:      errors.New("not a directory"),
			}
		}

		repo.dir, err = filepath.Abs(location)
		if err != nil {
			return nil, &RepositoryNotFoundError{Location: location, Err: err}
		}
	}

	defer func() {
		if err != nil {
			repo.Close()
		}
	}()

	subprocess, err := cmd.RunRevParse(
		ctx,
		repo.dir,
		[]string{"--absolute-git-dir", "--is-bare-repository"},
	)
	if err != nil {
		return nil, err
	}

	out, err := subprocess.Output()
	if err != nil {
		return nil, &RepositoryNotFoundError{Location: location, Err: err}
	}

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		return nil, &RepositoryNotFoundError{
			Location: location,
			Err:      fmt.Errorf("unexpected rev-parse output %q", out),
		}
	}

	repo.GitDir = strings.TrimSpace(lines[0])
	if strings.TrimSpace(lines[1]) != "true" {
		repo.WorkTree, err = repo.showTopLevel(ctx)
		if err != nil {
			return nil, &RepositoryNotFoundError{Location: location, Err: err}
		}
	}

	logger().WithField("gitdir", repo.GitDir).
		WithField("worktree", repo.WorkTree).
		Debug("opened repository")

	return repo, nil
}

func (r *Repo) showTopLevel(ctx context.Context) (string, error) {
	subprocess, err := cmd.RunRevParse(ctx, r.dir, []string{"--show-toplevel"})
	if err != nil {
		return "", err
	}

	return subprocess.Output()
}

func (r *Repo) clone(ctx context.Context) error {
	tempDir, err := os.MkdirTemp("", "idman-clone-*")
	if err != nil {
		return fmt.Errorf("could not create clone directory: %w", err)
	}
	r.tempDir = tempDir
	r.dir = filepath.Join(tempDir, "repo.git")

	logger().WithField("location", r.Location).Info("cloning remote repository")

	subprocess, err := cmd.RunClone(ctx, r.Location, r.dir)
	if err != nil {
		r.Close()
		return err
	}

	_, err = subprocess.Output()
	if err != nil {
		r.Close()
		return &RepositoryNotFoundError{Location: r.Location, Err: err}
	}

	return nil
}

// Whether the repo is a temporary clone of a remote location.
func (r *Repo) IsTemporary() bool {
	return r.tempDir != ""
}

// Releases any temporary clone. Safe to call more than once.
func (r *Repo) Close() error {
	if r.tempDir == "" {
		return nil
	}

	err := os.RemoveAll(r.tempDir)
	r.tempDir = ""
	return err
}

// Reports whether HEAD points at a commit. False for freshly initialized
// repositories.
func (r *Repo) HasCommits(ctx context.Context) (bool, error) {
	subprocess, err := cmd.RunRevParse(
		ctx,
		r.dir,
		[]string{"--verify", "--quiet", "HEAD^{commit}"},
	)
	if err != nil {
		return false, err
	}

	_, err = subprocess.Output()
	if err != nil {
		var subprocessErr cmd.SubprocessErr
		if errors.As(err, &subprocessErr) && subprocessErr.ExitCode == 1 {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// Fills in the default revision. Returns false if there is nothing to read.
func (r *Repo) normalizeOpts(ctx context.Context, opts LogOpts) (LogOpts, bool, error) {
	if len(opts.Revs) > 0 {
		return opts, true, nil
	}

	hasCommits, err := r.HasCommits(ctx)
	if err != nil {
		return opts, false, &CorruptHistoryError{Err: err}
	}
	if !hasCommits {
		logger().Debug("repository has no commits")
		return opts, false, nil
	}

	opts.Revs = []string{"HEAD"}
	return opts, true, nil
}

func emptyCommits() (iter.Seq2[Commit, error], func() error) {
	seq := func(yield func(Commit, error) bool) {}
	return seq, func() error { return nil }
}

// Returns an iterator over the commits selected by opts, newest first unless
// opts.OldestFirst is set. Each call runs a new git log.
//
// Also returns a closer() that waits for git to exit. It must be called after
// iteration; if iteration stopped early, cancel ctx first.
func (r *Repo) Commits(ctx context.Context, opts LogOpts) (
	iter.Seq2[Commit, error],
	func() error,
	error,
) {
	opts, ok, err := r.normalizeOpts(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		seq, closer := emptyCommits()
		return seq, closer, nil
	}

	subprocess, err := cmd.RunLog(ctx, r.dir, opts)
	if err != nil {
		return nil, nil, err
	}

	lines, finishLines := subprocess.StdoutNullDelimitedLines()
	commits, finishParse := ParseCommits(lines)

	seq := func(yield func(Commit, error) bool) {
		for c := range commits {
			if !yield(c, nil) {
				return
			}
		}

		if err := finishLines(); err != nil {
			yield(Commit{}, &CorruptHistoryError{Err: err})
			return
		}

		if err := finishParse(); err != nil {
			yield(Commit{}, err)
		}
	}

	closer := func() error {
		err := subprocess.Wait()
		if err != nil {
			return &CorruptHistoryError{Err: err}
		}
		return nil
	}

	return seq, closer, nil
}

// Returns the NUL-delimited fields of git log exactly as idman reads them,
// before parsing. The closer waits for git to exit.
func (r *Repo) LogFields(ctx context.Context, opts LogOpts) (
	iter.Seq[string],
	func() error,
	error,
) {
	opts, ok, err := r.normalizeOpts(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return func(yield func(string) bool) {}, func() error { return nil }, nil
	}

	subprocess, err := cmd.RunLog(ctx, r.dir, opts)
	if err != nil {
		return nil, nil, err
	}

	lines, finishLines := subprocess.StdoutNullDelimitedLines()
	closer := func() error {
		scanErr := finishLines()
		waitErr := subprocess.Wait()
		if scanErr != nil {
			return &CorruptHistoryError{Err: scanErr}
		}
		if waitErr != nil {
			return &CorruptHistoryError{Err: waitErr}
		}
		return nil
	}

	return lines, closer, nil
}

// Returns the hashes of the commits selected by opts.
func (r *Repo) RevList(ctx context.Context, opts LogOpts) (_ []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error listing revisions: %w", err)
		}
	}()

	opts, ok, err := r.normalizeOpts(ctx, opts)
	if err != nil || !ok {
		return []string{}, err
	}

	subprocess, err := cmd.RunRevList(ctx, r.dir, opts, false)
	if err != nil {
		return nil, err
	}

	lines, finish := subprocess.StdoutLines()
	revs := slices.Collect(lines)
	if err := finish(); err != nil {
		return nil, err
	}

	err = subprocess.Wait()
	if err != nil {
		return nil, &CorruptHistoryError{Err: err}
	}

	return revs, nil
}

// Returns the number of commits selected by opts.
func (r *Repo) NumCommits(ctx context.Context, opts LogOpts) (_ int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error getting commit count: %w", err)
		}
	}()

	opts, ok, err := r.normalizeOpts(ctx, opts)
	if err != nil || !ok {
		return 0, err
	}

	subprocess, err := cmd.RunRevList(ctx, r.dir, opts, true)
	if err != nil {
		return 0, err
	}

	out, err := subprocess.Output()
	if err != nil {
		return 0, &CorruptHistoryError{Err: err}
	}

	return strconv.Atoi(out)
}

// Reads the commits named by revs using git log --stdin.
//
// The whole batch is parsed before returning so the subprocess is always
// reaped.
func (r *Repo) CommitsForRevs(
	ctx context.Context,
	revs []string,
	useMailmap bool,
) (_ []Commit, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error reading commits for revisions: %w", err)
		}
	}()

	if len(revs) == 0 {
		return []Commit{}, nil
	}

	subprocess, err := cmd.RunStdinLog(ctx, r.dir, useMailmap)
	if err != nil {
		return nil, err
	}

	w, stdinCloser := subprocess.StdinWriter()
	go func() {
		for _, rev := range revs {
			fmt.Fprintln(w, rev)
		}
		w.Flush()
		stdinCloser()
	}()

	lines, finishLines := subprocess.StdoutNullDelimitedLines()
	seq, finishParse := ParseCommits(lines)
	commits := slices.Collect(seq)

	if err := finishLines(); err != nil {
		return nil, &CorruptHistoryError{Err: err}
	}
	if err := finishParse(); err != nil {
		return nil, err
	}

	err = subprocess.Wait()
	if err != nil {
		return nil, &CorruptHistoryError{Err: err}
	}

	return commits, nil
}
