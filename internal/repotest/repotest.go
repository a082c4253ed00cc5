// Helpers for building throwaway git repositories in tests.
package repotest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// One commit to create. Date is in epoch seconds.
type CommitSpec struct {
	Name    string
	Email   string
	Date    int64
	Message string
}

// Skips the test when git is not installed.
func RequireGit(t testing.TB) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found on PATH")
	}
}

func isolatedEnv() []string {
	return append(
		os.Environ(),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_CONFIG_GLOBAL="+os.DevNull,
		"GIT_COMMITTER_NAME=idman test",
		"GIT_COMMITTER_EMAIL=test@idman.invalid",
	)
}

// Runs git in dir and returns its trimmed output, failing the test on error.
func Git(t testing.TB, dir string, env []string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(isolatedEnv(), env...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}

	return strings.TrimSpace(string(out))
}

// Creates an empty repository in a temporary directory.
func Init(t testing.TB) string {
	t.Helper()
	RequireGit(t)

	dir := filepath.Join(t.TempDir(), "repo")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("could not create repo dir: %v", err)
	}

	Git(t, dir, nil, "init", "--quiet", "--initial-branch=main")
	return dir
}

// Adds an empty commit with the given authorship and returns its hash.
func Commit(t testing.TB, dir string, spec CommitSpec) string {
	t.Helper()

	date := fmt.Sprintf("@%d +0000", spec.Date)
	msg := spec.Message
	if msg == "" {
		msg = fmt.Sprintf("commit by %s at %d", spec.Name, spec.Date)
	}

	env := []string{
		"GIT_AUTHOR_NAME=" + spec.Name,
		"GIT_AUTHOR_EMAIL=" + spec.Email,
		"GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_DATE=" + date,
	}

	Git(
		t,
		dir,
		env,
		"-c", "commit.gpgsign=false",
		"commit", "--quiet", "--allow-empty", "-m", msg,
	)
	return Git(t, dir, nil, "rev-parse", "HEAD")
}

// Creates a repository holding the given commits in order.
func NewRepo(t testing.TB, commits []CommitSpec) string {
	t.Helper()

	dir := Init(t)
	for _, c := range commits {
		Commit(t, dir, c)
	}

	return dir
}
