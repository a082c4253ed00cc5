/*
* Handles reading Git configuration.
 */
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sinclairtarget/idman/internal/git/cmd"
)

func repoMailmapPath(workTree string) string {
	return filepath.Join(workTree, ".mailmap")
}

// Looks up a file pointed to by the mailmap.file setting in the git config.
func globalMailmapPath(ctx context.Context, dir string) (string, error) {
	subprocess, err := cmd.RunConfigGet(
		ctx,
		dir,
		[]string{"--type=path", "mailmap.file"},
	)
	if err != nil {
		return "", err
	}

	p, err := subprocess.Output()
	if err != nil {
		var subprocessErr cmd.SubprocessErr
		if errors.As(err, &subprocessErr) {
			// git config exits 1 when the key is not set
			logger().WithField("exitcode", subprocessErr.ExitCode).
				Debug("mailmap.file not present in config")
			return "", nil
		}

		return "", err
	}

	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not expand mailmap path: %w", err)
		}
		p = filepath.Join(home, p[1:])
	}

	return p, nil
}

// Checks to see whether the mailmap files git would consult exist on disk.
//
// workTree may be empty for bare repositories, in which case only the
// configured mailmap.file is considered.
func DetectSupplementalFiles(
	ctx context.Context,
	gitDir string,
	workTree string,
) (_ SupplementalFiles, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf(
				"error while checking for supplemental configuration files: %w",
				err,
			)
		}
	}()

	var files SupplementalFiles

	// Repo-local mailmap
	if workTree != "" {
		mailmapPath := repoMailmapPath(workTree)
		_, err = os.Stat(mailmapPath)
		if err == nil {
			files.RepoMailmapPath = mailmapPath
		} else if !errors.Is(err, os.ErrNotExist) {
			return files, err
		}
	}

	// Git config mailmap
	mailmapPath, err := globalMailmapPath(ctx, gitDir)
	if err != nil {
		return files, err
	}

	if len(mailmapPath) > 0 {
		_, err = os.Stat(mailmapPath)
		if err == nil {
			files.GlobalMailmapPath = mailmapPath
		} else if !errors.Is(err, os.ErrNotExist) {
			return files, err
		}
	}

	return files, nil
}
