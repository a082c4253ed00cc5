package idman

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/sinclairtarget/idman/internal/report"
)

// The idman binary could not be run or exited with a non-zero status.
type ExecError struct {
	Binary   string
	ExitCode int // -1 when the process never ran to completion
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}

	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s exited with status %d: %s", e.Binary, e.ExitCode, msg)
	}

	return fmt.Sprintf("could not run %s: %s", e.Binary, msg)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Runs an idman binary against location and parses the report it prints.
//
// Arguments are passed directly to the process, never through a shell. A
// non-zero exit is an *ExecError carrying the binary's stderr; output that is
// not a well-formed report is a *MalformedOutputError. A partial report is
// never returned.
func Exec(
	ctx context.Context,
	binary string,
	location string,
	algorithm string,
	params ...string,
) (*Report, error) {
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}

	args := slices.Concat(
		[]string{"--compact", "--", location, algorithm},
		params,
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger().WithField("binary", binary).
		WithField("args", args).
		Debug("running idman")

	err := cmd.Run()
	if err != nil {
		execErr := &ExecError{
			Binary:   binary,
			ExitCode: -1,
			Stderr:   stderr.String(),
			Err:      err,
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			execErr.ExitCode = exitErr.ExitCode()
		}

		return nil, execErr
	}

	return report.DecodeBytes(stdout.Bytes())
}
