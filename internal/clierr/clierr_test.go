package clierr_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sinclairtarget/idman/internal/clierr"
)

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, 0, clierr.ExitCodeOf(nil))
	assert.Equal(t, 1, clierr.ExitCodeOf(errors.New("boom")))
	assert.Equal(t, 2, clierr.ExitCodeOf(clierr.New(clierr.CodeUsage, "bad flag")))
	assert.Equal(t, 1, clierr.ExitCodeOf(clierr.New(0, "zero is not an error code")))

	wrapped := fmt.Errorf("outer: %w", clierr.Wrap(clierr.CodeRepoNotFound, "", fs.ErrNotExist))
	assert.Equal(t, 3, clierr.ExitCodeOf(wrapped))
	assert.ErrorIs(t, wrapped, fs.ErrNotExist)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, clierr.Wrap(clierr.CodeUsage, "msg", nil))

	err := clierr.Wrap(clierr.CodeUsage, "", errors.New("cause"))
	assert.Equal(t, "cause", err.Error())

	err = clierr.Wrap(clierr.CodeUsage, "context", errors.New("cause"))
	assert.Equal(t, "context: cause", err.Error())

	err = clierr.Newf(clierr.CodeCorruptHistory, "bad record %d", 3)
	assert.Equal(t, "bad record 3", err.Error())
	assert.Equal(t, 4, clierr.ExitCodeOf(err))
}
