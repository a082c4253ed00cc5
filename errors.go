package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sinclairtarget/idman/internal/clierr"
	"github.com/sinclairtarget/idman/internal/pretty"
	"github.com/sinclairtarget/idman/pkg/idman"
)

// Attaches the exit code for err's kind. Errors that already carry a code
// are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var coded clierr.ExitCoder
	if errors.As(err, &coded) {
		return err
	}

	var unknownAlgorithm *idman.UnknownAlgorithmError
	var invalidParams *idman.InvalidParamsError
	var aliasTable *idman.AliasTableError
	var notFound *idman.RepositoryNotFoundError
	var corrupt *idman.CorruptHistoryError

	switch {
	case errors.As(err, &unknownAlgorithm),
		errors.As(err, &invalidParams),
		errors.As(err, &aliasTable):
		return clierr.Wrap(clierr.CodeUsage, "", err)
	case errors.As(err, &notFound):
		return clierr.Wrap(clierr.CodeRepoNotFound, "", err)
	case errors.As(err, &corrupt):
		return clierr.Wrap(clierr.CodeCorruptHistory, "", err)
	default:
		return err
	}
}

func printError(w io.Writer, err error) {
	prefix := "error:"
	if f, ok := w.(*os.File); ok && pretty.AllowColor(f) {
		prefix = pretty.Red(prefix)
	}

	fmt.Fprintf(w, "%s %s\n", prefix, err)
}
