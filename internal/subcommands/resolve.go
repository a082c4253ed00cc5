package subcommands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sinclairtarget/idman/internal/report"
	"github.com/sinclairtarget/idman/pkg/idman"
)

type OutputOptions struct {
	Indent   bool
	XLSXPath string // Also write a workbook here when set
}

// Resolves identities in the repository at location and writes the report to
// w as one JSON document.
func Resolve(
	ctx context.Context,
	w io.Writer,
	location string,
	algorithm string,
	params []string,
	opts idman.Options,
	out OutputOptions,
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error resolving identities: %w", err)
		}
	}()

	logger().WithField("location", location).
		WithField("algorithm", algorithm).
		WithField("params", params).
		Debug("called resolve()")

	start := time.Now()

	r, err := idman.Resolve(ctx, location, algorithm, params, opts)
	if err != nil {
		return err
	}

	if out.XLSXPath != "" {
		err = report.WriteXLSX(out.XLSXPath, r)
		if err != nil {
			return err
		}
	}

	err = report.Write(w, r, out.Indent)
	if err != nil {
		return err
	}

	logger().WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("finished resolve")

	return nil
}
