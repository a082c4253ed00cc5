package subcommands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sinclairtarget/idman/pkg/idman"
)

var algorithmUsage = map[string]string{
	"alias":     "alias [path]: merge authors mapped together by a mailmap or YAML alias table",
	"composite": "composite [member[=param]...]: merge when any member strategy matches",
	"default":   "default: same as email",
	"email":     "email: merge authors with the same case-insensitive email",
	"fuzzy":     "fuzzy [threshold]: merge authors whose names are similar enough",
	"name":      "name: merge authors with the same normalized name",
}

// Lists the algorithm identifiers the resolver accepts.
func Algorithms(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, name := range idman.Algorithms() {
		usage, ok := algorithmUsage[name]
		if !ok {
			usage = name
		}
		fmt.Fprintln(bw, usage)
	}

	return bw.Flush()
}
