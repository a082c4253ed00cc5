package cmd

import (
	"fmt"
	"strings"
)

type LogFilters struct {
	Since    string
	Until    string
	Authors  []string
	Nauthors []string
}

// Turn into CLI args we can pass to `git log`
func (f LogFilters) ToArgs() []string {
	args := []string{}

	if f.Since != "" {
		args = append(args, "--since", f.Since)
	}

	if f.Until != "" {
		args = append(args, "--until", f.Until)
	}

	for _, author := range f.Authors {
		args = append(args, "--author", author)
	}

	if len(f.Nauthors) > 0 {
		args = append(args, "--perl-regexp")

		// Negative lookahead OR-ing together all the excluded authors
		regex := fmt.Sprintf(`^((?!%s).*)$`, strings.Join(f.Nauthors, "|"))
		args = append(args, "--author", regex)
	}

	return args
}
