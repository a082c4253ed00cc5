package cmd_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sinclairtarget/idman/internal/git/cmd"
)

func TestFiltersToArgs(t *testing.T) {
	tests := []struct {
		name     string
		filters  cmd.LogFilters
		expected []string
	}{
		{
			name:     "empty",
			filters:  cmd.LogFilters{},
			expected: []string{},
		},
		{
			name: "dates",
			filters: cmd.LogFilters{
				Since: "2024-01-01",
				Until: "2 weeks ago",
			},
			expected: []string{
				"--since", "2024-01-01",
				"--until", "2 weeks ago",
			},
		},
		{
			name: "authors",
			filters: cmd.LogFilters{
				Authors:  []string{"alice", "bob"},
				Nauthors: []string{"bot", "ci"},
			},
			expected: []string{
				"--author", "alice",
				"--author", "bob",
				"--perl-regexp",
				"--author", "^((?!bot|ci).*)$",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			args := test.filters.ToArgs()
			if diff := cmp.Diff(test.expected, args); diff != "" {
				t.Errorf("args are wrong:\n%s", diff)
			}
		})
	}
}
