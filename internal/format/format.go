/*
* Utility functions for formatting output.
 */
package format

import "fmt"

// Print string with max length, truncating with ellipsis.
func Abbrev(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max-1] + "…"
}

func GitEmail(email string) string {
	return fmt.Sprintf("<%s>", email)
}

// Formats an author the way git prints one.
func Author(name string, email string) string {
	if name == "" {
		return GitEmail(email)
	}

	return fmt.Sprintf("%s %s", name, GitEmail(email))
}

// One line describing a parsed commit.
func CommitLine(
	hash string,
	date string,
	name string,
	email string,
	isMerge bool,
) string {
	line := fmt.Sprintf("%-10s %s %s", Abbrev(hash, 10), date, Author(name, email))
	if isMerge {
		line += " (merge)"
	}

	return line
}
