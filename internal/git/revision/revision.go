package revision

import (
	"regexp"
)

var commitHashRegexp = regexp.MustCompile(`^\^?[a-f0-9]+$`)

// Returns true if this is a full-length SHA-1 or SHA-256 object name, false
// otherwise.
//
// We also need to handle a hash with "^" in front.
func IsFullHash(s string) bool {
	if !commitHashRegexp.MatchString(s) {
		return false
	}

	n := len(s)
	if s[0] == '^' {
		n -= 1
	}

	return n == 40 || n == 64
}

// Returns true if s could be an abbreviated or full object name.
func IsHash(s string) bool {
	return len(s) >= 4 && s[0] != '^' && commitHashRegexp.MatchString(s)
}
