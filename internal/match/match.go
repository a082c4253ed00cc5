// Matching strategies decide whether two observed (name, email) pairs belong
// to the same person.
//
// Strategies are pure and stateless once constructed. A strategy that also
// implements Indexer promises that Match(a, b) is true exactly when a and b
// share at least one key, which lets the identity builder avoid comparing
// every pair of fragments.
package match

import (
	"strings"
	"unicode"
)

// A single observed (name, email) pair.
type Fragment struct {
	Name  string
	Email string
}

func (f Fragment) String() string {
	return f.Name + " <" + f.Email + ">"
}

type Strategy interface {
	Name() string
	Match(a, b Fragment) bool
}

type Indexer interface {
	Strategy
	Keys(f Fragment) []string
}

// Implemented by strategies built from other strategies.
type Explainer interface {
	MatchedBy(a, b Fragment) (string, bool)
}

// Lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Lowercases a name and collapses runs of punctuation and whitespace into a
// single space, so "Alice  Smith", "alice.smith" and "SMITH, Alice" differ
// only in word order.
func NormalizeName(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	return strings.Join(words, " ")
}
