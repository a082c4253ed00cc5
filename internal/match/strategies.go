package match

import (
	"fmt"
	"math"
	"strings"
)

// Same email address, ignoring case and surrounding whitespace.
type ExactEmail struct{}

func (ExactEmail) Name() string {
	return "email"
}

func (s ExactEmail) Match(a, b Fragment) bool {
	return sharesKey(s, a, b)
}

func (ExactEmail) Keys(f Fragment) []string {
	email := NormalizeEmail(f.Email)
	if email == "" {
		return nil
	}

	return []string{email}
}

// Same name after normalization.
type NormalizedName struct{}

func (NormalizedName) Name() string {
	return "name"
}

func (s NormalizedName) Match(a, b Fragment) bool {
	return sharesKey(s, a, b)
}

func (NormalizedName) Keys(f Fragment) []string {
	name := NormalizeName(f.Name)
	if name == "" {
		return nil
	}

	return []string{name}
}

const DefaultFuzzyThreshold = 0.85

// Names whose similarity is at least Threshold.
//
// Not transitive and not indexable: the builder compares every pair.
type FuzzyName struct {
	Threshold float64
}

func NewFuzzyName(threshold float64) (FuzzyName, error) {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return FuzzyName{}, fmt.Errorf(
			"fuzzy threshold must be in (0, 1], got %v",
			threshold,
		)
	}

	return FuzzyName{Threshold: threshold}, nil
}

func (FuzzyName) Name() string {
	return "fuzzy"
}

func (s FuzzyName) Match(a, b Fragment) bool {
	nameA := NormalizeName(a.Name)
	nameB := NormalizeName(b.Name)
	if nameA == "" || nameB == "" {
		return false
	}

	return Similarity(nameA, nameB) >= s.Threshold
}

// Tries each member in order; the first one that matches wins and later
// members are not consulted.
type Composite struct {
	Members []Strategy
}

// Returns a composite that is also an Indexer when every member is one.
func NewComposite(members ...Strategy) Strategy {
	c := Composite{Members: members}

	for _, m := range members {
		if _, ok := m.(Indexer); !ok {
			return c
		}
	}

	return indexedComposite{c}
}

func (c Composite) Name() string {
	names := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		names = append(names, m.Name())
	}

	return "composite(" + strings.Join(names, ",") + ")"
}

func (c Composite) Match(a, b Fragment) bool {
	_, ok := c.MatchedBy(a, b)
	return ok
}

func (c Composite) MatchedBy(a, b Fragment) (string, bool) {
	for _, m := range c.Members {
		if m.Match(a, b) {
			return m.Name(), true
		}
	}

	return "", false
}

type indexedComposite struct {
	Composite
}

// Member keys are prefixed with the member's position so keys from different
// strategies never collide.
func (c indexedComposite) Keys(f Fragment) []string {
	keys := []string{}
	for i, m := range c.Members {
		for _, k := range m.(Indexer).Keys(f) {
			keys = append(keys, fmt.Sprintf("%d:%s", i, k))
		}
	}

	return keys
}

func sharesKey(ix Indexer, a, b Fragment) bool {
	keysA := ix.Keys(a)
	if len(keysA) == 0 {
		return false
	}

	for _, kb := range ix.Keys(b) {
		for _, ka := range keysA {
			if ka == kb {
				return true
			}
		}
	}

	return false
}
