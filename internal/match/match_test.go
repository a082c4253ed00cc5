package match_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sinclairtarget/idman/internal/match"
)

func frag(name, email string) match.Fragment {
	return match.Fragment{Name: name, Email: email}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Alice Smith":    "alice smith",
		"  alice  SMITH": "alice smith",
		"alice.smith":    "alice smith",
		"José-María":     "josé maría",
		"---":            "",
	}

	for in, expected := range tests {
		assert.Equal(t, expected, match.NormalizeName(in), "input %q", in)
	}
}

func TestExactEmail(t *testing.T) {
	s := match.ExactEmail{}

	assert.True(t, s.Match(frag("Al", "a@x.com"), frag("Alice", "A@X.com ")))
	assert.False(t, s.Match(frag("Al", "a@x.com"), frag("Al", "alice@y.com")))
	assert.False(t, s.Match(frag("Al", ""), frag("Bo", "")), "empty emails never match")
}

func TestNormalizedName(t *testing.T) {
	s := match.NormalizedName{}

	assert.True(t, s.Match(frag("Alice Smith", "a@x.com"), frag("alice.smith", "b@y.com")))
	assert.False(t, s.Match(frag("Alice", "a@x.com"), frag("Alicia", "a@x.com")))
	assert.False(t, s.Match(frag("", "a@x.com"), frag("", "b@y.com")))
}

func TestFuzzyName(t *testing.T) {
	s, err := match.NewFuzzyName(0.8)
	assert.NoError(t, err)

	assert.True(t, s.Match(frag("Jonathan Smith", ""), frag("Jonathon Smith", "")))
	assert.False(t, s.Match(frag("Alice", ""), frag("Bob", "")))

	_, err = match.NewFuzzyName(1.5)
	assert.Error(t, err)

	_, err = match.NewFuzzyName(math.NaN())
	assert.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, match.Similarity("alice", "alice"))
	assert.Equal(t, 0.0, match.Similarity("alice", ""))
	assert.InDelta(t, 0.8, match.Similarity("alice", "alicf"), 0.0001)
}

func TestCompositeFirstMatchWins(t *testing.T) {
	s := match.NewComposite(match.ExactEmail{}, match.NormalizedName{})

	explainer, ok := s.(match.Explainer)
	if !assert.True(t, ok) {
		return
	}

	by, ok := explainer.MatchedBy(frag("Al", "a@x.com"), frag("Al", "a@x.com"))
	assert.True(t, ok)
	assert.Equal(t, "email", by, "earlier member should win when both match")

	by, ok = explainer.MatchedBy(frag("Al", "a@x.com"), frag("Al", "al@y.com"))
	assert.True(t, ok)
	assert.Equal(t, "name", by)

	_, ok = explainer.MatchedBy(frag("Al", "a@x.com"), frag("Bo", "b@y.com"))
	assert.False(t, ok)
}

func TestCompositeIndexing(t *testing.T) {
	indexed := match.NewComposite(match.ExactEmail{}, match.NormalizedName{})
	_, ok := indexed.(match.Indexer)
	assert.True(t, ok, "composite of indexers should be an indexer")

	fuzzy, _ := match.NewFuzzyName(0.9)
	pairwise := match.NewComposite(match.ExactEmail{}, fuzzy)
	_, ok = pairwise.(match.Indexer)
	assert.False(t, ok, "composite with a pairwise member cannot be indexed")
}

// Indexers must agree with their own Match.
func TestIndexerKeysAgreeWithMatch(t *testing.T) {
	fragments := []match.Fragment{
		frag("Al", "a@x.com"),
		frag("Alice", "A@x.com"),
		frag("al", "al@y.com"),
		frag("Bo", ""),
		frag("", "b@y.com"),
	}

	strategies := []match.Indexer{
		match.ExactEmail{},
		match.NormalizedName{},
		match.NewComposite(match.ExactEmail{}, match.NormalizedName{}).(match.Indexer),
	}

	for _, s := range strategies {
		for _, a := range fragments {
			for _, b := range fragments {
				shared := false
				for _, ka := range s.Keys(a) {
					for _, kb := range s.Keys(b) {
						shared = shared || ka == kb
					}
				}

				assert.Equal(
					t,
					shared,
					s.Match(a, b),
					"%s: %v vs %v",
					s.Name(),
					a,
					b,
				)
			}
		}
	}
}
