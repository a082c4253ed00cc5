// Merges observed (name, email) fragments into identity clusters.
//
// Clustering is incremental union-find: each new fragment is compared with
// the fragments already known (only those sharing a key, when the strategy
// can be indexed) and unioned with every one it matches. Union-find always
// forms the transitive closure of the match relation, so a strategy that is
// not transitive (A~B and B~C but not A~C) still puts all three fragments in
// one cluster. Such clusters are flagged Transitive and a warning is logged.
package identity

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sinclairtarget/idman/internal/git"
	"github.com/sinclairtarget/idman/internal/match"
	"github.com/sinclairtarget/idman/internal/tally"
)

// Namespace for canonical identity ids.
var Namespace = uuid.MustParse("6f3c1a52-6d2b-4c0e-9d7a-2a61f1f0b8e4")

// A resolved identity. Clusters partition the observed fragments.
type Cluster struct {
	ID         string
	Canonical  match.Fragment
	Names      []string // Distinct, sorted
	Emails     []string // Distinct, sorted
	Fragments  []match.Fragment
	Tally      tally.Tally
	Transitive bool // Some pair of fragments does not match directly
}

// Returns the canonical id for a fragment. Distinct fragments get distinct
// ids, so clusters never share one.
func CanonicalID(f match.Fragment) string {
	key := f.Email + "\x00" + f.Name
	return uuid.NewSHA1(Namespace, []byte(key)).String()
}

type node struct {
	fragment  match.Fragment
	firstSeen time.Time
	tally     tally.Tally
	parent    int
	members   []int // Only kept up to date on roots
	flagged   bool  // Only kept up to date on roots
}

// Per-invocation clustering state. Not safe for concurrent use.
type Builder struct {
	strategy   match.Strategy
	indexer    match.Indexer
	nodes      []*node
	byFragment map[match.Fragment]int
	index      map[string][]int
	seen       map[string]bool
}

func NewBuilder(strategy match.Strategy) *Builder {
	indexer, _ := strategy.(match.Indexer)

	return &Builder{
		strategy:   strategy,
		indexer:    indexer,
		byFragment: map[match.Fragment]int{},
		index:      map[string][]int{},
		seen:       map[string]bool{},
	}
}

// Folds a commit into the clusters. A hash already added is ignored.
func (b *Builder) Add(commit git.Commit) {
	if b.seen[commit.Hash] {
		return
	}
	b.seen[commit.Hash] = true

	f := match.Fragment{Name: commit.AuthorName, Email: commit.AuthorEmail}

	i, ok := b.byFragment[f]
	if !ok {
		i = b.insert(f, commit.Date)
	}

	n := b.nodes[i]
	if commit.Date.Before(n.firstSeen) {
		n.firstSeen = commit.Date
	}
	n.tally.Add(commit)
}

// Number of distinct fragments seen.
func (b *Builder) NumFragments() int {
	return len(b.nodes)
}

func (b *Builder) insert(f match.Fragment, firstSeen time.Time) int {
	candidates := b.candidates(f)

	i := len(b.nodes)
	b.nodes = append(b.nodes, &node{
		fragment:  f,
		firstSeen: firstSeen,
		parent:    i,
		members:   []int{i},
	})
	b.byFragment[f] = i

	if b.indexer != nil {
		for _, key := range b.indexer.Keys(f) {
			b.index[key] = append(b.index[key], i)
		}
	}

	// Matches grouped by the root of their cluster
	matched := map[int]int{}
	roots := []int{}
	for _, c := range candidates {
		other := b.nodes[c].fragment
		if !b.strategy.Match(f, other) {
			continue
		}

		b.explain(f, other)

		root := b.find(c)
		if _, ok := matched[root]; !ok {
			roots = append(roots, root)
		}
		matched[root] += 1
	}

	if len(roots) == 0 {
		return i
	}

	// Bridging two clusters means their members did not match each other.
	// Joining one cluster is transitive if some member did not match f.
	transitive := len(roots) > 1 ||
		matched[roots[0]] < len(b.nodes[roots[0]].members)

	root := i
	for _, r := range roots {
		root = b.union(root, r)
	}

	if transitive {
		b.nodes[root].flagged = true
		logger().WithField("fragment", f.String()).
			WithField("clusters", len(roots)).
			Warn("merged fragments that do not all match directly")
	}

	return i
}

// Candidate fragments that could match f.
func (b *Builder) candidates(f match.Fragment) []int {
	if b.indexer == nil {
		all := make([]int, len(b.nodes))
		for i := range b.nodes {
			all[i] = i
		}
		return all
	}

	var candidates []int
	added := map[int]bool{}
	for _, key := range b.indexer.Keys(f) {
		for _, c := range b.index[key] {
			if !added[c] {
				added[c] = true
				candidates = append(candidates, c)
			}
		}
	}

	return candidates
}

func (b *Builder) explain(f, other match.Fragment) {
	if !logger().Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	entry := logger().WithField("a", f.String()).WithField("b", other.String())
	if explainer, ok := b.strategy.(match.Explainer); ok {
		if by, ok := explainer.MatchedBy(f, other); ok {
			entry = entry.WithField("matched_by", by)
		}
	}
	entry.Debug("fragments match")
}

func (b *Builder) find(i int) int {
	for b.nodes[i].parent != i {
		parent := b.nodes[i].parent
		b.nodes[i].parent = b.nodes[parent].parent
		i = parent
	}

	return i
}

// Unions the clusters rooted at x and y and returns the new root.
func (b *Builder) union(x, y int) int {
	x, y = b.find(x), b.find(y)
	if x == y {
		return x
	}

	if len(b.nodes[x].members) < len(b.nodes[y].members) {
		x, y = y, x
	}

	b.nodes[y].parent = x
	b.nodes[x].members = append(b.nodes[x].members, b.nodes[y].members...)
	b.nodes[x].flagged = b.nodes[x].flagged || b.nodes[y].flagged
	b.nodes[y].members = nil

	return x
}

// The fragment seen earliest wins, then the lowest lowercased email, then the
// lowest name. None of these depend on the order commits were added in.
func compareCanonical(a, b *node) int {
	return cmp.Or(
		a.firstSeen.Compare(b.firstSeen),
		cmp.Compare(strings.ToLower(a.fragment.Email), strings.ToLower(b.fragment.Email)),
		cmp.Compare(a.fragment.Name, b.fragment.Name),
		cmp.Compare(a.fragment.Email, b.fragment.Email),
	)
}

// Returns the finalized partition, sorted by canonical id.
func (b *Builder) Clusters() []Cluster {
	clusters := []Cluster{}

	for i, n := range b.nodes {
		if b.find(i) != i {
			continue
		}

		members := make([]*node, 0, len(n.members))
		for _, m := range n.members {
			members = append(members, b.nodes[m])
		}
		slices.SortFunc(members, compareCanonical)

		canonical := members[0].fragment
		cluster := Cluster{
			ID:         CanonicalID(canonical),
			Canonical:  canonical,
			Transitive: n.flagged,
		}

		names := map[string]bool{}
		emails := map[string]bool{}
		for _, m := range members {
			cluster.Fragments = append(cluster.Fragments, m.fragment)
			cluster.Tally.Merge(m.tally)

			if m.fragment.Name != "" {
				names[m.fragment.Name] = true
			}
			if m.fragment.Email != "" {
				emails[m.fragment.Email] = true
			}
		}

		cluster.Names = sortedKeys(names)
		cluster.Emails = sortedKeys(emails)
		clusters = append(clusters, cluster)
	}

	slices.SortFunc(clusters, func(a, b Cluster) int {
		return cmp.Compare(a.ID, b.ID)
	})

	logger().WithField("fragments", len(b.nodes)).
		WithField("clusters", len(clusters)).
		Debug("built clusters")

	return clusters
}

// Tallies keyed by cluster id, ready for aggregation.
func Tallies(clusters []Cluster) map[string]tally.Tally {
	tallies := make(map[string]tally.Tally, len(clusters))
	for _, c := range clusters {
		tallies[c.ID] = c.Tally
	}

	return tallies
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)
	return keys
}
