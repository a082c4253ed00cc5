package match_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinclairtarget/idman/internal/match"
)

const mailmap = `
# Comments and blank lines are ignored

Alice Smith <alice@x.com>
<bob@x.com> <robert@old.com>
Carol <carol@x.com> <cc@laptop.local>
Dan <dan@x.com> Danny <shared@x.com>
`

func TestParseMailmap(t *testing.T) {
	table, err := match.ParseMailmap(strings.NewReader(mailmap))
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())

	tests := []struct {
		in       match.Fragment
		expected match.Fragment
	}{
		{frag("alice", "Alice@x.com"), frag("Alice Smith", "Alice@x.com")},
		{frag("Robert", "robert@old.com"), frag("Robert", "bob@x.com")},
		{frag("cc", "cc@laptop.local"), frag("Carol", "carol@x.com")},
		{frag("Danny", "shared@x.com"), frag("Dan", "dan@x.com")},
		{frag("Someone", "shared@x.com"), frag("Someone", "shared@x.com")},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, table.Resolve(test.in), "resolving %v", test.in)
	}
}

func TestAliasTableMatch(t *testing.T) {
	table, err := match.ParseMailmap(strings.NewReader(mailmap))
	require.NoError(t, err)

	assert.True(t, table.Match(frag("Robert", "robert@old.com"), frag("Bob", "bob@x.com")))
	assert.True(t, table.Match(frag("cc", "cc@laptop.local"), frag("Carol", "carol@x.com")))
	assert.False(t, table.Match(frag("Robert", "robert@old.com"), frag("Carol", "carol@x.com")))

	// Unmapped fragments resolve to themselves, so same email still matches
	assert.True(t, table.Match(frag("Eve", "eve@x.com"), frag("E", "EVE@x.com")))
}

func TestParseMailmapBadLine(t *testing.T) {
	_, err := match.ParseMailmap(strings.NewReader("just a name\n"))

	var tableErr *match.AliasTableError
	require.True(t, errors.As(err, &tableErr), "got %v", err)
	assert.Equal(t, 1, tableErr.Line)
}

const aliasYAML = `
identities:
  - name: Alice Smith
    email: alice@x.com
    aliases:
      - email: al@old-job.com
      - name: Al
        email: al@laptop.local
      - name: Ally
`

func TestParseYAMLAliases(t *testing.T) {
	table, err := match.ParseYAMLAliases(strings.NewReader(aliasYAML))
	require.NoError(t, err)

	canonical := frag("Alice Smith", "alice@x.com")
	assert.Equal(t, canonical, table.Resolve(frag("A", "al@old-job.com")))
	assert.Equal(t, canonical, table.Resolve(frag("Al", "al@laptop.local")))
	assert.Equal(t, canonical, table.Resolve(frag("ally", "ally@elsewhere.com")))
	assert.Equal(t, canonical, table.Resolve(frag("alice", "alice@x.com")))

	// Name-and-email aliases require both to match
	assert.Equal(
		t,
		frag("Bob", "al@laptop.local"),
		table.Resolve(frag("Bob", "al@laptop.local")),
	)
}

func TestYAMLIdentityWithoutEmailMatchesItsAliases(t *testing.T) {
	table, err := match.ParseYAMLAliases(strings.NewReader(`
identities:
  - name: Alice Smith
    aliases:
      - email: a@x.com
      - email: b@y.com
`))
	require.NoError(t, err)

	assert.Equal(t, frag("Alice Smith", "a@x.com"), table.Resolve(frag("", "a@x.com")))
	assert.True(t, table.Match(frag("", "a@x.com"), frag("", "b@y.com")))
	assert.True(t, table.Match(frag("", "A@x.com"), frag("alice smith", "c@z.com")))
	assert.False(t, table.Match(frag("", "a@x.com"), frag("Bob", "c@z.com")))

	// Still keyed on email when nothing maps
	assert.True(t, table.Match(frag("Bob", "c@z.com"), frag("Robert", "C@z.com")))
}

func TestLoadAliasTable(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(aliasYAML), 0o644))

	mailmapPath := filepath.Join(dir, ".mailmap")
	require.NoError(t, os.WriteFile(mailmapPath, []byte(mailmap), 0o644))

	table, err := match.LoadAliasTable(yamlPath)
	require.NoError(t, err)
	assert.True(t, table.Len() > 0)

	table, err = match.LoadAliasTable(mailmapPath)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())

	_, err = match.LoadAliasTable(filepath.Join(dir, "missing.yaml"))
	var tableErr *match.AliasTableError
	require.True(t, errors.As(err, &tableErr))
	assert.Equal(t, filepath.Join(dir, "missing.yaml"), tableErr.Path)
}
