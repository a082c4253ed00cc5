package match_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinclairtarget/idman/internal/match"
)

func TestLookupBuiltins(t *testing.T) {
	tests := map[string]string{
		"":        "email",
		"default": "email",
		"email":   "email",
		"name":    "name",
		"fuzzy":   "fuzzy",
	}

	for id, expected := range tests {
		s, err := match.Lookup(id, nil, match.Options{})
		require.NoError(t, err, "looking up %q", id)
		assert.Equal(t, expected, s.Name())
	}
}

func TestLookupUnknownAlgorithm(t *testing.T) {
	_, err := match.Lookup("soundex", nil, match.Options{})

	var unknown *match.UnknownAlgorithmError
	require.True(t, errors.As(err, &unknown), "got %v", err)
	assert.Equal(t, "soundex", unknown.Name)
	assert.Contains(t, unknown.Known, "default")
}

func TestLookupAlias(t *testing.T) {
	_, err := match.Lookup("alias", nil, match.Options{})
	var tableErr *match.AliasTableError
	assert.True(t, errors.As(err, &tableErr), "alias without a table should fail")

	path := filepath.Join(t.TempDir(), ".mailmap")
	require.NoError(t, os.WriteFile(path, []byte("Al <a@x.com>\n"), 0o644))

	s, err := match.Lookup("alias", []string{path}, match.Options{})
	require.NoError(t, err)
	assert.Equal(t, "alias", s.Name())

	s, err = match.Lookup("alias", nil, match.Options{AliasTable: path})
	require.NoError(t, err)
	assert.Equal(t, "alias", s.Name())
}

func TestLookupComposite(t *testing.T) {
	s, err := match.Lookup("composite", nil, match.Options{})
	require.NoError(t, err)
	assert.Equal(t, "composite(email,name)", s.Name())

	s, err = match.Lookup(
		"composite",
		[]string{"name", "fuzzy=0.9"},
		match.Options{},
	)
	require.NoError(t, err)
	assert.Equal(t, "composite(name,fuzzy)", s.Name())

	s, err = match.Lookup(
		"composite",
		nil,
		match.Options{Composite: []string{"fuzzy", "email"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "composite(fuzzy,email)", s.Name())

	_, err = match.Lookup("composite", []string{"composite"}, match.Options{})
	assert.Error(t, err)

	_, err = match.Lookup("composite", []string{"bogus"}, match.Options{})
	var unknown *match.UnknownAlgorithmError
	assert.True(t, errors.As(err, &unknown))
}

func TestLookupRejectsExtraParams(t *testing.T) {
	var invalid *match.InvalidParamsError

	_, err := match.Lookup("default", []string{"extra"}, match.Options{})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "default", invalid.Name)

	_, err = match.Lookup("fuzzy", []string{"high"}, match.Options{})
	assert.ErrorAs(t, err, &invalid)

	_, err = match.Lookup("fuzzy", []string{"NaN"}, match.Options{})
	assert.ErrorAs(t, err, &invalid)
}

type alwaysMatch struct{}

func (alwaysMatch) Name() string                   { return "always" }
func (alwaysMatch) Match(a, b match.Fragment) bool { return true }

func TestRegisterCustomStrategy(t *testing.T) {
	r := match.NewRegistry()
	r.Register(
		"always",
		func(params []string, opts match.Options) (match.Strategy, error) {
			return alwaysMatch{}, nil
		},
	)

	s, err := r.Lookup("always", nil, match.Options{})
	require.NoError(t, err)
	assert.True(t, s.Match(frag("a", "a"), frag("b", "b")))
	assert.Contains(t, r.Names(), "always")

	_, err = match.Lookup("always", nil, match.Options{})
	assert.Error(t, err, "registering on one registry must not affect others")
}
