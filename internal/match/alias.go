package match

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// The alias table could not be read or parsed.
type AliasTableError struct {
	Path string
	Line int // 0 when not line-specific
	Err  error
}

func (e *AliasTableError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("alias table %s:%d: %v", e.Path, e.Line, e.Err)
	}

	return fmt.Sprintf("alias table %s: %v", e.Path, e.Err)
}

func (e *AliasTableError) Unwrap() error {
	return e.Err
}

// An explicit mapping from alternate identities to canonical ones, in the
// spirit of git's .mailmap.
//
// Fragments resolve to a canonical fragment: by (email, name) first, then by
// email alone, then by name alone. Unmapped fragments resolve to themselves.
// Two fragments match when they resolve to the same canonical email, or to
// the same identity when that identity was declared without an email.
type AliasTable struct {
	byEmailAndName map[string]aliasTarget
	byEmail        map[string]aliasTarget
	byName         map[string]aliasTarget
}

type aliasTarget struct {
	canonical Fragment
	group     string // Match key shared by every alias; empty to key on email
}

func NewAliasTable() *AliasTable {
	return &AliasTable{
		byEmailAndName: map[string]aliasTarget{},
		byEmail:        map[string]aliasTarget{},
		byName:         map[string]aliasTarget{},
	}
}

// Maps alias to canonical. Either field of alias may be empty, but not both.
// Empty canonical fields are taken from the fragment being resolved.
func (t *AliasTable) Add(alias Fragment, canonical Fragment) error {
	return t.add(alias, aliasTarget{canonical: canonical})
}

// Like Add, but every alias added with the same group matches every other
// one even when canonical has no email.
func (t *AliasTable) AddToGroup(
	alias Fragment,
	canonical Fragment,
	group string,
) error {
	return t.add(alias, aliasTarget{canonical: canonical, group: group})
}

func (t *AliasTable) add(alias Fragment, target aliasTarget) error {
	email := NormalizeEmail(alias.Email)
	name := NormalizeName(alias.Name)

	switch {
	case email != "" && name != "":
		t.byEmailAndName[email+"\x00"+name] = target
	case email != "":
		t.byEmail[email] = target
	case name != "":
		t.byName[name] = target
	default:
		return errors.New("alias needs a name or an email")
	}

	return nil
}

func (t *AliasTable) Len() int {
	return len(t.byEmailAndName) + len(t.byEmail) + len(t.byName)
}

func (t *AliasTable) lookup(f Fragment) (aliasTarget, bool) {
	email := NormalizeEmail(f.Email)
	name := NormalizeName(f.Name)

	target, ok := t.byEmailAndName[email+"\x00"+name]
	if !ok {
		target, ok = t.byEmail[email]
	}
	if !ok && name != "" {
		target, ok = t.byName[name]
	}

	return target, ok
}

func (t *AliasTable) Resolve(f Fragment) Fragment {
	target, ok := t.lookup(f)
	if !ok {
		return f
	}

	canonical := target.canonical
	if canonical.Name == "" {
		canonical.Name = f.Name
	}
	if canonical.Email == "" {
		canonical.Email = f.Email
	}

	return canonical
}

func (*AliasTable) Name() string {
	return "alias"
}

func (t *AliasTable) Match(a, b Fragment) bool {
	return sharesKey(t, a, b)
}

// Git log fields never contain NUL, so group keys cannot collide with emails.
func (t *AliasTable) Keys(f Fragment) []string {
	if target, ok := t.lookup(f); ok && target.group != "" {
		return []string{"\x00" + target.group}
	}

	email := NormalizeEmail(t.Resolve(f).Email)
	if email == "" {
		return nil
	}

	return []string{email}
}

// Loads an alias table. Files ending in .yaml or .yml are read as YAML;
// anything else is read as a git mailmap.
func LoadAliasTable(path string) (_ *AliasTable, err error) {
	defer func() {
		if err != nil {
			var tableErr *AliasTableError
			if errors.As(err, &tableErr) {
				tableErr.Path = path
			} else {
				err = &AliasTableError{Path: path, Err: err}
			}
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var table *AliasTable
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		table, err = ParseYAMLAliases(f)
	default:
		table, err = ParseMailmap(f)
	}
	if err != nil {
		return nil, err
	}

	logger().WithField("path", path).
		WithField("entries", table.Len()).
		Debug("loaded alias table")

	return table, nil
}

type yamlAlias struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type yamlIdentity struct {
	Name    string      `yaml:"name"`
	Email   string      `yaml:"email"`
	Aliases []yamlAlias `yaml:"aliases"`
}

type yamlAliasFile struct {
	Identities []yamlIdentity `yaml:"identities"`
}

// Parses the YAML alias format:
//
//	identities:
//	  - name: Alice Smith
//	    email: alice@example.com
//	    aliases:
//	      - email: al@old-job.com
//	      - name: Al
//	        email: al@laptop.local
func ParseYAMLAliases(r io.Reader) (*AliasTable, error) {
	var file yamlAliasFile

	dec := yaml.NewDecoder(r)
	err := dec.Decode(&file)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse alias YAML: %w", err)
	}

	table := NewAliasTable()
	for i, id := range file.Identities {
		if id.Email == "" && id.Name == "" {
			return nil, fmt.Errorf("identity at index %d has no name or email", i)
		}

		canonical := Fragment{Name: id.Name, Email: id.Email}

		// Without a canonical email the aliases would each keep their own, so
		// they are tied together by the identity's name instead.
		group := ""
		if id.Email == "" {
			group = "name:" + NormalizeName(id.Name)
		}

		// The canonical email (or name, lacking one) is an alias of itself so
		// that commits made under it join the identity too.
		if id.Email != "" {
			table.Add(Fragment{Email: id.Email}, canonical)
		} else {
			table.AddToGroup(Fragment{Name: id.Name}, canonical, group)
		}

		for j, alias := range id.Aliases {
			err := table.AddToGroup(
				Fragment{Name: alias.Name, Email: alias.Email},
				canonical,
				group,
			)
			if err != nil {
				return nil, fmt.Errorf(
					"identity at index %d, alias %d: %w",
					i,
					j,
					err,
				)
			}
		}
	}

	return table, nil
}

var mailmapIdentRegexp = regexp.MustCompile(`\s*([^<]*?)\s*<([^>]*)>`)

// Parses git's mailmap format. Supported line forms:
//
//	Proper Name <commit@email>
//	<proper@email> <commit@email>
//	Proper Name <proper@email> <commit@email>
//	Proper Name <proper@email> Commit Name <commit@email>
func ParseMailmap(r io.Reader) (*AliasTable, error) {
	table := NewAliasTable()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo += 1

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		idents := mailmapIdentRegexp.FindAllStringSubmatch(line, -1)

		var alias, canonical Fragment
		switch len(idents) {
		case 1:
			canonical = Fragment{Name: idents[0][1]}
			alias = Fragment{Email: idents[0][2]}
		case 2:
			canonical = Fragment{Name: idents[0][1], Email: idents[0][2]}
			alias = Fragment{Name: idents[1][1], Email: idents[1][2]}
		default:
			return nil, &AliasTableError{
				Line: lineNo,
				Err:  fmt.Errorf("cannot parse mailmap line %q", line),
			}
		}

		if alias.Email == "" {
			return nil, &AliasTableError{
				Line: lineNo,
				Err:  errors.New("mailmap entry has no commit email"),
			}
		}

		table.Add(alias, canonical)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return table, nil
}
