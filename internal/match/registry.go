package match

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const DefaultAlgorithm = "default"

// The algorithm identifier is not registered.
type UnknownAlgorithmError struct {
	Name  string
	Known []string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf(
		"unknown matching algorithm %q (known: %s)",
		e.Name,
		strings.Join(e.Known, ", "),
	)
}

// The algorithm exists but rejected its parameters.
type InvalidParamsError struct {
	Name string
	Err  error
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("could not build %q strategy: %v", e.Name, e.Err)
}

func (e *InvalidParamsError) Unwrap() error {
	return e.Err
}

// Settings strategies fall back to when no positional parameters are given.
type Options struct {
	FuzzyThreshold float64
	AliasTable     string   // Path to the alias table
	Composite      []string // Default composite chain
}

// Builds a strategy from its positional parameters.
type Constructor func(params []string, opts Options) (Strategy, error)

// Maps algorithm identifiers to strategy constructors.
type Registry struct {
	constructors map[string]Constructor
}

// Returns a registry holding the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{constructors: map[string]Constructor{}}

	r.Register(DefaultAlgorithm, newExactEmail)
	r.Register("email", newExactEmail)
	r.Register("name", newNormalizedName)
	r.Register("fuzzy", newFuzzyName)
	r.Register("alias", newAliasTable)
	r.Register("composite", r.newComposite)

	return r
}

func (r *Registry) Register(name string, c Constructor) {
	r.constructors[name] = c
}

// Registered identifiers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

// Builds the strategy registered under name. Does no repository I/O; alias
// tables are read here so a bad table fails before any history is scanned.
func (r *Registry) Lookup(
	name string,
	params []string,
	opts Options,
) (Strategy, error) {
	if name == "" {
		name = DefaultAlgorithm
	}

	c, ok := r.constructors[name]
	if !ok {
		return nil, &UnknownAlgorithmError{Name: name, Known: r.Names()}
	}

	s, err := c(params, opts)
	if err != nil {
		return nil, &InvalidParamsError{Name: name, Err: err}
	}

	logger().WithField("strategy", s.Name()).Debug("selected strategy")
	return s, nil
}

// Shorthand for NewRegistry().Lookup().
func Lookup(name string, params []string, opts Options) (Strategy, error) {
	return NewRegistry().Lookup(name, params, opts)
}

func newExactEmail(params []string, opts Options) (Strategy, error) {
	if len(params) > 0 {
		return nil, fmt.Errorf("takes no parameters, got %v", params)
	}

	return ExactEmail{}, nil
}

func newNormalizedName(params []string, opts Options) (Strategy, error) {
	if len(params) > 0 {
		return nil, fmt.Errorf("takes no parameters, got %v", params)
	}

	return NormalizedName{}, nil
}

func newFuzzyName(params []string, opts Options) (Strategy, error) {
	threshold := opts.FuzzyThreshold
	if threshold == 0 {
		threshold = DefaultFuzzyThreshold
	}

	switch len(params) {
	case 0:
	case 1:
		t, err := strconv.ParseFloat(params[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold %q: %w", params[0], err)
		}
		threshold = t
	default:
		return nil, fmt.Errorf("takes at most one parameter, got %v", params)
	}

	return NewFuzzyName(threshold)
}

func newAliasTable(params []string, opts Options) (Strategy, error) {
	path := opts.AliasTable

	switch len(params) {
	case 0:
	case 1:
		path = params[0]
	default:
		return nil, fmt.Errorf("takes at most one parameter, got %v", params)
	}

	if path == "" {
		return nil, &AliasTableError{
			Err: fmt.Errorf("no alias table path given"),
		}
	}

	table, err := LoadAliasTable(path)
	if err != nil {
		return nil, err
	}

	return table, nil
}

// Members are identifiers, optionally with one parameter after "=", e.g.
// "alias=.mailmap" or "fuzzy=0.9".
func (r *Registry) newComposite(params []string, opts Options) (Strategy, error) {
	members := params
	if len(members) == 0 {
		members = opts.Composite
	}
	if len(members) == 0 {
		members = []string{"email", "name"}
	}

	strategies := make([]Strategy, 0, len(members))
	for _, member := range members {
		name, param, hasParam := strings.Cut(member, "=")
		if name == "composite" {
			return nil, fmt.Errorf("composite strategies cannot be nested")
		}

		var memberParams []string
		if hasParam {
			memberParams = []string{param}
		}

		s, err := r.Lookup(name, memberParams, opts)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}

	return NewComposite(strategies...), nil
}
