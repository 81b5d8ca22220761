package index

import (
	"strings"

	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/pep440"
)

// Selector is a parsed "name", "name==version", or "name==*" argument.
type Selector struct {
	Name     string // normalized package name
	Version  string // empty for latest
	Wildcard bool   // true for "==*"
}

// ParseSelector splits a command-line package selector. Only the "=="
// operator is supported; "name" alone means latest and "name==*" means
// every release.
func ParseSelector(arg string) (Selector, error) {
	name, version, found := strings.Cut(arg, "==")
	if name == "" {
		return Selector{}, errors.New(errors.ErrCodeInvalidSelector, "empty package name in %q", arg)
	}
	if strings.ContainsAny(name, "<>!~=") {
		return Selector{}, errors.New(errors.ErrCodeInvalidSelector, "only == is supported, got %q", arg)
	}
	sel := Selector{Name: NormalizeName(name)}
	if !found {
		return sel, nil
	}
	if version == "" {
		return Selector{}, errors.New(errors.ErrCodeInvalidSelector, "empty version in %q", arg)
	}
	if version == "*" {
		sel.Wildcard = true
		return sel, nil
	}
	sel.Version = version
	return sel, nil
}

// String reassembles the selector in its canonical spelling.
func (s Selector) String() string {
	switch {
	case s.Wildcard:
		return s.Name + "==*"
	case s.Version != "":
		return s.Name + "==" + s.Version
	}
	return s.Name
}

// Select returns the releases the selector names, ascending by version:
// all releases for a wildcard, the single named release for an exact
// version, or the newest release when no version is given. skipYanked
// excludes yanked releases from latest/wildcard selection; an exact
// version always matches even if yanked.
func (p *Package) Select(sel Selector, skipYanked bool) ([]*Release, error) {
	switch {
	case sel.Wildcard:
		var out []*Release
		for _, r := range p.Releases {
			if skipYanked && r.Yanked {
				continue
			}
			out = append(out, r)
		}
		if len(out) == 0 {
			return nil, errors.New(errors.ErrCodeVersionNotFound, "no selectable releases for %s", p.Name)
		}
		return out, nil

	case sel.Version != "":
		v, err := pep440.Parse(sel.Version)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "selector %s", sel)
		}
		r := p.Release(v)
		if r == nil {
			return nil, errors.New(errors.ErrCodeVersionNotFound, "version %s does not exist for %s", sel.Version, p.Name)
		}
		return []*Release{r}, nil

	default:
		r := p.Latest(skipYanked)
		if r == nil {
			return nil, errors.New(errors.ErrCodeVersionNotFound, "no selectable releases for %s", p.Name)
		}
		return []*Release{r}, nil
	}
}
