// Package deps reconstructs a release's dependency tree from declared
// requirements, optionally as of a historical timestamp: each dependency
// resolves to the version an installer would have picked at that moment,
// not today's latest.
package deps

import (
	"regexp"
	"strings"

	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/index"
	"github.com/probitylabs/probity/pkg/pep440"
)

// Requirement is one parsed dependency declaration, e.g.
// `requests[socks]>=2.0,<3; python_version >= "3.8"`.
type Requirement struct {
	Name       string // normalized
	Extras     []string
	Specifiers pep440.SpecifierSet
	Marker     *Marker
	Raw        string
}

var requirementNameRE = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)

// ParseRequirement parses a single requirement string. URL requirements
// ("name @ https://...") are rejected; the index cannot resolve them.
func ParseRequirement(s string) (*Requirement, error) {
	raw := s
	spec, markerStr, hasMarker := cutMarker(s)

	if strings.Contains(spec, "@") {
		return nil, errors.New(errors.ErrCodeParse, "url requirement not supported: %q", raw)
	}

	spec = strings.TrimSpace(spec)
	m := requirementNameRE.FindString(spec)
	if m == "" {
		return nil, errors.New(errors.ErrCodeParse, "no package name in requirement %q", raw)
	}
	r := &Requirement{Name: index.NormalizeName(m), Raw: raw}
	rest := strings.TrimSpace(spec[len(m):])

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return nil, errors.New(errors.ErrCodeParse, "unterminated extras in %q", raw)
		}
		for _, e := range strings.Split(rest[1:end], ",") {
			if e = strings.TrimSpace(e); e != "" {
				r.Extras = append(r.Extras, index.NormalizeName(e))
			}
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	// Specifiers are sometimes parenthesized: "requests (>=2.0)".
	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")"))
	if rest != "" {
		set, err := pep440.ParseSpecifiers(rest)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "requirement %q", raw)
		}
		r.Specifiers = set
	}

	if hasMarker {
		marker, err := ParseMarker(markerStr)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "requirement %q", raw)
		}
		r.Marker = marker
	}
	return r, nil
}

// cutMarker splits a requirement at the first ";" outside quotes.
func cutMarker(s string) (spec, marker string, found bool) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			return s[:i], strings.TrimSpace(s[i+1:]), true
		}
	}
	return s, "", false
}

func (r *Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	if len(r.Specifiers) > 0 {
		b.WriteString(r.Specifiers.String())
	}
	if r.Marker != nil {
		b.WriteString("; " + r.Marker.String())
	}
	return b.String()
}
