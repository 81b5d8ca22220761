// Package pep440 implements parsing, normalization, and total ordering of
// Python package version strings as defined by PEP 440.
//
// A parsed [Version] carries an epoch, release segments, optional
// pre/post/dev qualifiers, and an optional local segment. Two textually
// different strings can compare equal ("1.0" and "1.0.0", "1.0a1" and
// "1.0alpha1"); ordering is total and stable, so sorted release lists are
// deterministic.
//
// The ordering rules follow the packaging ecosystem exactly:
//
//	1.0.dev1 < 1.0a1 < 1.0b2 < 1.0rc1 < 1.0 < 1.0.post1 < 1.1
//
// Local segments ("1.0+ubuntu.1") order after the same public version and
// compare segment-wise, numeric segments after alphanumeric ones.
package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// versionRE matches the full PEP 440 grammar after lowercasing, including
// the loose separator forms ("1.0-alpha.1", "1.0_post2") that normalize to
// the canonical spelling.
var versionRE = regexp.MustCompile(`^v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?:[-_.]?(?P<preL>a|b|c|rc|alpha|beta|pre|preview)[-_.]?(?P<preN>[0-9]+)?)?` +
	`(?:(?:-(?P<postN1>[0-9]+))|(?:[-_.]?(?P<postL>post|rev|r)[-_.]?(?P<postN2>[0-9]+)?))?` +
	`(?:[-_.]?(?P<devL>dev)[-_.]?(?P<devN>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// Version is a parsed PEP 440 version. The zero value is not valid; use
// [Parse] or [MustParse].
type Version struct {
	Original string // the string as published, before normalization

	Epoch   int
	Release []int
	Pre     *Qualifier // nil when absent
	Post    *int       // nil when absent
	Dev     *int       // nil when absent
	Local   []string   // split local segments, nil when absent
}

// Qualifier is a pre-release marker: "a", "b", or "rc" with a number.
type Qualifier struct {
	Label string
	N     int
}

// Parse parses s into a Version. It accepts the loose spellings PEP 440
// normalizes ("1.0-ALPHA1", "1.0.post", "v1.0") and rejects everything
// else.
func Parse(s string) (*Version, error) {
	m := versionRE.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return nil, fmt.Errorf("invalid version %q", s)
	}
	get := func(name string) string {
		return m[versionRE.SubexpIndex(name)]
	}

	v := &Version{Original: s}
	if e := get("epoch"); e != "" {
		v.Epoch, _ = strconv.Atoi(e)
	}
	for _, part := range strings.Split(get("release"), ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: release segment %q", s, part)
		}
		v.Release = append(v.Release, n)
	}

	if label := get("preL"); label != "" {
		n := 0
		if s := get("preN"); s != "" {
			n, _ = strconv.Atoi(s)
		}
		v.Pre = &Qualifier{Label: normalizePreLabel(label), N: n}
	}

	if s := get("postN1"); s != "" {
		n, _ := strconv.Atoi(s)
		v.Post = &n
	} else if get("postL") != "" {
		n := 0
		if s := get("postN2"); s != "" {
			n, _ = strconv.Atoi(s)
		}
		v.Post = &n
	}

	if get("devL") != "" {
		n := 0
		if s := get("devN"); s != "" {
			n, _ = strconv.Atoi(s)
		}
		v.Dev = &n
	}

	if local := get("local"); local != "" {
		v.Local = splitLocal(local)
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// literals.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func normalizePreLabel(label string) string {
	switch label {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	}
	return label
}

func splitLocal(local string) []string {
	return strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
}

// String returns the normalized form: epoch!release[pre][.postN][.devN][+local].
func (v *Version) String() string {
	var b strings.Builder
	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	parts := make([]string, len(v.Release))
	for i, n := range v.Release {
		parts[i] = strconv.Itoa(n)
	}
	b.WriteString(strings.Join(parts, "."))
	if v.Pre != nil {
		fmt.Fprintf(&b, "%s%d", v.Pre.Label, v.Pre.N)
	}
	if v.Post != nil {
		fmt.Fprintf(&b, ".post%d", *v.Post)
	}
	if v.Dev != nil {
		fmt.Fprintf(&b, ".dev%d", *v.Dev)
	}
	if len(v.Local) > 0 {
		fmt.Fprintf(&b, "+%s", strings.Join(v.Local, "."))
	}
	return b.String()
}

// IsPrerelease reports whether the version has a pre or dev qualifier.
func (v *Version) IsPrerelease() bool {
	return v.Pre != nil || v.Dev != nil
}

// Public returns the version without its local segment.
func (v *Version) Public() *Version {
	if len(v.Local) == 0 {
		return v
	}
	pub := *v
	pub.Local = nil
	return &pub
}

// Compare returns -1, 0, or +1 ordering v against o per PEP 440.
// Versions that normalize identically compare equal regardless of their
// original spelling.
func (v *Version) Compare(o *Version) int {
	if c := cmpInt(v.Epoch, o.Epoch); c != 0 {
		return c
	}
	if c := compareRelease(v.Release, o.Release); c != 0 {
		return c
	}
	if c := comparePre(v, o); c != 0 {
		return c
	}
	if c := compareOptional(v.Post, o.Post, -1); c != 0 {
		return c
	}
	if c := compareOptional(v.Dev, o.Dev, +1); c != 0 {
		return c
	}
	return compareLocal(v.Local, o.Local)
}

// Equal reports whether v and o normalize to the same version.
func (v *Version) Equal(o *Version) bool { return v.Compare(o) == 0 }

// Less reports whether v orders before o.
func (v *Version) Less(o *Version) bool { return v.Compare(o) < 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareRelease compares release segments with trailing zeros ignored, so
// 1.0 == 1.0.0.
func compareRelease(a, b []int) int {
	n := max(len(a), len(b))
	for i := range n {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if c := cmpInt(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

// preRank collapses the pre-release qualifier into a comparable tuple.
// A bare dev release ("1.0.dev1") sorts before any pre-release of the same
// release; a final release sorts after all of them.
func preRank(v *Version) (class int, label string, n int) {
	switch {
	case v.Pre != nil:
		return 0, v.Pre.Label, v.Pre.N
	case v.Post == nil && v.Dev != nil:
		return -1, "", 0
	default:
		return 1, "", 0
	}
}

func comparePre(a, b *Version) int {
	ac, al, an := preRank(a)
	bc, bl, bn := preRank(b)
	if c := cmpInt(ac, bc); c != 0 {
		return c
	}
	if al != bl {
		// "a" < "b" < "rc" holds lexically.
		if al < bl {
			return -1
		}
		return 1
	}
	return cmpInt(an, bn)
}

// compareOptional compares two optional numeric qualifiers where absence
// sorts as missing (-1: absent is smallest, as for post; +1: absent is
// largest, as for dev).
func compareOptional(a, b *int, absent int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return absent
	case b == nil:
		return -absent
	}
	return cmpInt(*a, *b)
}

func compareLocal(a, b []string) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return -1
	case len(b) == 0:
		return 1
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareLocalSegment(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}

// compareLocalSegment orders numeric segments after alphanumeric ones;
// numeric segments compare numerically, others lexically.
func compareLocalSegment(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return cmpInt(an, bn)
	case aerr == nil:
		return 1
	case berr == nil:
		return -1
	}
	return strings.Compare(a, b)
}
