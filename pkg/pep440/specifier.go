package pep440

import (
	"fmt"
	"sort"
	"strings"
)

// Specifier is a single version constraint clause, e.g. ">=1.4" or
// "==2.8.*".
type Specifier struct {
	Op       string
	Version  string // the right-hand side as written, without the operator
	wildcard bool   // true for "==X.*" / "!=X.*" forms
	parsed   *Version
}

// SpecifierSet is a comma-separated conjunction of constraint clauses, the
// form used by requires_python and PEP 508 requirement strings. The empty
// set matches every version.
type SpecifierSet []Specifier

// specifier operators, longest first so ParseSpecifiers scans greedily.
var specifierOps = []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"}

// ParseSpecifiers parses a constraint expression like ">=1.0, <2.0" or
// "==2.8.*". An empty or all-whitespace input yields an empty set.
func ParseSpecifiers(s string) (SpecifierSet, error) {
	var set SpecifierSet
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		spec, err := parseSpecifier(clause)
		if err != nil {
			return nil, err
		}
		set = append(set, spec)
	}
	return set, nil
}

func parseSpecifier(clause string) (Specifier, error) {
	for _, op := range specifierOps {
		if !strings.HasPrefix(clause, op) {
			continue
		}
		rhs := strings.TrimSpace(clause[len(op):])
		if rhs == "" {
			return Specifier{}, fmt.Errorf("invalid specifier %q: missing version", clause)
		}
		spec := Specifier{Op: op, Version: rhs}
		if (op == "==" || op == "!=") && strings.HasSuffix(rhs, ".*") {
			spec.wildcard = true
			rhs = strings.TrimSuffix(rhs, ".*")
		}
		if op != "===" {
			v, err := Parse(rhs)
			if err != nil {
				return Specifier{}, fmt.Errorf("invalid specifier %q: %w", clause, err)
			}
			spec.parsed = v
		}
		return spec, nil
	}
	return Specifier{}, fmt.Errorf("invalid specifier %q: unknown operator", clause)
}

// Match reports whether v satisfies every clause in the set.
func (s SpecifierSet) Match(v *Version) bool {
	for _, spec := range s {
		if !spec.Match(v) {
			return false
		}
	}
	return true
}

// String returns the canonical comma-joined form.
func (s SpecifierSet) String() string {
	parts := make([]string, len(s))
	for i, spec := range s {
		parts[i] = spec.Op + spec.Version
	}
	return strings.Join(parts, ",")
}

// Match reports whether v satisfies the clause.
func (s Specifier) Match(v *Version) bool {
	switch s.Op {
	case "===":
		// Arbitrary string equality against the original spelling.
		return strings.EqualFold(strings.TrimSpace(v.Original), s.Version)
	case "==":
		if s.wildcard {
			return matchPrefix(v, s.parsed)
		}
		// A clause naming a local version ("==1.0+ubuntu.1") pins that
		// exact build; without one the candidate's local part is ignored.
		if len(s.parsed.Local) > 0 {
			return v.Compare(s.parsed) == 0
		}
		return v.Public().Compare(s.parsed) == 0
	case "!=":
		if s.wildcard {
			return !matchPrefix(v, s.parsed)
		}
		if len(s.parsed.Local) > 0 {
			return v.Compare(s.parsed) != 0
		}
		return v.Public().Compare(s.parsed) != 0
	case "<=":
		return v.Public().Compare(s.parsed) <= 0
	case ">=":
		return v.Public().Compare(s.parsed) >= 0
	case "<":
		return v.Public().Compare(s.parsed) < 0
	case ">":
		return v.Public().Compare(s.parsed) > 0
	case "~=":
		// Compatible release: ~=2.2 means >=2.2, ==2.*
		if len(s.parsed.Release) < 2 {
			return false
		}
		if v.Public().Compare(s.parsed) < 0 {
			return false
		}
		prefix := *s.parsed
		prefix.Release = prefix.Release[:len(prefix.Release)-1]
		prefix.Pre, prefix.Post, prefix.Dev = nil, nil, nil
		return matchPrefix(v, &prefix)
	}
	return false
}

// matchPrefix reports whether v's release starts with prefix's epoch and
// release segments, zero-padding v as needed ("1.0" matches "==1.0.0.*").
func matchPrefix(v, prefix *Version) bool {
	if v.Epoch != prefix.Epoch {
		return false
	}
	for i, n := range prefix.Release {
		vn := 0
		if i < len(v.Release) {
			vn = v.Release[i]
		}
		if vn != n {
			return false
		}
	}
	return true
}

// Filter returns the versions in vs that satisfy the set, preserving
// order. Pre-releases are excluded unless the set explicitly mentions one
// or no final release matches, mirroring pip's behavior.
func (s SpecifierSet) Filter(vs []*Version) []*Version {
	var finals, pres []*Version
	for _, v := range vs {
		if !s.Match(v) {
			continue
		}
		if v.IsPrerelease() && !s.hasPrerelease() {
			pres = append(pres, v)
		} else {
			finals = append(finals, v)
		}
	}
	if len(finals) > 0 {
		return finals
	}
	return pres
}

func (s SpecifierSet) hasPrerelease() bool {
	for _, spec := range s {
		if spec.parsed != nil && spec.parsed.IsPrerelease() {
			return true
		}
	}
	return false
}

// Sort orders versions ascending in place using the PEP 440 total order.
// The sort is stable so equal-comparing versions keep their input order.
func Sort(vs []*Version) {
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
}
