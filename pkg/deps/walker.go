package deps

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/probitylabs/probity/pkg/artifact"
	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/index"
	"github.com/probitylabs/probity/pkg/pep440"
)

// Node is one resolved package in the dependency tree. A node is either
// resolved (Version set), unresolved (no release satisfied the
// requirement), or a cycle marker (the name already appears on the path
// from the root; the edge is kept but not expanded).
type Node struct {
	Name       string
	Version    string
	Extras     []string
	HasSdist   bool
	HasBdist   bool
	Cycle      bool
	Unresolved bool
	Reason     string
	Edges      []Edge
}

// Edge records why a node depends on another.
type Edge struct {
	Constraint string // the specifier set as declared, "*" if unconstrained
	Marker     string
	To         *Node
}

// Walker resolves dependency trees against the index.
type Walker struct {
	Catalog *index.Client
	Store   *artifact.Store
	Env     *Environment

	// AsOf trims the catalog to releases uploaded at or before the
	// timestamp, reconstructing what a resolver would have picked then.
	// Zero means no trimming.
	AsOf time.Time

	// IncludeExtras follows extra-gated requirements even when the
	// parent did not request the extra.
	IncludeExtras bool

	Logf func(string, ...any)

	visited map[string]*Node
}

// Walk resolves the requirement string (name, or name with specifiers
// and extras) into a dependency tree.
func (w *Walker) Walk(ctx context.Context, rootReq string) (*Node, error) {
	req, err := ParseRequirement(rootReq)
	if err != nil {
		return nil, err
	}
	if w.visited == nil {
		w.visited = make(map[string]*Node)
	}
	return w.expand(ctx, req, map[string]bool{}), nil
}

func (w *Walker) logf(format string, args ...any) {
	if w.Logf != nil {
		w.Logf(format, args...)
	}
}

// expand resolves one requirement and, unless the name is already an
// ancestor on the current path, recursively expands its dependencies.
func (w *Walker) expand(ctx context.Context, req *Requirement, ancestors map[string]bool) *Node {
	if ancestors[req.Name] {
		return &Node{Name: req.Name, Extras: req.Extras, Cycle: true}
	}

	pkg, rel, reason := w.pick(ctx, req)
	if rel == nil {
		return &Node{Name: req.Name, Extras: req.Extras, Unresolved: true, Reason: reason}
	}

	key := nodeKey(req.Name, rel.Version, req.Extras)
	if n, ok := w.visited[key]; ok {
		return n
	}

	node := &Node{
		Name:     pkg.Name,
		Version:  rel.Version,
		Extras:   req.Extras,
		HasSdist: rel.Sdist() != nil,
		HasBdist: len(rel.Wheels()) > 0,
	}
	w.visited[key] = node

	ancestors[req.Name] = true
	defer delete(ancestors, req.Name)

	for _, raw := range w.requirements(ctx, pkg, rel) {
		child, err := ParseRequirement(raw)
		if err != nil {
			w.logf("skipping requirement %q of %s==%s: %v", raw, node.Name, node.Version, err)
			continue
		}
		if child.Marker != nil {
			if extra, ok := child.Marker.ExtraEquals(); ok {
				if !w.IncludeExtras && !containsString(req.Extras, extra) {
					continue
				}
			} else if !child.Marker.Eval(w.Env.Map(), req.Extras) {
				continue
			}
		}
		constraint := child.Specifiers.String()
		if constraint == "" {
			constraint = "*"
		}
		marker := ""
		if child.Marker != nil {
			marker = child.Marker.String()
		}
		node.Edges = append(node.Edges, Edge{
			Constraint: constraint,
			Marker:     marker,
			To:         w.expand(ctx, child, ancestors),
		})
	}
	return node
}

// pick selects the best release for the requirement: the highest version
// uploaded at or before AsOf whose requires_python admits the target
// interpreter and which satisfies the declared specifiers.
func (w *Walker) pick(ctx context.Context, req *Requirement) (*index.Package, *index.Release, string) {
	pkg, err := w.Catalog.Package(ctx, req.Name, true, false)
	if err != nil {
		if errors.Is(err, errors.ErrCodePackageNotFound) {
			return nil, nil, "not on the index"
		}
		return nil, nil, err.Error()
	}

	python := w.Env.Python()
	byVersion := make(map[string]*index.Release, len(pkg.Releases))
	var candidates []*pep440.Version
	for _, rel := range pkg.Releases {
		if !w.AsOf.IsZero() {
			// Upload times come only from the JSON index; a release
			// without one cannot be trimmed and stays in.
			if up := rel.EarliestUpload(); !up.IsZero() && up.After(w.AsOf) {
				continue
			}
		}
		if rp := rel.RequiresPython(); rp != "" {
			set, err := pep440.ParseSpecifiers(rp)
			if err == nil && !set.Match(python) {
				continue
			}
		}
		byVersion[rel.Parsed.String()] = rel
		candidates = append(candidates, rel.Parsed)
	}
	if len(candidates) == 0 {
		return pkg, nil, "no release compatible with python " + w.Env.PythonFullVersion
	}

	matching := req.Specifiers.Filter(candidates)
	if len(matching) == 0 {
		return pkg, nil, "no release satisfies " + req.Specifiers.String()
	}
	return pkg, byVersion[matching[len(matching)-1].String()], ""
}

// requirements returns the release's declared dependencies. The index
// document only carries them for the newest release; older releases need
// their metadata read out of a wheel, or failing that the sdist.
func (w *Walker) requirements(ctx context.Context, pkg *index.Package, rel *index.Release) []string {
	if len(pkg.Requires) > 0 {
		if latest := pkg.Latest(false); latest != nil && latest.Version == rel.Version {
			return pkg.Requires
		}
	}

	if wheel := pickWheel(rel.Wheels()); wheel != nil {
		path, err := w.Store.Materialize(ctx, pkg.Name, *wheel)
		if err == nil {
			reqs, err := RequirementsFromWheel(path)
			if err == nil {
				return reqs
			}
			w.logf("reading %s: %v", wheel.Filename, err)
		} else {
			w.logf("fetching %s: %v", wheel.Filename, err)
		}
	}

	if sdist := rel.Sdist(); sdist != nil {
		path, err := w.Store.Materialize(ctx, pkg.Name, *sdist)
		if err == nil {
			reqs, err := RequirementsFromSdist(path)
			if err == nil {
				return reqs
			}
			w.logf("reading %s: %v", sdist.Filename, err)
		} else {
			w.logf("fetching %s: %v", sdist.Filename, err)
		}
	}
	return nil
}

// pickWheel chooses which wheel to read metadata from. Different wheels
// of one release can declare different deps; a pure-Python wheel is the
// least platform-specific choice.
func pickWheel(wheels []index.Artifact) *index.Artifact {
	if len(wheels) == 0 {
		return nil
	}
	for _, pattern := range []string{"-py3-none-any.whl", "-py2.py3-none-any.whl"} {
		for i := range wheels {
			if strings.HasSuffix(wheels[i].Filename, pattern) {
				return &wheels[i]
			}
		}
	}
	return &wheels[0]
}

func nodeKey(name, version string, extras []string) string {
	if len(extras) == 0 {
		return name + "==" + version
	}
	sorted := append([]string(nil), extras...)
	sort.Strings(sorted)
	return name + "[" + strings.Join(sorted, ",") + "]==" + version
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
