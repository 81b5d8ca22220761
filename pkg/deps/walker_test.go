package deps

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/probitylabs/probity/pkg/artifact"
	"github.com/probitylabs/probity/pkg/index"
)

// fakePyPI serves JSON index documents for a set of packages.
type fakePyPI struct {
	packages map[string]map[string]fakeRelease // name -> version -> release
	srv      *httptest.Server
}

type fakeRelease struct {
	uploaded time.Time
	requires []string // only exposed for the latest version, like the real index
	python   string
}

func newFakePyPI(t *testing.T) *fakePyPI {
	f := &fakePyPI{packages: map[string]map[string]fakeRelease{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePyPI) add(name, version string, rel fakeRelease) {
	if f.packages[name] == nil {
		f.packages[name] = map[string]fakeRelease{}
	}
	f.packages[name][version] = rel
}

func (f *fakePyPI) handle(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutPrefix(r.URL.Path, "/pypi/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	name = strings.TrimSuffix(name, "/json")
	releases, ok := f.packages[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var latest string
	releasesDoc := map[string]any{}
	for version, rel := range releases {
		file := map[string]any{
			"filename": name + "-" + version + ".tar.gz",
			"url":      f.srv.URL + "/files/" + name + "-" + version + ".tar.gz",
			"digests":  map[string]string{"sha256": ""},
		}
		if !rel.uploaded.IsZero() {
			file["upload_time_iso_8601"] = rel.uploaded.Format(time.RFC3339)
		}
		if rel.python != "" {
			file["requires_python"] = rel.python
		}
		releasesDoc[version] = []any{file}
		if latest == "" || versionLess(latest, version) {
			latest = version
		}
	}

	doc := map[string]any{
		"info": map[string]any{
			"name":          name,
			"requires_dist": releases[latest].requires,
		},
		"releases": releasesDoc,
	}
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(doc)
	w.Write(buf.Bytes())
}

// good enough for the single-digit versions these tests use
func versionLess(a, b string) bool { return a < b }

func (f *fakePyPI) walker(t *testing.T) *Walker {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	env, err := NewEnvironment("3.11.4", "linux")
	if err != nil {
		t.Fatal(err)
	}
	return &Walker{
		Catalog: index.NewClient(index.Options{
			IndexURL:     f.srv.URL + "/simple/",
			JSONIndexURL: f.srv.URL + "/",
		}),
		Store: store,
		Env:   env,
	}
}

// A depends on B, B depends on A. The tree must be finite with the
// second occurrence of A marked as a cycle.
func TestWalkCycleIsFinite(t *testing.T) {
	f := newFakePyPI(t)
	f.add("pkg-a", "1.0", fakeRelease{requires: []string{"pkg-b"}})
	f.add("pkg-b", "1.0", fakeRelease{requires: []string{"pkg-a"}})

	root, err := f.walker(t).Walk(context.Background(), "pkg-a")
	if err != nil {
		t.Fatal(err)
	}
	if root.Name != "pkg-a" || root.Version != "1.0" {
		t.Fatalf("root = %+v", root)
	}
	if len(root.Edges) != 1 {
		t.Fatalf("root edges = %d, want 1", len(root.Edges))
	}
	b := root.Edges[0].To
	if b.Name != "pkg-b" || b.Cycle {
		t.Fatalf("b = %+v", b)
	}
	if len(b.Edges) != 1 {
		t.Fatalf("b edges = %d, want 1", len(b.Edges))
	}
	back := b.Edges[0].To
	if !back.Cycle || back.Name != "pkg-a" {
		t.Errorf("back edge = %+v, want cycle marker for pkg-a", back)
	}
	if len(back.Edges) != 0 {
		t.Error("cycle node must not be expanded")
	}
}

// B released 1.0 at t=1 and 2.0 at t=10; resolving as of t=5 must pick
// 1.0 even though 2.0 is latest today.
func TestWalkPointInTime(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFakePyPI(t)
	f.add("pkg-a", "1.0", fakeRelease{uploaded: base.Add(2 * time.Hour), requires: []string{"pkg-b"}})
	f.add("pkg-b", "1.0", fakeRelease{uploaded: base.Add(1 * time.Hour)})
	f.add("pkg-b", "2.0", fakeRelease{uploaded: base.Add(10 * time.Hour)})

	w := f.walker(t)
	w.AsOf = base.Add(5 * time.Hour)
	root, err := w.Walk(context.Background(), "pkg-a")
	if err != nil {
		t.Fatal(err)
	}
	if got := root.Edges[0].To.Version; got != "1.0" {
		t.Errorf("as-of pick = %s, want 1.0", got)
	}

	// Without trimming, today's latest wins.
	w2 := f.walker(t)
	root, err = w2.Walk(context.Background(), "pkg-a")
	if err != nil {
		t.Fatal(err)
	}
	if got := root.Edges[0].To.Version; got != "2.0" {
		t.Errorf("untrimmed pick = %s, want 2.0", got)
	}
}

func TestWalkUnresolved(t *testing.T) {
	f := newFakePyPI(t)
	f.add("pkg-a", "1.0", fakeRelease{requires: []string{"no-such-package", "pkg-b>=9.9"}})
	f.add("pkg-b", "1.0", fakeRelease{})

	root, err := f.walker(t).Walk(context.Background(), "pkg-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(root.Edges))
	}
	for _, e := range root.Edges {
		if !e.To.Unresolved {
			t.Errorf("%s should be unresolved: %+v", e.To.Name, e.To)
		}
		if e.To.Reason == "" {
			t.Errorf("%s: unresolved node needs a reason", e.To.Name)
		}
	}
}

func TestWalkSkipsNonMatchingMarkers(t *testing.T) {
	f := newFakePyPI(t)
	f.add("pkg-a", "1.0", fakeRelease{requires: []string{
		`enum34; python_version < "3.4"`,
		`pkg-b; python_version >= "3.8"`,
	}})
	f.add("pkg-b", "1.0", fakeRelease{})

	root, err := f.walker(t).Walk(context.Background(), "pkg-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Edges) != 1 || root.Edges[0].To.Name != "pkg-b" {
		t.Fatalf("edges = %+v, want only pkg-b", root.Edges)
	}
}

func TestWalkExtrasGating(t *testing.T) {
	f := newFakePyPI(t)
	f.add("pkg-a", "1.0", fakeRelease{requires: []string{
		`pkg-b; extra == "socks"`,
	}})
	f.add("pkg-b", "1.0", fakeRelease{})

	root, err := f.walker(t).Walk(context.Background(), "pkg-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Edges) != 0 {
		t.Errorf("extra-gated dep followed without the extra: %+v", root.Edges)
	}

	root, err = f.walker(t).Walk(context.Background(), "pkg-a[socks]")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Edges) != 1 || root.Edges[0].To.Name != "pkg-b" {
		t.Errorf("requested extra not followed: %+v", root.Edges)
	}
}

func TestWalkRequiresPythonFilter(t *testing.T) {
	f := newFakePyPI(t)
	f.add("pkg-a", "1.0", fakeRelease{requires: []string{"pkg-b"}})
	f.add("pkg-b", "1.0", fakeRelease{})
	f.add("pkg-b", "2.0", fakeRelease{python: ">=3.12"})

	root, err := f.walker(t).Walk(context.Background(), "pkg-a")
	if err != nil {
		t.Fatal(err)
	}
	if got := root.Edges[0].To.Version; got != "1.0" {
		t.Errorf("pick = %s, want 1.0 (2.0 needs python >=3.12)", got)
	}
}

func TestPrintTreeAndFlat(t *testing.T) {
	f := newFakePyPI(t)
	f.add("pkg-a", "1.0", fakeRelease{requires: []string{"pkg-b>=1.0"}})
	f.add("pkg-b", "1.0", fakeRelease{requires: []string{"pkg-c"}})
	f.add("pkg-c", "1.0", fakeRelease{})

	node, err := f.walker(t).Walk(context.Background(), "pkg-a")
	if err != nil {
		t.Fatal(err)
	}
	root := &Node{Edges: []Edge{{Constraint: "*", To: node}}}

	var tree bytes.Buffer
	PrintTree(&tree, root)
	for _, want := range []string{"pkg-a (==1.0)", ". pkg-b (==1.0) via >=1.0", ". . pkg-c (==1.0)"} {
		if !strings.Contains(tree.String(), want) {
			t.Errorf("tree output missing %q:\n%s", want, tree.String())
		}
	}

	var flat bytes.Buffer
	PrintFlat(&flat, root)
	want := "pkg-c==1.0\npkg-b==1.0\npkg-a==1.0\n"
	if flat.String() != want {
		t.Errorf("flat output = %q, want %q", flat.String(), want)
	}
}

func TestToDOT(t *testing.T) {
	f := newFakePyPI(t)
	f.add("pkg-a", "1.0", fakeRelease{requires: []string{"pkg-b"}})
	f.add("pkg-b", "1.0", fakeRelease{})

	node, err := f.walker(t).Walk(context.Background(), "pkg-a")
	if err != nil {
		t.Fatal(err)
	}
	dot := ToDOT(node)
	for _, want := range []string{
		"digraph deps {",
		`"pkg-a==1.0"`,
		`"pkg-b==1.0"`,
		`"pkg-a==1.0" -> "pkg-b==1.0"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("dot output missing %q:\n%s", want, dot)
		}
	}
}
