package index

import (
	"strings"
	"testing"
)

const simpleFixture = `<!DOCTYPE html>
<html><head><title>Links for demo</title></head><body>
<h1>Links for demo</h1>
<a href="https://files.example/demo/demo-1.0-py3-none-any.whl#sha256=bbb">demo-1.0-py3-none-any.whl</a><br/>
<a href="https://files.example/demo/demo-1.0.tar.gz#sha256=aaa">demo-1.0.tar.gz</a><br/>
<a href="https://files.example/demo/demo-2.0.tar.gz#sha256=ccc" data-requires-python="&gt;=3.8">demo-2.0.tar.gz</a><br/>
</body></html>`

const jsonFixture = `{
  "info": {"name": "demo", "requires_dist": ["requests>=2.0"]},
  "releases": {
    "1.0": [
      {"filename": "demo-1.0-py3-none-any.whl", "url": "https://files.example/demo/demo-1.0-py3-none-any.whl",
       "digests": {"sha256": "bbb"}, "python_version": "py3"},
      {"filename": "demo-1.0.tar.gz", "url": "https://files.example/demo/demo-1.0.tar.gz",
       "digests": {"sha256": "aaa"}, "python_version": "source"}
    ],
    "2.0": [
      {"filename": "demo-2.0.tar.gz", "url": "https://files.example/demo/demo-2.0.tar.gz",
       "digests": {"sha256": "ccc"}, "requires_python": ">=3.8", "python_version": "source"}
    ]
  }
}`

// Both index formats must normalize to the same catalog for the fields
// they share. The simple listing lacks sizes, upload times, and tags, so
// only the common fields are compared.
func TestParseConformance(t *testing.T) {
	discard := func(string, ...any) {}

	fromSimple, err := ParseSimple("demo", strings.NewReader(simpleFixture), true, discard)
	if err != nil {
		t.Fatalf("ParseSimple: %v", err)
	}
	fromJSON, err := ParseJSON("demo", strings.NewReader(jsonFixture), true, discard)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}

	for _, p := range []*Package{fromSimple, fromJSON} {
		if p.Name != "demo" {
			t.Errorf("package name = %q, want demo", p.Name)
		}
		if len(p.Releases) != 2 {
			t.Fatalf("got %d releases, want 2", len(p.Releases))
		}
		if p.Releases[0].Version != "1.0" || p.Releases[1].Version != "2.0" {
			t.Errorf("release order = [%s, %s], want [1.0, 2.0]",
				p.Releases[0].Version, p.Releases[1].Version)
		}
	}

	for i := range fromSimple.Releases {
		rs, rj := fromSimple.Releases[i], fromJSON.Releases[i]
		if len(rs.Artifacts) != len(rj.Artifacts) {
			t.Fatalf("release %s: %d vs %d artifacts", rs.Version, len(rs.Artifacts), len(rj.Artifacts))
		}
		for j := range rs.Artifacts {
			as, aj := rs.Artifacts[j], rj.Artifacts[j]
			if as.Filename != aj.Filename || as.URL != aj.URL || as.SHA256 != aj.SHA256 ||
				as.Kind != aj.Kind || as.RequiresPython != aj.RequiresPython {
				t.Errorf("release %s artifact %d differs:\nsimple: %+v\njson:   %+v",
					rs.Version, j, as, aj)
			}
		}
	}

	if len(fromJSON.Requires) != 1 || fromJSON.Requires[0] != "requests>=2.0" {
		t.Errorf("json requires = %v", fromJSON.Requires)
	}
	if sd := fromJSON.Releases[0].Sdist(); sd == nil || sd.Filename != "demo-1.0.tar.gz" {
		t.Errorf("Sdist() = %+v", sd)
	}
	if w := fromJSON.Releases[0].Wheels(); len(w) != 1 {
		t.Errorf("Wheels() = %v", w)
	}
}

func TestParseJSONYankedRelease(t *testing.T) {
	doc := `{
	  "info": {"name": "demo"},
	  "releases": {
	    "1.0": [{"filename": "demo-1.0.tar.gz", "url": "u", "yanked": true, "digests": {"sha256": "a"}}],
	    "2.0": [
	      {"filename": "demo-2.0.tar.gz", "url": "u", "yanked": true, "digests": {"sha256": "b"}},
	      {"filename": "demo-2.0-py3-none-any.whl", "url": "u", "digests": {"sha256": "c"}}
	    ]
	  }
	}`
	p, err := ParseJSON("demo", strings.NewReader(doc), true, func(string, ...any) {})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Releases[0].Yanked {
		t.Error("1.0 has only yanked artifacts, release should be yanked")
	}
	if p.Releases[1].Yanked {
		t.Error("2.0 has a live wheel, release should not be yanked")
	}
	if latest := p.Latest(true); latest == nil || latest.Version != "2.0" {
		t.Errorf("Latest(skipYanked) = %v", latest)
	}
}

func TestParseSimpleSkipsMalformed(t *testing.T) {
	doc := `<html><body>
	<a href="https://files.example/demo/garbled.tar.gz#sha256=x">garbled.tar.gz</a>
	<a href="https://files.example/demo/demo-1.0.tar.gz#sha256=aaa">demo-1.0.tar.gz</a>
	</body></html>`

	var logged int
	p, err := ParseSimple("demo", strings.NewReader(doc), false, func(string, ...any) { logged++ })
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Releases) != 1 {
		t.Fatalf("got %d releases, want 1", len(p.Releases))
	}
	if logged == 0 {
		t.Error("malformed entry was not reported")
	}

	if _, err := ParseSimple("demo", strings.NewReader(doc), true, func(string, ...any) {}); err == nil {
		t.Error("strict parse should fail on the malformed entry")
	}
}
