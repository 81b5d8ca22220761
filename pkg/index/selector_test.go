package index

import (
	"testing"

	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/pep440"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		arg  string
		want Selector
	}{
		{"requests", Selector{Name: "requests"}},
		{"Django", Selector{Name: "django"}},
		{"requests==2.31.0", Selector{Name: "requests", Version: "2.31.0"}},
		{"requests==*", Selector{Name: "requests", Wildcard: true}},
		{"zope.interface==5.4.0", Selector{Name: "zope-interface", Version: "5.4.0"}},
	}
	for _, tt := range tests {
		got, err := ParseSelector(tt.arg)
		if err != nil {
			t.Errorf("ParseSelector(%q): %v", tt.arg, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSelector(%q) = %+v, want %+v", tt.arg, got, tt.want)
		}
	}
}

func TestParseSelectorInvalid(t *testing.T) {
	for _, arg := range []string{"", "==1.0", "requests==", "requests>=2.0", "requests~=2.0"} {
		if _, err := ParseSelector(arg); err == nil {
			t.Errorf("ParseSelector(%q) should fail", arg)
		}
	}
}

func catalogForSelect(t *testing.T) *Package {
	t.Helper()
	p := &Package{Name: "demo"}
	for _, v := range []struct {
		version string
		yanked  bool
	}{
		{"1.0", false},
		{"1.1", false},
		{"2.0", true},
	} {
		p.Releases = append(p.Releases, &Release{
			Name:    "demo",
			Version: v.version,
			Parsed:  pep440.MustParse(v.version),
			Yanked:  v.yanked,
		})
	}
	return p
}

func TestSelect(t *testing.T) {
	p := catalogForSelect(t)

	latest, err := p.Select(Selector{Name: "demo"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 1 || latest[0].Version != "2.0" {
		t.Errorf("latest = %v", latest)
	}

	// Yanked releases are skipped for latest but still reachable by exact
	// version, matching installer behavior.
	latest, err = p.Select(Selector{Name: "demo"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if latest[0].Version != "1.1" {
		t.Errorf("latest skipYanked = %s, want 1.1", latest[0].Version)
	}

	exact, err := p.Select(Selector{Name: "demo", Version: "2.0"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(exact) != 1 || exact[0].Version != "2.0" {
		t.Errorf("exact = %v", exact)
	}

	all, err := p.Select(Selector{Name: "demo", Wildcard: true}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("wildcard returned %d releases, want 3", len(all))
	}

	all, err = p.Select(Selector{Name: "demo", Wildcard: true}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("wildcard skipYanked returned %d releases, want 2", len(all))
	}
}

func TestSelectMissingVersion(t *testing.T) {
	p := catalogForSelect(t)
	_, err := p.Select(Selector{Name: "demo", Version: "9.9"}, false)
	if errors.GetCode(err) != errors.ErrCodeVersionNotFound {
		t.Errorf("err = %v, want VERSION_NOT_FOUND", err)
	}
}
