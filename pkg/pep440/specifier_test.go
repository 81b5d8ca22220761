package pep440

import "testing"

func TestSpecifierSet_Match(t *testing.T) {
	tests := []struct {
		spec    string
		version string
		want    bool
	}{
		{">=1.0", "1.0", true},
		{">=1.0", "0.9", false},
		{">=1.0, <2.0", "1.5", true},
		{">=1.0, <2.0", "2.0", false},
		{"==1.0", "1.0.0", true},
		{"==1.0", "1.0+ubuntu.1", true},
		{"==1.0+ubuntu.1", "1.0+ubuntu.1", true},
		{"==1.0+ubuntu.1", "1.0", false},
		{"==1.0+ubuntu.1", "1.0+ubuntu.2", false},
		{"!=1.0+ubuntu.1", "1.0+ubuntu.1", false},
		{"!=1.0+ubuntu.1", "1.0+ubuntu.2", true},
		{"==1.4.*", "1.4.7", true},
		{"==1.4.*", "1.5", false},
		{"!=1.4.*", "1.5", true},
		{"!=1.4.*", "1.4.2", false},
		{"~=2.2", "2.5", true},
		{"~=2.2", "3.0", false},
		{"~=2.2", "2.1", false},
		{"~=1.4.2", "1.4.9", true},
		{"~=1.4.2", "1.5.0", false},
		{"===1.0", "1.0", true},
		{"===1.0", "1.0.0", false},
		{"", "0.0.1", true},
		{">3.6", "3.7.5", true},
		{"<3", "2.7.18", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec+"/"+tt.version, func(t *testing.T) {
			set, err := ParseSpecifiers(tt.spec)
			if err != nil {
				t.Fatalf("ParseSpecifiers(%q) error: %v", tt.spec, err)
			}
			if got := set.Match(MustParse(tt.version)); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.spec, tt.version, got, tt.want)
			}
		})
	}
}

func TestParseSpecifiers_Invalid(t *testing.T) {
	for _, in := range []string{"=>1.0", "==", "1.0", ">=one.two"} {
		if _, err := ParseSpecifiers(in); err == nil {
			t.Errorf("ParseSpecifiers(%q) succeeded, want error", in)
		}
	}
}

func TestSpecifierSet_Filter(t *testing.T) {
	versions := []*Version{
		MustParse("0.9"),
		MustParse("1.0a1"),
		MustParse("1.0"),
		MustParse("1.5"),
		MustParse("2.0b1"),
	}

	set, _ := ParseSpecifiers(">=1.0")
	got := set.Filter(versions)
	if len(got) != 2 || got[0].Original != "1.0" || got[1].Original != "1.5" {
		t.Errorf("Filter(>=1.0) excluded pre-releases wrong: %v", originals(got))
	}

	// When only pre-releases match, they are returned.
	set, _ = ParseSpecifiers(">=2.0a0")
	got = set.Filter(versions)
	if len(got) != 1 || got[0].Original != "2.0b1" {
		t.Errorf("Filter(>=2.0a0) = %v, want [2.0b1]", originals(got))
	}
}

func originals(vs []*Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Original
	}
	return out
}
