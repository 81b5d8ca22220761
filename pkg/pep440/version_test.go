package pep440

import (
	"math/rand"
	"testing"
)

func TestParse_Normalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.0", "1.0"},
		{"v1.0", "1.0"},
		{"1.0.0", "1.0.0"},
		{"1.0a1", "1.0a1"},
		{"1.0alpha1", "1.0a1"},
		{"1.0-beta.2", "1.0b2"},
		{"1.0pre1", "1.0rc1"},
		{"1.0c1", "1.0rc1"},
		{"1.0.post1", "1.0.post1"},
		{"1.0-1", "1.0.post1"},
		{"1.0rev2", "1.0.post2"},
		{"1.0.dev3", "1.0.dev3"},
		{"1.0dev", "1.0.dev0"},
		{"2!1.0", "2!1.0"},
		{"1.0+ubuntu-1", "1.0+ubuntu.1"},
		{"1.0.POST1", "1.0.post1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if got := v.String(); got != tt.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.0.x", "1.0..2", "french toast", "1.0+"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

// TestCompare_Ordering pins the canonical PEP 440 ordering chain: each
// version must be strictly less than the next.
func TestCompare_Ordering(t *testing.T) {
	chain := []string{
		"0.9",
		"1.0.dev1",
		"1.0a1",
		"1.0a2",
		"1.0b1",
		"1.0rc1",
		"1.0",
		"1.0+local",
		"1.0.post1",
		"1.0.1",
		"1.0.1.post1",
		"1.1",
		"2!0.1",
	}
	for i := 0; i < len(chain)-1; i++ {
		a, b := MustParse(chain[i]), MustParse(chain[i+1])
		if !a.Less(b) {
			t.Errorf("%q < %q = false, want true", chain[i], chain[i+1])
		}
		if b.Less(a) {
			t.Errorf("%q < %q = true, want false", chain[i+1], chain[i])
		}
	}
}

func TestCompare_TextuallyDifferentButEqual(t *testing.T) {
	pairs := [][2]string{
		{"1.0", "1.0.0"},
		{"1.0", "v1.0"},
		{"1.0a1", "1.0alpha1"},
		{"1.0.post1", "1.0-1"},
		{"1.0+foo-bar", "1.0+foo.bar"},
	}
	for _, p := range pairs {
		a, b := MustParse(p[0]), MustParse(p[1])
		if !a.Equal(b) {
			t.Errorf("%q == %q = false, want true", p[0], p[1])
		}
	}
}

// TestCompare_TotalOrder checks antisymmetry and transitivity over a
// shuffled sample, since the comparator is the basis for catalog sorting.
func TestCompare_TotalOrder(t *testing.T) {
	sample := []string{
		"0.1", "1.0.dev1", "1.0a1", "1.0b2", "1.0rc1", "1.0", "1.0.post1",
		"1.0.1", "1.2", "2.0.dev0", "2.0", "2.0+local.1", "3!0.5",
	}
	vs := make([]*Version, len(sample))
	for i, s := range sample {
		vs[i] = MustParse(s)
	}

	for _, a := range vs {
		for _, b := range vs {
			if a.Compare(b) != -b.Compare(a) {
				t.Errorf("antisymmetry violated for %q, %q", a.Original, b.Original)
			}
			for _, c := range vs {
				if a.Compare(b) <= 0 && b.Compare(c) <= 0 && a.Compare(c) > 0 {
					t.Errorf("transitivity violated for %q, %q, %q", a.Original, b.Original, c.Original)
				}
			}
		}
	}
}

func TestSort_StableAndDeterministic(t *testing.T) {
	want := []string{"1.0.dev1", "1.0a1", "1.0", "1.0.post1", "1.1", "2.0"}

	rng := rand.New(rand.NewSource(42))
	for range 5 {
		vs := make([]*Version, len(want))
		for i, s := range want {
			vs[i] = MustParse(s)
		}
		rng.Shuffle(len(vs), func(i, j int) { vs[i], vs[j] = vs[j], vs[i] })

		Sort(vs)
		for i, v := range vs {
			if v.Original != want[i] {
				t.Fatalf("Sort() order[%d] = %q, want %q", i, v.Original, want[i])
			}
		}
	}
}

func TestIsPrerelease(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1.0", false},
		{"1.0a1", true},
		{"1.0.dev1", true},
		{"1.0.post1", false},
	}
	for _, tt := range tests {
		if got := MustParse(tt.in).IsPrerelease(); got != tt.want {
			t.Errorf("IsPrerelease(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
