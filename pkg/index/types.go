package index

import (
	"regexp"
	"strings"
	"time"

	"github.com/probitylabs/probity/pkg/pep440"
)

// Kind identifies what sort of distribution an artifact is. The catalog
// classifies by filename because the index itself misreports some legacy
// formats (platform-suffixed dumb builds show up as sdists).
type Kind int

// Artifact kinds, roughly in descending order of how often they appear on
// a modern index. Everything except KindSdist and KindUnknown is a binary
// distribution.
const (
	KindUnknown Kind = iota
	KindSdist
	KindWheel
	KindEgg
	KindDumb
	KindWininst
	KindMsi
	KindRpm
	KindDmg
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindSdist:   "sdist",
	KindWheel:   "wheel",
	KindEgg:     "egg",
	KindDumb:    "bdist_dumb",
	KindWininst: "wininst",
	KindMsi:     "msi",
	KindRpm:     "rpm",
	KindDmg:     "dmg",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsBinary reports whether the artifact is a prebuilt distribution.
func (k Kind) IsBinary() bool {
	return k != KindUnknown && k != KindSdist
}

// Artifact describes one published file of a release.
type Artifact struct {
	Filename       string    `json:"filename"`
	URL            string    `json:"url"`
	SHA256         string    `json:"sha256,omitempty"` // hex digest from index metadata; empty if the format omits it
	Size           int64     `json:"size,omitempty"`
	UploadTime     time.Time `json:"upload_time,omitempty"`
	Kind           Kind      `json:"kind"`
	RequiresPython string    `json:"requires_python,omitempty"`
	PythonTag      string    `json:"python_tag,omitempty"` // e.g. "py3", "cp311", "source"
	Yanked         bool      `json:"yanked,omitempty"`
}

// Release is one published version of a package with all of its artifacts.
type Release struct {
	Name      string          `json:"name"`
	Version   string          `json:"version"` // exactly as published
	Parsed    *pep440.Version `json:"-"`
	Artifacts []Artifact      `json:"artifacts"`
	Requires  []string        `json:"requires,omitempty"` // declared requirement strings (JSON index only)
	Yanked    bool            `json:"yanked,omitempty"`   // all artifacts yanked
}

// Sdist returns the release's source artifact, or nil if it has none.
// A release has at most one canonical source artifact; the first wins if
// the index lists several.
func (r *Release) Sdist() *Artifact {
	for i := range r.Artifacts {
		if r.Artifacts[i].Kind == KindSdist {
			return &r.Artifacts[i]
		}
	}
	return nil
}

// Binaries returns the release's binary artifacts in index order.
func (r *Release) Binaries() []Artifact {
	var out []Artifact
	for _, a := range r.Artifacts {
		if a.Kind.IsBinary() {
			out = append(out, a)
		}
	}
	return out
}

// Wheels returns only the wheel artifacts.
func (r *Release) Wheels() []Artifact {
	var out []Artifact
	for _, a := range r.Artifacts {
		if a.Kind == KindWheel {
			out = append(out, a)
		}
	}
	return out
}

// RequiresPython returns the first requires_python constraint found on the
// release's artifacts. The index stores it per file, not per release.
func (r *Release) RequiresPython() string {
	for _, a := range r.Artifacts {
		if a.RequiresPython != "" {
			return a.RequiresPython
		}
	}
	return ""
}

// EarliestUpload returns the oldest artifact upload time, or the zero time
// when the index format does not carry timestamps.
func (r *Release) EarliestUpload() time.Time {
	var t time.Time
	for _, a := range r.Artifacts {
		if a.UploadTime.IsZero() {
			continue
		}
		if t.IsZero() || a.UploadTime.Before(t) {
			t = a.UploadTime
		}
	}
	return t
}

// Package is a normalized catalog of everything the index knows about one
// package name. Releases are ascending by version.
type Package struct {
	Name     string     `json:"name"`
	Releases []*Release `json:"releases"`
	Requires []string   `json:"requires,omitempty"` // requires_dist of the newest release (JSON index only)
}

// Release returns the release whose parsed version equals v, or nil.
func (p *Package) Release(v *pep440.Version) *Release {
	for _, r := range p.Releases {
		if r.Parsed.Equal(v) {
			return r
		}
	}
	return nil
}

// Latest returns the newest release, or nil for an empty catalog. When
// skipYanked is set, yanked releases are passed over.
func (p *Package) Latest(skipYanked bool) *Release {
	for i := len(p.Releases) - 1; i >= 0; i-- {
		if skipYanked && p.Releases[i].Yanked {
			continue
		}
		return p.Releases[i]
	}
	return nil
}

var nameSeparatorRE = regexp.MustCompile(`[-_.]+`)

// NormalizeName folds a package name to its canonical PEP 503 form:
// lowercase with runs of "-", "_", and "." collapsed to a single hyphen.
func NormalizeName(name string) string {
	return strings.ToLower(nameSeparatorRE.ReplaceAllString(name, "-"))
}
