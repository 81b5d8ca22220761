package index

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/pep440"
)

// jsonDocument mirrors the JSON index's per-package document.
type jsonDocument struct {
	Info struct {
		Name         string   `json:"name"`
		RequiresDist []string `json:"requires_dist"`
	} `json:"info"`
	Releases map[string][]jsonFile `json:"releases"`
}

type jsonFile struct {
	Filename       string `json:"filename"`
	URL            string `json:"url"`
	Size           int64  `json:"size"`
	RequiresPython string `json:"requires_python"`
	UploadTime     string `json:"upload_time_iso_8601"`
	Yanked         bool   `json:"yanked"`
	PythonVersion  string `json:"python_version"`
	Digests        struct {
		SHA256 string `json:"sha256"`
	} `json:"digests"`
}

// ParseJSON parses the JSON index document for pkg into a Package. The
// JSON format carries everything the simple listing does plus digests,
// sizes, upload times, and yank status.
//
// Releases with no files are dropped; they have nothing to install and do
// not appear in the simple listing either. Malformed filenames are skipped
// (logged) unless strict is set.
func ParseJSON(pkg string, r io.Reader, strict bool, logf func(string, ...any)) (*Package, error) {
	var doc jsonDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parse json index for %s", pkg)
	}

	var entries []entry
	for version, files := range doc.Releases {
		for _, f := range files {
			a, err := artifactFromJSON(f)
			if err != nil {
				if strict {
					return nil, err
				}
				logf("skipping index entry: %v", err)
				continue
			}
			entries = append(entries, entry{artifact: a, version: version})
		}
	}

	p, err := buildPackage(pkg, entries, strict, logf)
	if err != nil {
		return nil, err
	}
	p.Requires = doc.Info.RequiresDist
	return p, nil
}

func artifactFromJSON(f jsonFile) (Artifact, error) {
	// Classify by filename rather than the document's packagetype field,
	// which misreports platform-suffixed dumb builds as sdists.
	kind, err := KindForFilename(f.Filename)
	if err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeParse, err, "classify %s", f.Filename)
	}

	var uploaded time.Time
	if f.UploadTime != "" {
		// Timestamps before ~2009 lack fractional seconds; RFC 3339
		// parsing accepts both spellings.
		uploaded, err = time.Parse(time.RFC3339, f.UploadTime)
		if err != nil {
			return Artifact{}, errors.Wrap(errors.ErrCodeParse, err, "upload time for %s", f.Filename)
		}
	}

	return Artifact{
		Filename:       f.Filename,
		URL:            f.URL,
		SHA256:         f.Digests.SHA256,
		Size:           f.Size,
		UploadTime:     uploaded,
		Kind:           kind,
		RequiresPython: f.RequiresPython,
		PythonTag:      f.PythonVersion,
		Yanked:         f.Yanked,
	}, nil
}

// entry pairs an artifact with the version string the index stated for
// it. The simple listing states none, so the version is recovered from the
// filename.
type entry struct {
	artifact Artifact
	version  string
}

// buildPackage groups artifacts into releases keyed by normalized version
// and sorts the catalog exactly once: ascending PEP 440 order, ties broken
// by earliest upload time, oldest first.
func buildPackage(pkg string, entries []entry, strict bool, logf func(string, ...any)) (*Package, error) {
	releases := make(map[string]*Release)
	for _, e := range entries {
		a, version := e.artifact, e.version
		if version == "" {
			var err error
			_, version, err = SplitFilename(a.Filename)
			if err != nil {
				if strict {
					return nil, errors.Wrap(errors.ErrCodeParse, err, "version for %s", a.Filename)
				}
				logf("skipping index entry: %v", err)
				continue
			}
		}
		parsed, err := pep440.Parse(version)
		if err != nil {
			if strict {
				return nil, errors.Wrap(errors.ErrCodeParse, err, "version for %s", a.Filename)
			}
			logf("skipping index entry: unparseable version %q in %s", version, a.Filename)
			continue
		}

		key := parsed.String()
		rel, ok := releases[key]
		if !ok {
			rel = &Release{Name: NormalizeName(pkg), Version: version, Parsed: parsed}
			releases[key] = rel
		}
		rel.Artifacts = append(rel.Artifacts, a)
	}

	p := &Package{Name: NormalizeName(pkg)}
	for _, rel := range releases {
		rel.Yanked = allYanked(rel.Artifacts)
		sort.SliceStable(rel.Artifacts, func(i, j int) bool {
			return rel.Artifacts[i].Filename < rel.Artifacts[j].Filename
		})
		p.Releases = append(p.Releases, rel)
	}
	sort.SliceStable(p.Releases, func(i, j int) bool {
		if c := p.Releases[i].Parsed.Compare(p.Releases[j].Parsed); c != 0 {
			return c < 0
		}
		return p.Releases[i].EarliestUpload().Before(p.Releases[j].EarliestUpload())
	})
	return p, nil
}

func allYanked(artifacts []Artifact) bool {
	if len(artifacts) == 0 {
		return false
	}
	for _, a := range artifacts {
		if !a.Yanked {
			return false
		}
	}
	return true
}
