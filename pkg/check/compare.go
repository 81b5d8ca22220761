package check

import (
	"sort"

	"github.com/probitylabs/probity/pkg/archive"
)

// Mismatch is one Python source file whose content differs between the
// sdist and a binary artifact.
type Mismatch struct {
	Path      string
	SdistSHA1 string
	BdistSHA1 string
}

// Diff is the divergence between one binary artifact and the sdist,
// scoped to Python source files. Compiled extensions and data files are
// expected to differ structurally and are not compared.
type Diff struct {
	Extra      []string   // present in the bdist, absent from the sdist
	Mismatched []Mismatch // present in both with different content
	Matched    []string   // present in both with identical content
}

// Flags derives the bit flags this diff contributes.
func (d Diff) Flags() Flags {
	var f Flags
	if len(d.Extra) > 0 {
		f |= FlagExtraFiles
	}
	if len(d.Mismatched) > 0 {
		f |= FlagHashMismatch
	}
	return f
}

// SourceHashes maps comparison keys to digests for the archive's Python
// source members. Sdist paths are rebased past the version directory and
// a conventional src/ layer so both sides key the same logical file
// identically. When an sdist stores the same key twice (seen with
// src/-and-flat layouts), the first digest wins.
func SourceHashes(members []archive.Member, isSdist bool) map[string]string {
	hashes := make(map[string]string)
	for _, m := range members {
		if !m.IsPythonSource() {
			continue
		}
		key := archive.SourceKey(m.Path, isSdist)
		if _, ok := hashes[key]; !ok {
			hashes[key] = m.SHA1
		}
	}
	return hashes
}

// Compare diffs a binary artifact's source files against the sdist's.
// Files only the sdist has (tests, docs, build tooling) are legitimate
// and not reported.
func Compare(sdist, bdist map[string]string) Diff {
	var d Diff
	for path, sha := range bdist {
		want, ok := sdist[path]
		switch {
		case !ok:
			d.Extra = append(d.Extra, path)
		case want != sha:
			d.Mismatched = append(d.Mismatched, Mismatch{Path: path, SdistSHA1: want, BdistSHA1: sha})
		default:
			d.Matched = append(d.Matched, path)
		}
	}
	sort.Strings(d.Extra)
	sort.Strings(d.Matched)
	sort.Slice(d.Mismatched, func(i, j int) bool { return d.Mismatched[i].Path < d.Mismatched[j].Path })
	return d
}
