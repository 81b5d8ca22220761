package deps

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/probitylabs/probity/pkg/archive"
)

// RequirementsFromWheel reads the Requires-Dist headers from a wheel's
// dist-info METADATA. Wheels normally carry exactly one; the shortest
// match guards against vendored test fixtures deep in the archive.
func RequirementsFromWheel(path string) ([]string, error) {
	members, err := archive.Inspect(path)
	if err != nil {
		return nil, err
	}
	var candidates []string
	for _, m := range members {
		if m.Kind == archive.MemberFile && strings.HasSuffix(m.Path, "/METADATA") {
			candidates = append(candidates, m.Path)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) < len(candidates[j]) })

	data, err := archive.ReadMember(path, candidates[0])
	if err != nil {
		return nil, err
	}
	return parseRequiresDist(data), nil
}

// parseRequiresDist pulls Requires-Dist header values from wheel
// metadata. Headers end at the first blank line; the description body
// that follows may contain anything.
func parseRequiresDist(data []byte) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		if rest, ok := cutHeader(line, "Requires-Dist"); ok {
			out = append(out, rest)
		}
	}
	return out
}

func cutHeader(line, name string) (string, bool) {
	if len(line) <= len(name) || line[len(name)] != ':' {
		return "", false
	}
	if !strings.EqualFold(line[:len(name)], name) {
		return "", false
	}
	return strings.TrimSpace(line[len(name)+1:]), true
}

// RequirementsFromSdist reads an sdist's egg-info requires.txt and
// converts it to requirement strings. Matches are limited to paths at
// most two directories deep so fixture archives inside test trees are
// not mistaken for the package's own metadata. Sdists built without
// setuptools may have no requires.txt at all; that is an empty result,
// not an error.
func RequirementsFromSdist(path string) ([]string, error) {
	members, err := archive.Inspect(path)
	if err != nil {
		return nil, err
	}
	var candidates []string
	for _, m := range members {
		if m.Kind == archive.MemberFile &&
			strings.HasSuffix(m.Path, "/requires.txt") &&
			strings.Count(m.Path, "/") <= 2 {
			candidates = append(candidates, m.Path)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) < len(candidates[j]) })

	data, err := archive.ReadMember(path, candidates[0])
	if err != nil {
		return nil, err
	}
	return ConvertSdistRequires(string(data)), nil
}

// ConvertSdistRequires rewrites the requires.txt section format into
// requirement strings with markers. A bare [section] names an extra; a
// [section:marker] or [:marker] header scopes the following lines to
// that marker expression. The format has no published spec; this follows
// what setuptools writes.
func ConvertSdistRequires(data string) []string {
	var out []string
	currentMarker := ""
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			section := line[1 : len(line)-1]
			if extra, marker, found := strings.Cut(section, ":"); found {
				if extra != "" {
					currentMarker = fmt.Sprintf("(%s) and extra == %q", marker, extra)
				} else {
					currentMarker = marker
				}
			} else {
				currentMarker = fmt.Sprintf("extra == %q", section)
			}
		case currentMarker != "":
			out = append(out, line+"; "+currentMarker)
		default:
			out = append(out, line)
		}
	}
	return out
}
