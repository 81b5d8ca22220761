package index

import (
	"fmt"
	"regexp"
	"strings"
)

// sdistExtensions are the archive suffixes a source distribution may use.
// Most packages publish .tar.gz; .zip, .tar.bz2, and .tgz survive from
// older tooling.
var sdistExtensions = []string{".tgz", ".tar.gz", ".zip", ".tar.bz2"}

// numericVersionRE splits "<name>-<version>[suffix]" after the archive
// extension has been removed. The platform group catches bdist_dumb
// builds, whose filenames look like sdists with a platform tag appended.
var numericVersionRE = regexp.MustCompile(
	`^(?P<name>.*?)-(?P<version>[0-9][^-]*?)` +
		`(?P<suffix>(?P<platform>\.macosx|\.linux|\.cygwin|\.win(?:xp)?(?:32)?)?(?:|-.*))?$`)

var archiveSuffixes = []string{
	".egg", ".whl", ".zip", ".gz", ".bz2", ".tar", ".exe", ".msi", ".rpm", ".dmg", ".tgz",
}

// trimArchiveSuffix strips all recognized archive suffixes from a
// filename, so "foo-1.0.tar.gz" becomes "foo-1.0".
func trimArchiveSuffix(basename string) string {
	for _, s := range archiveSuffixes {
		basename = strings.TrimSuffix(basename, s)
	}
	return basename
}

// KindForFilename classifies an artifact filename into its distribution
// kind. Classification happens here rather than trusting index metadata
// because the index reports platform-suffixed dumb builds as sdists.
func KindForFilename(filename string) (Kind, error) {
	switch {
	case strings.HasSuffix(filename, ".egg"):
		return KindEgg, nil
	case strings.HasSuffix(filename, ".whl"):
		return KindWheel, nil
	case strings.HasSuffix(filename, ".exe"):
		return KindWininst, nil
	case strings.HasSuffix(filename, ".msi"):
		return KindMsi, nil
	case strings.HasSuffix(filename, ".rpm"):
		return KindRpm, nil
	case strings.HasSuffix(filename, ".dmg"):
		return KindDmg, nil
	}
	for _, ext := range sdistExtensions {
		if !strings.HasSuffix(filename, ext) {
			continue
		}
		m := numericVersionRE.FindStringSubmatch(trimArchiveSuffix(filename))
		if m == nil {
			// Oddly-named files that pip would not load either.
			return KindUnknown, fmt.Errorf("unparseable filename %q", filename)
		}
		suffix := m[numericVersionRE.SubexpIndex("suffix")]
		platform := m[numericVersionRE.SubexpIndex("platform")]
		if platform != "" || strings.HasPrefix(suffix, "-macosx") {
			return KindDumb, nil
		}
		return KindSdist, nil
	}
	return KindUnknown, nil
}

// SplitFilename extracts the (package name, version string) pair from an
// artifact filename, e.g. "requests-2.31.0.tar.gz" → ("requests",
// "2.31.0"). Returns an error for filenames that do not follow the
// name-version convention.
func SplitFilename(filename string) (name, version string, err error) {
	base := trimArchiveSuffix(filename)
	m := numericVersionRE.FindStringSubmatch(base)
	if m == nil {
		return "", "", fmt.Errorf("unparseable filename %q", filename)
	}
	return m[numericVersionRE.SubexpIndex("name")], m[numericVersionRE.SubexpIndex("version")], nil
}
