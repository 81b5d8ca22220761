// Package check compares a release's source distribution against its
// binary distributions and reports divergence as independent bit flags.
// The aggregate flag value doubles as the process exit code, so the
// numeric assignments are a stable contract.
package check

import "strings"

// Flags encodes the divergence categories found for a release. Flags
// from multiple releases combine with bitwise OR.
type Flags int

const (
	// FlagBdistOnly: the release has binary artifacts but no source
	// artifact to compare them against.
	FlagBdistOnly Flags = 1 << iota
	// FlagExtractionError: an artifact could not be fetched or its
	// archive could not be read.
	FlagExtractionError
	// FlagExtraFiles: a binary artifact ships Python source files the
	// sdist does not contain.
	FlagExtraFiles
	// FlagHashMismatch: a Python source file differs in content between
	// the sdist and a binary artifact.
	FlagHashMismatch
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagBdistOnly, "bdist_only"},
	{FlagExtractionError, "extraction_error"},
	{FlagExtraFiles, "extra_files"},
	{FlagHashMismatch, "hash_mismatch"},
}

// Has reports whether every bit of o is set in f.
func (f Flags) Has(o Flags) bool { return f&o == o }

func (f Flags) String() string {
	if f == 0 {
		return "ok"
	}
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ExitCode is the flag value itself; automation consumes it directly.
func (f Flags) ExitCode() int { return int(f) }
