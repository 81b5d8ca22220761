// Package index resolves package names against a Python package index and
// normalizes the two index representations into a single release catalog.
//
// The index exposes the same logical data in two formats: the simple HTML
// listing (one <a> per artifact, checksum in the URL fragment) and the JSON
// document (per-release artifact arrays with digests, sizes, upload times,
// and yank status). [ParseSimple] and [ParseJSON] are independent parsers
// that produce field-for-field identical [Package] values for the same
// logical package, modulo the optional fields only the JSON format
// carries.
//
// Releases are sorted exactly once, ascending by PEP 440 order with ties
// broken by earliest upload time, so catalog output is deterministic.
// Yanked releases are kept and flagged; callers decide whether to skip
// them.
package index
