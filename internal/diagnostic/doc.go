// Package diagnostic collects structured warnings and errors produced while
// validating mapping rules and while mapping parsed records into the archive.
//
// Key capabilities:
//   - Rule validation errors with "did you mean" suggestions
//   - Per-field mapping failures (transform errors, recovered panics)
//   - Source tag and field path on every entry
package diagnostic
