// Package artifacts persists the files a manifest build produces and records
// their state in a SQLite ledger next to them.
//
// Every write goes through Store.Commit, which writes a temp file, marks the
// ledger entry partial, renames the file into place, and marks it complete
// with a SHA-256 checksum, row count and the run that produced it. Readers use
// Store.Open, which refuses artifacts whose ledger entry is partial, missing,
// or disagrees with the bytes on disk. Presence of a file alone is never
// treated as a completion signal.
//
// The ledger also tracks pipeline runs so status commands can report when a
// results directory was last built and how that build ended.
package artifacts
