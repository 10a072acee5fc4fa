// Package pipeline runs a manifest build end to end: fetch, merge, filter,
// partition and registry update against one results directory.
//
// A run holds the results directory lock for its whole duration, checks the
// directory before writing, and records itself in the artifact ledger. Any
// fatal error stops the run before the failing stage commits its artifact,
// and the registry is written last, so a failed run never changes it.
package pipeline
