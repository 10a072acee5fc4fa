// Package failure defines the error taxonomy shared by the pipeline stages.
//
// Fatal conditions are typed errors (RetrievalError, MergeError,
// RegistryCorruptionError) that also match the exported sentinel markers via
// errors.Is, so callers can classify a failure without knowing which stage
// produced it. Non-fatal conditions are collected as Warning values and
// surfaced in the run report instead of aborting the run.
package failure
