// Package main hosts the strainmanifest CLI.
//
// The Cobra command tree loads configuration once, applies command-line
// overrides, and hands off to internal/pipeline for builds. Read-only
// commands (status, registry) inspect the results directory and its ledger
// without fetching anything.
package main
