// Package resultsdir guards and resets the results directory a pipeline run
// writes into.
//
// Acquire takes an exclusive advisory lock so two runs never interleave
// writes. Reset clears the directory before a fresh build while keeping the
// lock file held by the caller.
package resultsdir
