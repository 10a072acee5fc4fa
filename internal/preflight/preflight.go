package preflight

import (
	"context"
	"fmt"
	"strings"

	"strainmanifest/internal/config"
	"strainmanifest/internal/failure"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks a run depends on. The portal is not probed here;
// fetch failures already carry the accession and status that failed.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Results directory", cfg.Pipeline.ResultsDir),
	}
	if cfg.Pipeline.MinFreeMiB > 0 {
		results = append(results, CheckFreeSpace("Free space", cfg.Pipeline.ResultsDir, uint64(cfg.Pipeline.MinFreeMiB)))
	}
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	return results
}

// Err returns a configuration error naming every failed check, or nil.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return failure.Wrap(failure.ErrConfiguration, "preflight", "check", strings.Join(failed, "; "), nil)
}
