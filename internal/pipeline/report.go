package pipeline

import (
	"time"

	"strainmanifest/internal/failure"
	"strainmanifest/internal/partition"
)

// Report summarizes a finished run.
type Report struct {
	RunID      string
	ResultsDir string

	Fetched     []string
	Skipped     []string
	FetchFailed []string
	FetchedRows int

	MergedRows    int
	MergedColumns int
	MergedSources []string
	MergeReused   bool

	FilterInput       int
	FilterKept        int
	FilterNonMatching int
	FilterMalformed   int
	FilterDuplicates  int

	Strains        []partition.Strain
	RemovedStrains []string

	Registry        []string
	RegistryAdded   []string
	RegistryWritten bool

	Warnings []failure.Warning
	Duration time.Duration
}

func (r *Report) addWarnings(warnings []failure.Warning) {
	r.Warnings = append(r.Warnings, warnings...)
}
