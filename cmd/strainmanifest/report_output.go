package main

import (
	"fmt"
	"strconv"
	"strings"

	"strainmanifest/internal/partition"
	"strainmanifest/internal/pipeline"
)

type runSummary struct {
	RunID      string         `json:"run_id"`
	ResultsDir string         `json:"results_dir"`
	Fetched    []string       `json:"fetched"`
	Skipped    []string       `json:"skipped"`
	Failed     []string       `json:"fetch_failed"`
	Merged     mergedSummary  `json:"merged"`
	Filter     filterSummary  `json:"filter"`
	Strains    []strainRow    `json:"strains"`
	Removed    []string       `json:"removed_strains"`
	Registry   registryOutput `json:"registry"`
	Warnings   []warningRow   `json:"warnings"`
	DurationMS int64          `json:"duration_ms"`
}

type mergedSummary struct {
	Rows    int      `json:"rows"`
	Columns int      `json:"columns"`
	Sources []string `json:"sources"`
	Reused  bool     `json:"reused"`
}

type filterSummary struct {
	Input       int `json:"input"`
	Kept        int `json:"kept"`
	NonMatching int `json:"non_matching"`
	Malformed   int `json:"malformed"`
	Duplicates  int `json:"duplicates"`
}

type strainRow struct {
	ID   string `json:"id"`
	File string `json:"file"`
	Rows int    `json:"rows"`
}

type registryOutput struct {
	IDs     []string `json:"ids"`
	Added   []string `json:"added"`
	Written bool     `json:"written"`
}

type warningRow struct {
	Kind    string `json:"kind"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

func newRunSummary(r *pipeline.Report) runSummary {
	summary := runSummary{
		RunID:      r.RunID,
		ResultsDir: r.ResultsDir,
		Fetched:    nonNil(r.Fetched),
		Skipped:    nonNil(r.Skipped),
		Failed:     nonNil(r.FetchFailed),
		Merged: mergedSummary{
			Rows:    r.MergedRows,
			Columns: r.MergedColumns,
			Sources: nonNil(r.MergedSources),
			Reused:  r.MergeReused,
		},
		Filter: filterSummary{
			Input:       r.FilterInput,
			Kept:        r.FilterKept,
			NonMatching: r.FilterNonMatching,
			Malformed:   r.FilterMalformed,
			Duplicates:  r.FilterDuplicates,
		},
		Strains: make([]strainRow, 0, len(r.Strains)),
		Removed: nonNil(r.RemovedStrains),
		Registry: registryOutput{
			IDs:     nonNil(r.Registry),
			Added:   nonNil(r.RegistryAdded),
			Written: r.RegistryWritten,
		},
		Warnings:   make([]warningRow, 0, len(r.Warnings)),
		DurationMS: r.Duration.Milliseconds(),
	}
	for _, s := range r.Strains {
		summary.Strains = append(summary.Strains, strainRow{ID: s.ID, File: s.Name, Rows: s.Rows})
	}
	for _, w := range r.Warnings {
		summary.Warnings = append(summary.Warnings, warningRow{Kind: string(w.Kind), Count: w.Count, Message: w.Message})
	}
	return summary
}

func renderReport(r *pipeline.Report, colorize bool) string {
	var b strings.Builder
	writeLines := func(lines ...string) {
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	writeLines(renderSectionHeader("Run "+r.RunID, colorize)...)
	writeLines(
		renderStatusLine("Results", statusInfo, r.ResultsDir, colorize),
		fetchStatusLine(r, colorize),
		renderStatusLine("Merged", statusOK, mergedDetail(r), colorize),
		renderStatusLine("Filtered", filterKind(r), filterDetail(r), colorize),
		renderStatusLine("Strains", statusOK, strainsDetail(r), colorize),
		renderStatusLine("Registry", statusOK, registryDetail(r), colorize),
	)
	for _, w := range r.Warnings {
		writeLines(renderStatusLine("Warning", statusWarn, fmt.Sprintf("%s: %s", w.Kind, w.Message), colorize))
	}

	if len(r.Strains) > 0 {
		b.WriteByte('\n')
		writeLines(renderTable([]string{"Strain", "File", "Rows"}, strainTableRows(r.Strains), []int{2}, colorize))
	}
	return b.String()
}

func fetchStatusLine(r *pipeline.Report, colorize bool) string {
	detail := fmt.Sprintf("%d fetched (%d rows), %d already merged", len(r.Fetched), r.FetchedRows, len(r.Skipped))
	if len(r.FetchFailed) > 0 {
		detail += fmt.Sprintf(", %d failed: %s", len(r.FetchFailed), strings.Join(r.FetchFailed, ", "))
		return renderStatusLine("Fetch", statusWarn, detail, colorize)
	}
	return renderStatusLine("Fetch", statusOK, detail, colorize)
}

func mergedDetail(r *pipeline.Report) string {
	detail := fmt.Sprintf("%d rows, %d columns from %d sources", r.MergedRows, r.MergedColumns, len(r.MergedSources))
	if r.MergeReused {
		detail += " (unchanged)"
	}
	return detail
}

func filterKind(r *pipeline.Report) statusKind {
	if r.FilterMalformed > 0 {
		return statusWarn
	}
	return statusOK
}

func filterDetail(r *pipeline.Report) string {
	return fmt.Sprintf("%d of %d kept (%d other taxa, %d malformed, %d duplicates)",
		r.FilterKept, r.FilterInput, r.FilterNonMatching, r.FilterMalformed, r.FilterDuplicates)
}

func strainsDetail(r *pipeline.Report) string {
	detail := fmt.Sprintf("%d files written", len(r.Strains))
	if len(r.RemovedStrains) > 0 {
		detail += fmt.Sprintf(", %d stale removed", len(r.RemovedStrains))
	}
	return detail
}

func registryDetail(r *pipeline.Report) string {
	detail := fmt.Sprintf("%d strains", len(r.Registry))
	switch {
	case len(r.RegistryAdded) > 0:
		detail += fmt.Sprintf(", added %s", strings.Join(r.RegistryAdded, ", "))
	case !r.RegistryWritten:
		detail += ", unchanged"
	}
	return detail
}

func strainTableRows(strains []partition.Strain) [][]string {
	rows := make([][]string, 0, len(strains))
	for _, s := range strains {
		rows = append(rows, []string{s.ID, s.Name, strconv.Itoa(s.Rows)})
	}
	return rows
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
