package filter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/config"
	"strainmanifest/internal/failure"
	"strainmanifest/internal/logging"
	"strainmanifest/internal/table"
)

// Options configures a Filter.
type Options struct {
	OutputName  string
	TaxonColumn string
	Taxon       config.Taxon
}

// Filter selects rows of the target taxon and removes exact duplicates.
type Filter struct {
	store  artifacts.Store
	logger *slog.Logger
	opts   Options
}

// Result reports what Apply kept and dropped.
type Result struct {
	Table       *table.Table
	Record      artifacts.Record
	Input       int
	Kept        int
	NonMatching int
	Malformed   int
	Duplicates  int
	Warnings    []failure.Warning
}

// New constructs a Filter.
func New(store artifacts.Store, logger *slog.Logger, opts Options) *Filter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Filter{store: store, logger: logger, opts: opts}
}

// Apply filters merged and commits the result as CSV. Rows whose taxon value
// is missing or unparseable are dropped and reported as one warning. Of rows
// identical in every column, the first is kept.
func (f *Filter) Apply(ctx context.Context, merged *table.Table) (Result, error) {
	if f.opts.Taxon.IsZero() {
		return Result{}, failure.Wrap(failure.ErrConfiguration, "filter", "taxon", "no target taxon configured", nil)
	}
	column := f.opts.TaxonColumn

	out := table.New(merged.Header)
	result := Result{Input: merged.Len()}
	seen := make(map[string]struct{}, merged.Len())
	hasColumn := merged.HasColumn(column)

	for _, row := range merged.Rows {
		if !hasColumn {
			result.Malformed++
			continue
		}
		match, ok := f.matches(row[column])
		if !ok {
			result.Malformed++
			continue
		}
		if !match {
			result.NonMatching++
			continue
		}
		key := merged.Key(row)
		if _, dup := seen[key]; dup {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out.Append(row)
	}
	result.Kept = out.Len()

	if result.Malformed > 0 {
		reason := fmt.Sprintf("rows with missing or unparseable %s dropped", column)
		if !hasColumn {
			reason = fmt.Sprintf("merged table has no %s column; all rows dropped", column)
		}
		result.Warnings = append(result.Warnings, failure.Warning{
			Kind:    failure.WarningFilter,
			Count:   result.Malformed,
			Message: reason,
		})
	}

	rec, err := f.store.Commit(ctx, f.opts.OutputName, artifacts.KindFiltered, func(w io.Writer) (int, error) {
		return table.WriteCSV(w, out)
	})
	if err != nil {
		return Result{}, fmt.Errorf("commit filtered table: %w", err)
	}
	result.Table = out
	result.Record = rec

	f.logger.Info("filtered table committed",
		logging.String(logging.FieldArtifact, rec.Name),
		logging.String("taxon", f.opts.Taxon.String()),
		logging.Int("input", result.Input),
		logging.Int("kept", result.Kept),
		logging.Int("non_matching", result.NonMatching),
		logging.Int("malformed", result.Malformed),
		logging.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

// matches reports whether value names the target taxon. ok is false when the
// value cannot be compared.
func (f *Filter) matches(value string) (match bool, ok bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false, false
	}
	if !f.opts.Taxon.Numeric {
		return trimmed == f.opts.Taxon.Value, true
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return false, false
	}
	return id == f.opts.Taxon.ID, true
}
