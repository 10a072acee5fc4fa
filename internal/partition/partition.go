package partition

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/failure"
	"strainmanifest/internal/logging"
	"strainmanifest/internal/table"
)

// Options configures a Partitioner.
type Options struct {
	Dir          string
	StrainColumn string
}

// Partitioner writes per-strain tables.
type Partitioner struct {
	store  artifacts.Store
	logger *slog.Logger
	opts   Options
}

// Strain describes one per-strain table.
type Strain struct {
	ID   string
	Name string
	Rows int
}

// Result reports the strains written by Split.
type Result struct {
	Strains  []Strain
	Excluded int
	Removed  []string
	Warnings []failure.Warning
}

// IDs returns the strain IDs in first-seen order.
func (r Result) IDs() []string {
	ids := make([]string, len(r.Strains))
	for i, s := range r.Strains {
		ids[i] = s.ID
	}
	return ids
}

// New constructs a Partitioner.
func New(store artifacts.Store, logger *slog.Logger, opts Options) *Partitioner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Dir == "" {
		opts.Dir = "strains"
	}
	return &Partitioner{store: store, logger: logger, opts: opts}
}

func (p *Partitioner) artifactName(stem string) string {
	return path.Join(p.opts.Dir, stem+".csv")
}

// Split groups filtered by strain and commits one table per strain. Rows with
// an empty strain are excluded and reported as one warning. Strain tables
// from earlier runs that are not part of filtered are removed.
func (p *Partitioner) Split(ctx context.Context, filtered *table.Table) (Result, error) {
	column := p.opts.StrainColumn
	var (
		result Result
		order  []string
	)
	groups := make(map[string]*table.Table)
	if filtered.HasColumn(column) {
		for _, row := range filtered.Rows {
			id := table.Normalize(row[column])
			if id == "" {
				result.Excluded++
				continue
			}
			group, ok := groups[id]
			if !ok {
				group = table.New(filtered.Header)
				groups[id] = group
				order = append(order, id)
			}
			group.Append(row)
		}
	} else {
		result.Excluded = filtered.Len()
	}

	names := make(map[string]string, len(order))
	for id, stem := range uniqueStems(order) {
		names[id] = p.artifactName(stem)
	}
	for _, id := range order {
		group := groups[id]
		rec, err := p.store.Commit(ctx, names[id], artifacts.KindStrain, func(w io.Writer) (int, error) {
			return table.WriteCSV(w, group)
		})
		if err != nil {
			return Result{}, fmt.Errorf("commit strain %s: %w", id, err)
		}
		result.Strains = append(result.Strains, Strain{ID: id, Name: rec.Name, Rows: rec.Rows})
	}

	removed, err := p.removeStale(ctx, names)
	if err != nil {
		return Result{}, err
	}
	result.Removed = removed

	if result.Excluded > 0 {
		result.Warnings = append(result.Warnings, failure.Warning{
			Kind:    failure.WarningPartition,
			Count:   result.Excluded,
			Message: fmt.Sprintf("rows without a %s value excluded", column),
		})
	}

	p.logger.Info("strain tables committed",
		logging.Int("strains", len(result.Strains)),
		logging.Int("excluded", result.Excluded),
		logging.Int("removed", len(removed)),
	)
	return result, nil
}

func (p *Partitioner) removeStale(ctx context.Context, current map[string]string) ([]string, error) {
	keep := make(map[string]struct{}, len(current))
	for _, name := range current {
		keep[name] = struct{}{}
	}
	records, err := p.store.List(ctx, artifacts.KindStrain)
	if err != nil {
		return nil, fmt.Errorf("list strain tables: %w", err)
	}
	var removed []string
	for _, rec := range records {
		if _, ok := keep[rec.Name]; ok {
			continue
		}
		if err := p.store.Remove(ctx, rec.Name); err != nil {
			return removed, fmt.Errorf("remove stale strain table: %w", err)
		}
		p.logger.Debug("stale strain table removed", logging.String(logging.FieldArtifact, rec.Name))
		removed = append(removed, rec.Name)
	}
	return removed, nil
}
