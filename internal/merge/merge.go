package merge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/failure"
	"strainmanifest/internal/fetch"
	"strainmanifest/internal/logging"
	"strainmanifest/internal/table"
)

// Options configures a Merger.
type Options struct {
	MergedName string
	ArchiveRaw bool
	ArchiveDir string
}

// Merger builds the merged table artifact.
type Merger struct {
	store  artifacts.Store
	logger *slog.Logger
	opts   Options
}

// Result describes the merged table produced or reused by Merge.
type Result struct {
	Table   *table.Table
	Record  artifacts.Record
	Sources []string
	Added   []string
	Reused  bool
}

// Prior describes the merged table left by an earlier run.
type Prior struct {
	Sources  []string
	Complete bool
}

// NewMerger constructs a Merger.
func NewMerger(store artifacts.Store, logger *slog.Logger, opts Options) *Merger {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.ArchiveDir == "" {
		opts.ArchiveDir = "archive"
	}
	return &Merger{store: store, logger: logger, opts: opts}
}

// ArchiveName returns the artifact name of the archived raw table for accession.
func (m *Merger) ArchiveName(accession string) string {
	return path.Join(m.opts.ArchiveDir, fetch.RawName(accession)+".gz")
}

// Prior returns the sources recorded on an existing merged table. A merged
// file without a ledger entry is an inconsistent results directory.
func (m *Merger) Prior(ctx context.Context) (Prior, error) {
	rec, err := m.store.Stat(ctx, m.opts.MergedName)
	switch {
	case errors.Is(err, artifacts.ErrNotFound):
		return Prior{}, nil
	case err != nil:
		return Prior{}, err
	}
	return Prior{Sources: rec.Sources, Complete: rec.Complete()}, nil
}

// Pending returns the accessions not yet part of a complete merged table,
// preserving their order.
func (m *Merger) Pending(ctx context.Context, accessions []string) ([]string, error) {
	prior, err := m.Prior(ctx)
	if err != nil {
		return nil, err
	}
	if !prior.Complete {
		return append([]string(nil), accessions...), nil
	}
	_, added := sourceSet(prior.Sources, accessions)
	return added, nil
}

// Merge builds the merged table from prior sources followed by accessions not
// merged before. When nothing is new and the prior table is complete, the
// existing table is returned without any write.
func (m *Merger) Merge(ctx context.Context, accessions []string) (Result, error) {
	prior, err := m.Prior(ctx)
	if err != nil {
		return Result{}, err
	}
	sources, added := sourceSet(prior.Sources, accessions)
	if len(sources) == 0 {
		return Result{}, &failure.MergeError{File: m.opts.MergedName, Cause: errors.New("no sources to merge")}
	}

	if prior.Complete && len(added) == 0 {
		return m.reuse(ctx, sources)
	}
	if !prior.Complete && len(prior.Sources) > 0 {
		m.logger.Warn("rebuilding merged table left incomplete by an earlier run",
			logging.String(logging.FieldArtifact, m.opts.MergedName),
			logging.Strings("sources", prior.Sources),
		)
	}

	tables := make([]*table.Table, 0, len(sources))
	headers := make([][]string, 0, len(sources))
	for _, accession := range sources {
		t, err := m.readSource(ctx, accession)
		if err != nil {
			return Result{}, err
		}
		tables = append(tables, t)
		headers = append(headers, t.Header)
	}

	merged := table.New(table.UnionHeader(headers...))
	for _, t := range tables {
		for _, row := range t.Rows {
			merged.Append(row)
		}
	}

	rec, err := m.store.Commit(ctx, m.opts.MergedName, artifacts.KindMerged, func(w io.Writer) (int, error) {
		return table.WriteTSV(w, merged)
	}, artifacts.WithSources(sources))
	if err != nil {
		return Result{}, &failure.MergeError{File: m.opts.MergedName, Cause: err}
	}
	m.logger.Info("merged table committed",
		logging.String(logging.FieldArtifact, rec.Name),
		logging.Int("rows", rec.Rows),
		logging.Int("columns", len(merged.Header)),
		logging.Strings("sources", sources),
	)

	if m.opts.ArchiveRaw {
		for _, accession := range sources {
			m.archive(ctx, accession)
		}
	}

	return Result{Table: merged, Record: rec, Sources: sources, Added: added}, nil
}

func (m *Merger) reuse(ctx context.Context, sources []string) (Result, error) {
	rc, rec, err := m.store.Open(ctx, m.opts.MergedName)
	if err != nil {
		return Result{}, err
	}
	defer rc.Close()
	t, err := table.ReadTSV(rc)
	if err != nil {
		return Result{}, &failure.MergeError{File: m.opts.MergedName, Cause: err}
	}
	m.logger.Info("merged table up to date",
		logging.String(logging.FieldArtifact, rec.Name),
		logging.Int("rows", t.Len()),
	)
	return Result{Table: t, Record: rec, Sources: sources, Reused: true}, nil
}

func (m *Merger) readSource(ctx context.Context, accession string) (*table.Table, error) {
	name := fetch.RawName(accession)
	rc, _, err := m.store.Open(ctx, name)
	switch {
	case errors.Is(err, artifacts.ErrNotFound):
		name = m.ArchiveName(accession)
		rc, err = m.openArchive(ctx, name)
	case errors.Is(err, artifacts.ErrInconsistent):
		// Archival interrupted between moving the raw file and forgetting it.
		if archived, archiveErr := m.openArchive(ctx, m.ArchiveName(accession)); archiveErr == nil {
			m.logger.Warn("raw table inconsistent; reading archived copy",
				logging.String(logging.FieldAccession, accession),
				logging.Error(err),
			)
			rc, err = archived, nil
		}
	}
	if err != nil {
		return nil, &failure.MergeError{File: name, Cause: err}
	}
	defer rc.Close()

	t, err := table.ReadTSV(rc)
	if err != nil {
		if errors.Is(err, table.ErrNoHeader) {
			return nil, &failure.MergeError{File: name, Cause: errors.New("file is empty")}
		}
		return nil, &failure.MergeError{File: name, Cause: err}
	}
	return t, nil
}

func sourceSet(prior, accessions []string) ([]string, []string) {
	seen := make(map[string]struct{}, len(prior)+len(accessions))
	sources := make([]string, 0, len(prior)+len(accessions))
	for _, accession := range prior {
		if _, ok := seen[accession]; ok {
			continue
		}
		seen[accession] = struct{}{}
		sources = append(sources, accession)
	}
	var added []string
	for _, accession := range accessions {
		if _, ok := seen[accession]; ok {
			continue
		}
		seen[accession] = struct{}{}
		sources = append(sources, accession)
		added = append(added, accession)
	}
	return sources, added
}
