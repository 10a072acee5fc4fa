package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/config"
	"strainmanifest/internal/failure"
	"strainmanifest/internal/fetch"
	"strainmanifest/internal/filter"
	"strainmanifest/internal/logging"
	"strainmanifest/internal/merge"
	"strainmanifest/internal/partition"
	"strainmanifest/internal/preflight"
	"strainmanifest/internal/registry"
	"strainmanifest/internal/resultsdir"
	"strainmanifest/internal/stageexec"
	"strainmanifest/internal/table"
)

// Stage names used in logs and errors.
const (
	StageFetch     = "fetch"
	StageMerge     = "merge"
	StageFilter    = "filter"
	StagePartition = "partition"
	StageRegistry  = "registry"
)

// Options controls a single run.
type Options struct {
	// Reset clears the results directory before the run.
	Reset bool
}

// Runner executes manifest builds for one configuration.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	downloader fetch.Downloader
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithDownloader replaces the portal client, typically in tests.
func WithDownloader(d fetch.Downloader) RunnerOption {
	return func(r *Runner) { r.downloader = d }
}

// NewRunner constructs a Runner. Unless overridden, the portal client is built
// from cfg.Fetch.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...RunnerOption) (*Runner, error) {
	if cfg == nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "pipeline", "init", "config is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{cfg: cfg, logger: logging.NewComponentLogger(logger, "pipeline")}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.downloader == nil {
		client, err := fetch.New(
			fetch.WithBaseURL(cfg.Fetch.BaseURL),
			fetch.WithResult(cfg.Fetch.Result),
			fetch.WithFields(cfg.Fetch.Fields...),
			fetch.WithTimeout(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second),
		)
		if err != nil {
			return nil, failure.Wrap(failure.ErrConfiguration, "pipeline", "init", "build portal client", err)
		}
		r.downloader = client
	}
	return r, nil
}

// Run executes one manifest build. The returned report is non-nil whenever
// the run reached the ledger, including failed runs.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	started := time.Now()
	cfg := r.cfg
	if err := cfg.ValidateRun(); err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "pipeline", "validate", "", err)
	}
	dir := cfg.Pipeline.ResultsDir

	lock, err := resultsdir.Acquire(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			r.logger.Warn("failed to release results directory lock", logging.Error(err))
		}
	}()

	if opts.Reset || cfg.Pipeline.Reset {
		result := resultsdir.Reset(ctx, dir, []string{cfg.Partition.Dir, cfg.Merge.ArchiveDir}, r.logger)
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("reset results directory: %w", err)
		}
		r.logger.Info("results directory reset",
			logging.String("results_dir", dir),
			logging.Int("removed", len(result.Removed)),
		)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "pipeline", "directories", "", err)
	}
	if err := preflight.Err(preflight.RunAll(ctx, cfg)); err != nil {
		return nil, err
	}

	store, err := artifacts.OpenLocal(dir)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	defer store.Close()

	run, err := store.BeginRun(ctx, cfg.Pipeline.Accessions)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run started",
		logging.String("results_dir", dir),
		logging.Strings("accessions", cfg.Pipeline.Accessions),
		logging.String("taxon", cfg.Pipeline.Taxon.String()),
	)

	report := &Report{RunID: run.ID, ResultsDir: dir}
	runErr := r.execute(ctx, store, logger, report)
	report.Duration = time.Since(started)

	if err := store.FinishRun(context.WithoutCancel(ctx), run.ID, runErr); err != nil {
		logger.Warn("failed to record run outcome", logging.Error(err))
	}
	if runErr != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.String("error_kind", failure.Kind(runErr)),
			logging.String(logging.FieldImpact, "registry left unchanged"),
			logging.Error(runErr),
		)
		return report, runErr
	}

	for _, w := range report.Warnings {
		logging.WarnWithContext(logger, "run completed with warnings", "run_warning",
			logging.String("warning_kind", string(w.Kind)),
			logging.Int("count", w.Count),
			logging.String("detail", w.Message),
		)
	}
	logger.Info("run completed",
		logging.Int("strains", len(report.Strains)),
		logging.Int("registry_size", len(report.Registry)),
		logging.Strings("registry_added", report.RegistryAdded),
		logging.Duration("elapsed", report.Duration),
	)
	return report, nil
}

func (r *Runner) execute(ctx context.Context, store *artifacts.Local, logger *slog.Logger, report *Report) error {
	cfg := r.cfg

	reg := registry.New(store, logger, cfg.Artifacts.Registry)
	snapshot, err := reg.Load(ctx)
	if err != nil {
		return err
	}

	mergeOpts := merge.Options{
		MergedName: cfg.Artifacts.MergedTable,
		ArchiveRaw: cfg.Merge.ArchiveRaw,
		ArchiveDir: cfg.Merge.ArchiveDir,
	}

	var fetched []string
	if err := r.stage(ctx, logger, StageFetch, func(ctx context.Context, logger *slog.Logger) error {
		pending, err := merge.NewMerger(store, logger, mergeOpts).Pending(ctx, cfg.Pipeline.Accessions)
		if err != nil {
			return err
		}
		report.Skipped = difference(cfg.Pipeline.Accessions, pending)
		if len(report.Skipped) > 0 {
			logger.Info("accessions already merged; skipping download", logging.Strings("accessions", report.Skipped))
		}
		fetcher := fetch.NewFetcher(r.downloader, store, logger, fetch.Options{
			Workers:      cfg.Fetch.Workers,
			AllowPartial: cfg.Fetch.AllowPartial,
		})
		result, err := fetcher.FetchAll(ctx, pending)
		if err != nil {
			return err
		}
		fetched = result.Fetched
		report.Fetched = result.Fetched
		report.FetchFailed = result.Failed
		report.FetchedRows = result.Rows
		report.addWarnings(result.Warnings)
		return nil
	}); err != nil {
		return err
	}

	var merged *table.Table
	if err := r.stage(ctx, logger, StageMerge, func(ctx context.Context, logger *slog.Logger) error {
		result, err := merge.NewMerger(store, logger, mergeOpts).Merge(ctx, fetched)
		if err != nil {
			return err
		}
		merged = result.Table
		report.MergedRows = result.Table.Len()
		report.MergedColumns = len(result.Table.Header)
		report.MergedSources = result.Sources
		report.MergeReused = result.Reused
		return nil
	}); err != nil {
		return err
	}

	var filtered *table.Table
	if err := r.stage(ctx, logger, StageFilter, func(ctx context.Context, logger *slog.Logger) error {
		f := filter.New(store, logger, filter.Options{
			OutputName:  cfg.Artifacts.FilteredTable,
			TaxonColumn: cfg.Filter.TaxonColumn,
			Taxon:       cfg.Pipeline.Taxon,
		})
		result, err := f.Apply(ctx, merged)
		if err != nil {
			return err
		}
		filtered = result.Table
		report.FilterInput = result.Input
		report.FilterKept = result.Kept
		report.FilterNonMatching = result.NonMatching
		report.FilterMalformed = result.Malformed
		report.FilterDuplicates = result.Duplicates
		report.addWarnings(result.Warnings)
		return nil
	}); err != nil {
		return err
	}

	var strainIDs []string
	if err := r.stage(ctx, logger, StagePartition, func(ctx context.Context, logger *slog.Logger) error {
		p := partition.New(store, logger, partition.Options{
			Dir:          cfg.Partition.Dir,
			StrainColumn: cfg.Partition.StrainColumn,
		})
		result, err := p.Split(ctx, filtered)
		if err != nil {
			return err
		}
		strainIDs = result.IDs()
		report.Strains = result.Strains
		report.RemovedStrains = result.Removed
		report.addWarnings(result.Warnings)
		return nil
	}); err != nil {
		return err
	}

	return r.stage(ctx, logger, StageRegistry, func(ctx context.Context, logger *slog.Logger) error {
		result, err := registry.New(store, logger, cfg.Artifacts.Registry).Update(ctx, snapshot, strainIDs)
		if err != nil {
			return err
		}
		report.Registry = result.IDs
		report.RegistryAdded = result.Added
		report.RegistryWritten = result.Written
		return nil
	})
}

func (r *Runner) stage(ctx context.Context, logger *slog.Logger, name string, fn stageexec.Func) error {
	return stageexec.Run(ctx, stageexec.Options{
		Logger:    logger,
		StageName: name,
		Run:       fn,
	})
}

// difference returns the items of all not present in subset, in order.
func difference(all, subset []string) []string {
	in := make(map[string]struct{}, len(subset))
	for _, s := range subset {
		in[s] = struct{}{}
	}
	var out []string
	for _, s := range all {
		if _, ok := in[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
