package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/failure"
	"strainmanifest/internal/logging"
)

const defaultWorkers = 4

// Downloader retrieves the record table for one accession.
type Downloader interface {
	Download(ctx context.Context, accession string, w io.Writer) (int64, error)
}

// Options configures a Fetcher.
type Options struct {
	Workers      int
	AllowPartial bool
}

// Fetcher stores downloaded record tables as raw artifacts.
type Fetcher struct {
	client       Downloader
	store        artifacts.Store
	logger       *slog.Logger
	workers      int
	allowPartial bool
}

// Result summarizes a FetchAll call.
type Result struct {
	Fetched  []string
	Failed   []string
	Rows     int
	Warnings []failure.Warning
}

// RawName returns the artifact name of the raw table for accession.
func RawName(accession string) string {
	return accession + ".tsv"
}

// NewFetcher constructs a Fetcher.
func NewFetcher(client Downloader, store artifacts.Store, logger *slog.Logger, opts Options) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Fetcher{
		client:       client,
		store:        store,
		logger:       logger,
		workers:      workers,
		allowPartial: opts.AllowPartial,
	}
}

// Fetch downloads one accession and commits it as a raw artifact, replacing
// any previous copy.
func (f *Fetcher) Fetch(ctx context.Context, accession string) (artifacts.Record, error) {
	name := RawName(accession)
	f.logger.Debug("fetching accession", logging.String(logging.FieldAccession, accession))
	rec, err := f.store.Commit(ctx, name, artifacts.KindRaw, func(w io.Writer) (int, error) {
		counter := &lineCounter{w: w}
		if _, err := f.client.Download(ctx, accession, counter); err != nil {
			return 0, err
		}
		return counter.rows(), nil
	})
	if err != nil {
		return artifacts.Record{}, &failure.RetrievalError{Accession: accession, Cause: err}
	}
	f.logger.Info("accession fetched",
		logging.String(logging.FieldAccession, accession),
		logging.String(logging.FieldArtifact, rec.Name),
		logging.Int("rows", rec.Rows),
		logging.Int64("bytes", rec.Size),
	)
	return rec, nil
}

// FetchAll downloads accessions concurrently. Without AllowPartial the first
// failure cancels the remaining downloads and is returned. With AllowPartial
// failures become a warning, provided at least one accession succeeded.
func (f *Fetcher) FetchAll(ctx context.Context, accessions []string) (Result, error) {
	if len(accessions) == 0 {
		return Result{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	var mu sync.Mutex
	records := make([]*artifacts.Record, len(accessions))
	errs := make([]error, len(accessions))
	for i, accession := range accessions {
		g.Go(func() error {
			rec, err := f.Fetch(gctx, accession)
			if err != nil {
				if f.allowPartial && !errors.Is(err, context.Canceled) {
					mu.Lock()
					errs[i] = err
					mu.Unlock()
					logging.WarnWithContext(f.logger, "accession fetch failed; continuing", "fetch_failed",
						logging.String(logging.FieldAccession, accession),
						logging.String(logging.FieldErrorHint, "check the accession ID and portal availability"),
						logging.String(logging.FieldImpact, "records from this accession are missing from the merged table"),
						logging.Error(err),
					)
					return nil
				}
				return err
			}
			mu.Lock()
			records[i] = &rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var result Result
	var firstErr error
	for i, accession := range accessions {
		if records[i] != nil {
			result.Fetched = append(result.Fetched, accession)
			result.Rows += records[i].Rows
			continue
		}
		result.Failed = append(result.Failed, accession)
		if firstErr == nil {
			firstErr = errs[i]
		}
	}
	if len(result.Fetched) == 0 {
		return result, firstErr
	}
	if len(result.Failed) > 0 {
		result.Warnings = append(result.Warnings, failure.Warning{
			Kind:    failure.WarningFetch,
			Count:   len(result.Failed),
			Message: fmt.Sprintf("accessions not retrieved: %s", strings.Join(result.Failed, ", ")),
		})
	}
	return result, nil
}

// lineCounter counts newline-terminated lines passing through to w.
type lineCounter struct {
	w       io.Writer
	lines   int
	written int64
	last    byte
}

func (c *lineCounter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	for _, b := range p[:n] {
		if b == '\n' {
			c.lines++
		}
	}
	if n > 0 {
		c.written += int64(n)
		c.last = p[n-1]
	}
	return n, err
}

// rows returns the number of data lines, excluding the header.
func (c *lineCounter) rows() int {
	lines := c.lines
	if c.written > 0 && c.last != '\n' {
		lines++
	}
	if lines <= 1 {
		return 0
	}
	return lines - 1
}
