package merge

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/pgzip"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/fetch"
	"strainmanifest/internal/logging"
)

// archive compresses the raw table of accession into the archive directory
// and removes the raw file. Failures are logged; the raw file then stays in
// place and later merges read it directly.
func (m *Merger) archive(ctx context.Context, accession string) {
	rawName := fetch.RawName(accession)
	rc, rawRec, err := m.store.Open(ctx, rawName)
	if errors.Is(err, artifacts.ErrNotFound) {
		return
	}
	if errors.Is(err, artifacts.ErrInconsistent) {
		if _, statErr := m.store.Stat(ctx, m.ArchiveName(accession)); statErr == nil {
			err = m.store.Remove(ctx, rawName)
			if err == nil {
				return
			}
		}
	}
	if err != nil {
		m.logArchiveFailure(accession, err)
		return
	}
	defer rc.Close()

	archiveName := m.ArchiveName(accession)
	if _, err := m.store.Commit(ctx, archiveName, artifacts.KindArchive, func(w io.Writer) (int, error) {
		gz := pgzip.NewWriter(w)
		if _, err := io.Copy(gz, rc); err != nil {
			_ = gz.Close()
			return 0, err
		}
		if err := gz.Close(); err != nil {
			return 0, err
		}
		return rawRec.Rows, nil
	}); err != nil {
		m.logArchiveFailure(accession, err)
		return
	}
	if err := m.store.Remove(ctx, rawName); err != nil {
		m.logArchiveFailure(accession, err)
		return
	}
	m.logger.Debug("raw table archived",
		logging.String(logging.FieldAccession, accession),
		logging.String(logging.FieldArtifact, archiveName),
	)
}

func (m *Merger) openArchive(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, _, err := m.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	gz, err := pgzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	return &archiveReader{Reader: gz, gz: gz, file: rc}, nil
}

func (m *Merger) logArchiveFailure(accession string, err error) {
	logging.WarnWithContext(m.logger, "raw table archival failed", "archive_failed",
		logging.String(logging.FieldAccession, accession),
		logging.String(logging.FieldErrorHint, "check free space and permissions in the results directory"),
		logging.String(logging.FieldImpact, "raw file kept in place"),
		logging.Error(err),
	)
}

type archiveReader struct {
	io.Reader
	gz   *pgzip.Reader
	file io.Closer
}

func (a *archiveReader) Close() error {
	gzErr := a.gz.Close()
	fileErr := a.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}
