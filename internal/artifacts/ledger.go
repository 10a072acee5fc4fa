package artifacts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const recordColumns = "name, kind, status, checksum, row_count, size_bytes, run_id, sources_json, updated_at"

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Local) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *Local) lookup(ctx context.Context, name string) (Record, bool, error) {
	ctx = ensureContext(ctx)
	var (
		rec Record
		err error
	)
	retryErr := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM artifacts WHERE name = ?", name)
		rec, err = scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	})
	if retryErr != nil {
		return Record{}, false, fmt.Errorf("lookup %s: %w", name, retryErr)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Local) upsert(ctx context.Context, rec Record) error {
	var sources any
	if len(rec.Sources) > 0 {
		encoded, err := json.Marshal(rec.Sources)
		if err != nil {
			return fmt.Errorf("encode sources: %w", err)
		}
		sources = string(encoded)
	}
	return s.execWithoutResultRetry(ctx, `
INSERT INTO artifacts (`+recordColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    kind = excluded.kind,
    status = excluded.status,
    checksum = excluded.checksum,
    row_count = excluded.row_count,
    size_bytes = excluded.size_bytes,
    run_id = excluded.run_id,
    sources_json = excluded.sources_json,
    updated_at = excluded.updated_at`,
		rec.Name,
		string(rec.Kind),
		string(rec.Status),
		nullableString(rec.Checksum),
		rec.Rows,
		rec.Size,
		nullableString(rec.RunID),
		sources,
		formatTime(rec.UpdatedAt),
	)
}

// List returns ledger records of the given kind ordered by name. An empty
// kind lists every record.
func (s *Local) List(ctx context.Context, kind Kind) ([]Record, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + recordColumns + " FROM artifacts"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY name"

	var records []Record
	err := retryOnBusy(ctx, func() error {
		records = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return records, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		name       string
		kind       string
		status     string
		checksum   sql.NullString
		rows       int
		size       int64
		runID      sql.NullString
		sources    sql.NullString
		updatedRaw string
	)
	if err := scanner.Scan(&name, &kind, &status, &checksum, &rows, &size, &runID, &sources, &updatedRaw); err != nil {
		return Record{}, err
	}
	rec := Record{
		Name:     name,
		Kind:     Kind(kind),
		Status:   Status(status),
		Checksum: checksum.String,
		Rows:     rows,
		Size:     size,
		RunID:    runID.String,
	}
	if sources.Valid && sources.String != "" {
		if err := json.Unmarshal([]byte(sources.String), &rec.Sources); err != nil {
			return Record{}, fmt.Errorf("decode sources for %s: %w", name, err)
		}
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
