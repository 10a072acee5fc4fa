package artifacts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"strainmanifest/internal/failure"
)

// RunStatus is the outcome recorded for a pipeline run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunSucceeded   RunStatus = "succeeded"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// Run is a ledger entry describing one pipeline invocation.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       RunStatus
	Accessions   []string
	ErrorKind    string
	ErrorMessage string
}

// BeginRun records a new run and tags subsequent commits with its ID. Runs
// still marked running from an earlier process are marked interrupted.
func (s *Local) BeginRun(ctx context.Context, accessions []string) (Run, error) {
	ctx = ensureContext(ctx)
	if err := s.execWithoutResultRetry(ctx,
		"UPDATE runs SET status = ?, finished_at = ? WHERE status = ?",
		string(RunInterrupted), formatTime(time.Now()), string(RunRunning),
	); err != nil {
		return Run{}, fmt.Errorf("mark interrupted runs: %w", err)
	}

	run := Run{
		ID:         uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		Status:     RunRunning,
		Accessions: append([]string(nil), accessions...),
	}
	encoded, err := json.Marshal(run.Accessions)
	if err != nil {
		return Run{}, fmt.Errorf("encode accessions: %w", err)
	}
	if err := s.execWithoutResultRetry(ctx,
		"INSERT INTO runs (id, started_at, status, accessions_json) VALUES (?, ?, ?, ?)",
		run.ID, formatTime(run.StartedAt), string(run.Status), string(encoded),
	); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	s.setRun(run.ID)
	return run, nil
}

// FinishRun records the outcome of run id. A nil runErr marks it succeeded.
func (s *Local) FinishRun(ctx context.Context, id string, runErr error) error {
	status := RunSucceeded
	var kind, message any
	if runErr != nil {
		status = RunFailed
		kind = failure.Kind(runErr)
		message = runErr.Error()
	}
	if err := s.execWithoutResultRetry(ensureContext(ctx),
		"UPDATE runs SET status = ?, finished_at = ?, error_kind = ?, error_message = ? WHERE id = ?",
		string(status), formatTime(time.Now()), kind, message, id,
	); err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	s.setRun("")
	return nil
}

// Runs returns up to limit runs, most recent first. A limit <= 0 returns all.
func (s *Local) Runs(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := "SELECT id, started_at, finished_at, status, accessions_json, error_kind, error_message FROM runs ORDER BY started_at DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var runs []Run
	err := retryOnBusy(ctx, func() error {
		runs = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				run         Run
				startedRaw  string
				finishedRaw sql.NullString
				status      string
				accessions  sql.NullString
				errorKind   sql.NullString
				errorMsg    sql.NullString
			)
			if err := rows.Scan(&run.ID, &startedRaw, &finishedRaw, &status, &accessions, &errorKind, &errorMsg); err != nil {
				return err
			}
			run.Status = RunStatus(status)
			run.ErrorKind = errorKind.String
			run.ErrorMessage = errorMsg.String
			if started, err := parseTimeString(startedRaw); err == nil {
				run.StartedAt = started
			}
			if finishedRaw.Valid {
				if finished, err := parseTimeString(finishedRaw.String); err == nil {
					run.FinishedAt = &finished
				}
			}
			if accessions.Valid && accessions.String != "" {
				if err := json.Unmarshal([]byte(accessions.String), &run.Accessions); err != nil {
					return fmt.Errorf("decode accessions for run %s: %w", run.ID, err)
				}
			}
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
