package artifacts

import (
	"context"
	_ "embed"
	"fmt"

	"strainmanifest/internal/failure"
)

//go:embed schema.sql
var schemaSQL string

// ledgerVersion is stored in SQLite's user_version. A ledger written by a
// different version is rejected; `run --reset` discards it.
const ledgerVersion = 1

// ErrLedgerVersion indicates a ledger created by an incompatible version.
var ErrLedgerVersion = fmt.Errorf("%w: ledger version mismatch", failure.ErrInconsistentState)

func (s *Local) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read ledger version: %w", err)
	}
	switch version {
	case ledgerVersion:
		return nil
	case 0:
		return s.createSchema(ctx)
	default:
		return fmt.Errorf("%w: %s has version %d, expected %d (run 'strainmanifest run --reset')",
			ErrLedgerVersion, LedgerFile, version, ledgerVersion)
	}
}

func (s *Local) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", ledgerVersion)); err != nil {
		return fmt.Errorf("record ledger version: %w", err)
	}
	return tx.Commit()
}
