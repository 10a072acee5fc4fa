package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"strainmanifest/internal/failure"
	"strainmanifest/internal/fileutil"
)

// LedgerFile is the name of the SQLite ledger inside the store root.
const LedgerFile = ".strainmanifest.db"

const reservedPrefix = ".strainmanifest"

// Local is a Store backed by a directory and a SQLite ledger.
type Local struct {
	root string
	db   *sql.DB

	mu    sync.RWMutex
	runID string
}

var _ Store = (*Local)(nil)

// OpenLocal initializes or connects to the store rooted at dir.
func OpenLocal(dir string) (*Local, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}

	dbPath := filepath.Join(root, LedgerFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = FULL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Local{root: root, db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Local) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Root returns the absolute store directory.
func (s *Local) Root() string {
	return s.root
}

// Path returns the filesystem location of name. The name is not validated.
func (s *Local) Path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Stat returns the ledger record for name. A complete record whose file is
// gone, or a file without a record, is reported as ErrInconsistent.
func (s *Local) Stat(ctx context.Context, name string) (Record, error) {
	name, err := cleanName(name)
	if err != nil {
		return Record{}, err
	}
	rec, found, err := s.lookup(ctx, name)
	if err != nil {
		return Record{}, err
	}
	fileExists, err := exists(s.Path(name))
	if err != nil {
		return Record{}, err
	}

	switch {
	case !found && !fileExists:
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	case !found:
		return Record{}, fmt.Errorf("%w: %s exists without a ledger entry", ErrInconsistent, name)
	case rec.Complete() && !fileExists:
		return rec, fmt.Errorf("%w: %s is recorded complete but missing", ErrInconsistent, name)
	}
	return rec, nil
}

// Open returns a reader over a complete artifact after verifying its checksum.
func (s *Local) Open(ctx context.Context, name string) (io.ReadCloser, Record, error) {
	rec, err := s.Stat(ctx, name)
	if err != nil {
		return nil, rec, err
	}
	if !rec.Complete() {
		return nil, rec, fmt.Errorf("%w: %s", ErrIncomplete, rec.Name)
	}

	f, err := os.Open(s.Path(rec.Name))
	if err != nil {
		return nil, rec, fmt.Errorf("open %s: %w", rec.Name, err)
	}
	sum, size, err := fileutil.HashReader(f)
	if err != nil {
		_ = f.Close()
		return nil, rec, fmt.Errorf("verify %s: %w", rec.Name, err)
	}
	if sum != rec.Checksum || size != rec.Size {
		_ = f.Close()
		return nil, rec, fmt.Errorf("%w: %s checksum mismatch", ErrInconsistent, rec.Name)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, rec, fmt.Errorf("rewind %s: %w", rec.Name, err)
	}
	return f, rec, nil
}

// OpenUnverified opens the file for name without consulting the ledger.
func (s *Local) OpenUnverified(_ context.Context, name string) (io.ReadCloser, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Commit writes an artifact atomically and records it in the ledger. When
// write fails the previous artifact, if any, is left untouched.
func (s *Local) Commit(ctx context.Context, name string, kind Kind, write WriteFunc, opts ...CommitOption) (Record, error) {
	ctx = ensureContext(ctx)
	name, err := cleanName(name)
	if err != nil {
		return Record{}, err
	}
	if write == nil {
		return Record{}, fmt.Errorf("commit %s: nil write func", name)
	}
	var options commitOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	target := s.Path(name)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Record{}, fmt.Errorf("create directory for %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return Record{}, fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	hw := fileutil.NewHashingWriter(tmp)
	rows, err := write(hw)
	if err != nil {
		return Record{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		return Record{}, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return Record{}, fmt.Errorf("close %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	prev, hadPrev, err := s.lookup(ctx, name)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Name:      name,
		Kind:      kind,
		Status:    StatusPartial,
		Checksum:  hw.Sum(),
		Rows:      rows,
		Size:      hw.Size(),
		RunID:     s.currentRun(),
		Sources:   options.sources,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.upsert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("record %s partial: %w", name, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		s.restore(ctx, name, prev, hadPrev)
		return Record{}, fmt.Errorf("rename %s into place: %w", name, err)
	}
	renamed = true
	_ = fileutil.SyncDir(dir)

	rec.Status = StatusComplete
	rec.UpdatedAt = time.Now().UTC()
	if err := s.upsert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("record %s complete: %w", name, err)
	}
	return rec, nil
}

// Remove forgets the artifact's ledger entry and then deletes its file, so an
// interrupted removal never leaves a complete record without a file. Removing
// an absent artifact is not an error.
func (s *Local) Remove(ctx context.Context, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := s.execWithoutResultRetry(ctx, "DELETE FROM artifacts WHERE name = ?", name); err != nil {
		return fmt.Errorf("forget %s: %w", name, err)
	}
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (s *Local) restore(ctx context.Context, name string, prev Record, hadPrev bool) {
	if hadPrev {
		_ = s.upsert(ctx, prev)
		return
	}
	_ = s.execWithoutResultRetry(ctx, "DELETE FROM artifacts WHERE name = ?", name)
}

func (s *Local) setRun(id string) {
	s.mu.Lock()
	s.runID = id
	s.mu.Unlock()
}

func (s *Local) currentRun() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

func cleanName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", failure.Wrap(failure.ErrValidation, "artifacts", "name", "artifact name is empty", nil)
	}
	if strings.Contains(trimmed, "\\") {
		return "", failure.Wrap(failure.ErrValidation, "artifacts", "name", fmt.Sprintf("artifact name %q contains a backslash", name), nil)
	}
	cleaned := path.Clean(trimmed)
	if path.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", failure.Wrap(failure.ErrValidation, "artifacts", "name", fmt.Sprintf("artifact name %q escapes the store", name), nil)
	}
	if strings.HasPrefix(path.Base(cleaned), reservedPrefix) {
		return "", failure.Wrap(failure.ErrValidation, "artifacts", "name", fmt.Sprintf("artifact name %q is reserved", name), nil)
	}
	return cleaned, nil
}

func exists(p string) (bool, error) {
	info, err := os.Stat(p)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", p, err)
}
