package resultsdir

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"strainmanifest/internal/logging"
)

func TestAcquireIsExclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := Acquire(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	second, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	_ = second.Release()
}

func TestResetInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := Reset(context.Background(), dir, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestResetRemovesFilesAndOwnedDirectories(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()

	mustWrite := func(rel string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("merged_table.tsv.ok")
	mustWrite("ENA_strain_list.json")
	mustWrite("strains/S1.csv")
	mustWrite("archive/PRJ1.tsv.gz")
	mustWrite("notes/keep.txt")

	result := Reset(context.Background(), dir, []string{"strains", "archive"}, nil)
	if err := result.Err(); err != nil {
		t.Fatalf("Reset reported error: %v", err)
	}
	if len(result.Removed) != 4 {
		t.Fatalf("expected 4 removed entries, got %v", result.Removed)
	}

	for _, gone := range []string{"merged_table.tsv.ok", "ENA_strain_list.json", "strains", "archive"} {
		if _, err := os.Stat(filepath.Join(dir, gone)); !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", gone)
		}
	}
	for _, kept := range []string{LockFile, "notes/keep.txt"} {
		if _, err := os.Stat(filepath.Join(dir, kept)); err != nil {
			t.Errorf("%s should still exist: %v", kept, err)
		}
	}
}
