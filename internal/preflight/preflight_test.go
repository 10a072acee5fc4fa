package preflight

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"strainmanifest/internal/config"
	"strainmanifest/internal/failure"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 0); !result.Passed {
		t.Fatalf("expected pass with zero requirement, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, math.MaxUint64/(1<<21)); result.Passed {
		t.Fatal("expected failure for an impossible requirement")
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "nope"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckPortal_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	result := CheckPortal(context.Background(), srv.URL)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckPortal_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckPortal(context.Background(), srv.URL)
	if result.Passed {
		t.Fatal("expected failure for 503")
	}
}

func TestCheckPortal_MissingURL(t *testing.T) {
	result := CheckPortal(context.Background(), "  ")
	if result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAllAndErr(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.ResultsDir = t.TempDir()
	cfg.Pipeline.MinFreeMiB = 0

	results := RunAll(context.Background(), &cfg)
	if len(results) != 1 || !results[0].Passed {
		t.Fatalf("unexpected results: %+v", results)
	}
	if err := Err(results); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	cfg.Pipeline.ResultsDir = filepath.Join(cfg.Pipeline.ResultsDir, "missing")
	err := Err(RunAll(context.Background(), &cfg))
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Results directory") {
		t.Fatalf("error should name the failed check: %v", err)
	}
}
