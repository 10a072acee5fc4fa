package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"strainmanifest/internal/failure"
	"strainmanifest/internal/resultsdir"
	"strainmanifest/internal/testsupport"
)

func TestRunCommandBuildsManifest(t *testing.T) {
	env := setupCLITestEnv(t, "PRJEB1", "PRJEB2")

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "3 of 5 kept")
	requireContains(t, out, "added S1, S2")
	requireContains(t, out, "strains/S1.csv")

	out, _, err = runCLI(t, []string{"registry"}, env.configPath)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if out != "S1\nS2\n" {
		t.Fatalf("registry output = %q", out)
	}

	out, _, err = runCLI(t, []string{"registry", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("registry --json: %v", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(out), &ids); err != nil {
		t.Fatalf("decode registry json: %v", err)
	}
	if diff := cmp.Diff([]string{"S1", "S2"}, ids); diff != "" {
		t.Fatalf("registry mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCommandJSONSummary(t *testing.T) {
	env := setupCLITestEnv(t, "PRJEB1", "PRJEB2")

	out, _, err := runCLI(t, []string{"run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run --json: %v", err)
	}
	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Merged.Rows != 5 || summary.Filter.Kept != 3 || summary.Filter.Duplicates != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	want := []strainRow{
		{ID: "S1", File: "strains/S1.csv", Rows: 2},
		{ID: "S2", File: "strains/S2.csv", Rows: 1},
	}
	if diff := cmp.Diff(want, summary.Strains); diff != "" {
		t.Fatalf("strains mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCommandFlagOverrides(t *testing.T) {
	env := setupCLITestEnv(t, "PRJEB2")
	otherDir := filepath.Join(env.baseDir, "elsewhere")

	_, _, err := runCLI(t, []string{
		"run",
		"--accession", "prjeb1",
		"--tax-id", "562",
		"--results-dir", otherDir,
	}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	ids, err := readRegistry(filepath.Join(otherDir, "ENA_strain_list.json"))
	if err != nil {
		t.Fatalf("readRegistry: %v", err)
	}
	if diff := cmp.Diff([]string{"S9"}, ids); diff != "" {
		t.Fatalf("registry mismatch (-want +got):\n%s", diff)
	}
	if n := env.portal.Requests("PRJEB2"); n != 0 {
		t.Fatalf("configured accession fetched %d times despite --accession override", n)
	}
	if testsupport.FileExists(t, filepath.Join(env.resultsDir, "ENA_strain_list.json")) {
		t.Fatal("configured results directory should be untouched")
	}
}

func TestRunCommandRequiresAccessions(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if code := exitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestRunCommandReportsLockedResultsDir(t *testing.T) {
	env := setupCLITestEnv(t, "PRJEB1")
	lock, err := resultsdir.Acquire(env.resultsDir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, resultsdir.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if code := exitCode(err); code != 6 {
		t.Fatalf("exit code = %d, want 6", code)
	}
}

func TestRegistryCommandRejectsCorruptFile(t *testing.T) {
	env := setupCLITestEnv(t, "PRJEB1")
	testsupport.WriteFile(t, filepath.Join(env.resultsDir, "ENA_strain_list.json"), `{"S1": true}`)

	_, _, err := runCLI(t, []string{"registry"}, env.configPath)
	var corrupt *failure.RegistryCorruptionError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected RegistryCorruptionError, got %v", err)
	}
	if code := exitCode(err); code != 5 {
		t.Fatalf("exit code = %d, want 5", code)
	}
}

func TestRegistryCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t, "PRJEB1")

	out, _, err := runCLI(t, []string{"registry"}, env.configPath)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	requireContains(t, out, "Registry is empty")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t, "PRJEB1")

	out, _, err := runCLI(t, []string{"status", "--offline"}, env.configPath)
	if err != nil {
		t.Fatalf("status before run: %v", err)
	}
	requireContains(t, out, "No runs recorded")
	requireContains(t, out, "Not created yet")

	if _, _, err := runCLI(t, []string{"run"}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status after run: %v", err)
	}
	requireContains(t, out, "PRJEB1")
	requireContains(t, out, "succeeded")
	requireContains(t, out, "merged_table.tsv.ok")
	requireContains(t, out, "ENA portal")
}

func TestExitCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), 1},
		{&failure.RetrievalError{Accession: "PRJEB1"}, 3},
		{&failure.MergeError{File: "PRJEB1.tsv"}, 4},
		{&failure.RegistryCorruptionError{Path: "registry.json"}, 5},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
