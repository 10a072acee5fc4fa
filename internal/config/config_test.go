package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"strainmanifest/internal/config"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if resolved != filepath.Join(tempHome, ".config", "strainmanifest", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if !filepath.IsAbs(cfg.Pipeline.ResultsDir) || !strings.HasSuffix(cfg.Pipeline.ResultsDir, filepath.Join("results", "table")) {
		t.Fatalf("unexpected results dir: %q", cfg.Pipeline.ResultsDir)
	}
	if cfg.Fetch.Workers != config.Default().Fetch.Workers {
		t.Fatalf("unexpected workers: %d", cfg.Fetch.Workers)
	}
	if cfg.Artifacts.MergedTable != "merged_table.tsv.ok" {
		t.Fatalf("unexpected merged table name: %q", cfg.Artifacts.MergedTable)
	}
	if err := cfg.ValidateRun(); err == nil {
		t.Fatal("expected ValidateRun to require accessions")
	}
}

func TestLoadTOMLNormalizesAccessionsAndTaxon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strainmanifest.toml")
	content := `
[pipeline]
accessions = [" prjeb1 ", "PRJEB2", "PRJEB1", ""]
tax_id = 4932
results_dir = "` + filepath.Join(dir, "out") + `"

[fetch]
workers = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if diff := cmp.Diff([]string{"PRJEB1", "PRJEB2"}, cfg.Pipeline.Accessions); diff != "" {
		t.Fatalf("accessions mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Pipeline.Taxon.Numeric || cfg.Pipeline.Taxon.ID != 4932 || cfg.Pipeline.Taxon.String() != "4932" {
		t.Fatalf("unexpected taxon: %+v", cfg.Pipeline.Taxon)
	}
	if cfg.Fetch.Workers != 2 {
		t.Fatalf("expected workers override, got %d", cfg.Fetch.Workers)
	}
	if err := cfg.ValidateRun(); err != nil {
		t.Fatalf("ValidateRun: %v", err)
	}
}

func TestLoadLegacyYAMLKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "ENA_ID_get_gvcf:\n  - PRJEB13017\n  - PRJNA382864\ntax_id: 4932\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"PRJEB13017", "PRJNA382864"}, cfg.Pipeline.Accessions); diff != "" {
		t.Fatalf("accessions mismatch (-want +got):\n%s", diff)
	}
	if cfg.Pipeline.Taxon.ID != 4932 {
		t.Fatalf("unexpected taxon: %+v", cfg.Pipeline.Taxon)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENA_PORTAL_URL", "http://127.0.0.1:9999/filereport/")
	t.Setenv("STRAINMANIFEST_RESULTS_DIR", filepath.Join(dir, "env-results"))

	cfg, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Fetch.BaseURL != "http://127.0.0.1:9999/filereport" {
		t.Fatalf("unexpected base url: %q", cfg.Fetch.BaseURL)
	}
	if cfg.Pipeline.ResultsDir != filepath.Join(dir, "env-results") {
		t.Fatalf("unexpected results dir: %q", cfg.Pipeline.ResultsDir)
	}
}

func TestParseTaxon(t *testing.T) {
	cases := []struct {
		name    string
		raw     any
		want    config.Taxon
		wantErr bool
	}{
		{"nil", nil, config.Taxon{}, false},
		{"int64", int64(4932), config.Taxon{Value: "4932", Numeric: true, ID: 4932}, false},
		{"int", 9606, config.Taxon{Value: "9606", Numeric: true, ID: 9606}, false},
		{"numeric string", " 4932 ", config.Taxon{Value: "4932", Numeric: true, ID: 4932}, false},
		{"label", "S.cerevisiae", config.Taxon{Value: "S.cerevisiae"}, false},
		{"integral float", float64(4932), config.Taxon{Value: "4932", Numeric: true, ID: 4932}, false},
		{"fractional float", 4932.5, config.Taxon{}, true},
		{"bool", true, config.Taxon{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := config.ParseTaxon(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %v", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTaxon: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestValidateRejectsMissingColumnsInFields(t *testing.T) {
	cfg := config.Default()
	cfg.Fetch.Fields = []string{"run_accession", "tax_id"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "strain") {
		t.Fatalf("expected strain column error, got %v", err)
	}
}

func TestValidateRejectsArtifactPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Artifacts.Registry = "../escape.json"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for artifact name with path components")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if len(cfg.Pipeline.Accessions) != 1 || cfg.Pipeline.Taxon.ID != 4932 {
		t.Fatalf("unexpected sample values: %+v", cfg.Pipeline)
	}
}
