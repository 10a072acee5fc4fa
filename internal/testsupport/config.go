package testsupport

import (
	"path/filepath"
	"testing"

	"strainmanifest/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a normalized config whose results directory lives in a
// per-test temp directory. Environment overrides are cleared so the host
// environment cannot leak into tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	t.Setenv("ENA_PORTAL_URL", "")
	t.Setenv("STRAINMANIFEST_RESULTS_DIR", "")

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Pipeline.ResultsDir = filepath.Join(base, "results", "table")
	cfgVal.Pipeline.MinFreeMiB = 0
	cfgVal.Pipeline.TaxID = 4932
	cfgVal.Fetch.BaseURL = "http://127.0.0.1:0/filereport"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Normalize(); err != nil {
		t.Fatalf("normalize test config: %v", err)
	}
	return builder.cfg
}

// WithAccessions sets the accessions to fetch.
func WithAccessions(accessions ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Accessions = accessions
	}
}

// WithTaxID sets the target taxon.
func WithTaxID(taxID any) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.TaxID = taxID
	}
}

// WithPortalURL points the fetch client at url, usually an httptest server.
func WithPortalURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fetch.BaseURL = url
	}
}

// WithAllowPartial enables partial fetch results.
func WithAllowPartial() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fetch.AllowPartial = true
	}
}

// WithResultsDir overrides the results directory.
func WithResultsDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.ResultsDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Pipeline.ResultsDir))
}
