package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is structurally usable. Accessions and the
// taxon may still be empty here because the CLI can supply them as flags;
// ValidateRun checks them right before a pipeline run.
func (c *Config) Validate() error {
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	return nil
}

// ValidateRun ensures the inputs required to build manifests are present.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Pipeline.Accessions) == 0 {
		return errors.New("pipeline.accessions must list at least one accession (or set ENA_ID_get_gvcf in config.yaml)")
	}
	if c.Pipeline.Taxon.IsZero() {
		return errors.New("pipeline.tax_id must be set")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if !strings.HasPrefix(c.Fetch.BaseURL, "http://") && !strings.HasPrefix(c.Fetch.BaseURL, "https://") {
		return fmt.Errorf("fetch.base_url must be an http(s) URL, got %q", c.Fetch.BaseURL)
	}
	if c.Fetch.Workers > maxFetchWorkers {
		return fmt.Errorf("fetch.workers must be at most %d", maxFetchWorkers)
	}
	if err := ensurePositiveMap(map[string]int{
		"fetch.timeout_seconds": c.Fetch.TimeoutSeconds,
		"fetch.workers":         c.Fetch.Workers,
	}); err != nil {
		return err
	}
	if !containsField(c.Fetch.Fields, c.Filter.TaxonColumn) {
		return fmt.Errorf("fetch.fields must include the taxon column %q", c.Filter.TaxonColumn)
	}
	if !containsField(c.Fetch.Fields, c.Partition.StrainColumn) {
		return fmt.Errorf("fetch.fields must include the strain column %q", c.Partition.StrainColumn)
	}
	return nil
}

func (c *Config) validateArtifacts() error {
	names := map[string]string{
		"artifacts.merged_table":   c.Artifacts.MergedTable,
		"artifacts.filtered_table": c.Artifacts.FilteredTable,
		"artifacts.registry":       c.Artifacts.Registry,
	}
	seen := make(map[string]string, len(names))
	for key, name := range names {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return fmt.Errorf("%s must be a plain file name, got %q", key, name)
		}
		if other, exists := seen[name]; exists {
			return fmt.Errorf("%s and %s must differ", key, other)
		}
		seen[name] = key
	}
	if c.Partition.Dir == c.Merge.ArchiveDir {
		return errors.New("partition.dir and merge.archive_dir must differ")
	}
	return nil
}

func containsField(fields []string, name string) bool {
	for _, field := range fields {
		if field == name {
			return true
		}
	}
	return false
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
