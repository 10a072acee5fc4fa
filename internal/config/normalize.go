package config

import (
	"fmt"
	"os"
	"strings"
)

// Normalize re-applies defaulting and path expansion after a caller has
// changed fields on a loaded config, such as command-line overrides.
func (c *Config) Normalize() error {
	return c.normalize()
}

func (c *Config) normalize() error {
	if err := c.normalizePipeline(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeColumns()
	c.normalizeArtifacts()
	return c.normalizeLogging()
}

func (c *Config) normalizePipeline() error {
	accessions := make([]string, 0, len(c.Pipeline.Accessions))
	seen := make(map[string]struct{}, len(c.Pipeline.Accessions))
	for _, accession := range c.Pipeline.Accessions {
		normalized := strings.ToUpper(strings.TrimSpace(accession))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		accessions = append(accessions, normalized)
	}
	c.Pipeline.Accessions = accessions

	taxon, err := ParseTaxon(c.Pipeline.TaxID)
	if err != nil {
		return fmt.Errorf("pipeline.tax_id: %w", err)
	}
	c.Pipeline.Taxon = taxon

	if value, ok := os.LookupEnv(envResultsDir); ok && strings.TrimSpace(value) != "" {
		c.Pipeline.ResultsDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Pipeline.ResultsDir) == "" {
		c.Pipeline.ResultsDir = defaultResultsDir
	}
	if c.Pipeline.ResultsDir, err = expandPath(c.Pipeline.ResultsDir); err != nil {
		return fmt.Errorf("pipeline.results_dir: %w", err)
	}
	if c.Pipeline.MinFreeMiB < 0 {
		c.Pipeline.MinFreeMiB = 0
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if value, ok := os.LookupEnv(envPortalURL); ok && strings.TrimSpace(value) != "" {
		c.Fetch.BaseURL = value
	}
	c.Fetch.BaseURL = strings.TrimRight(strings.TrimSpace(c.Fetch.BaseURL), "/")
	if c.Fetch.BaseURL == "" {
		c.Fetch.BaseURL = defaultFetchBaseURL
	}
	c.Fetch.Result = strings.TrimSpace(c.Fetch.Result)
	if c.Fetch.Result == "" {
		c.Fetch.Result = defaultFetchResult
	}
	fields := make([]string, 0, len(c.Fetch.Fields))
	seen := make(map[string]struct{}, len(c.Fetch.Fields))
	for _, field := range c.Fetch.Fields {
		normalized := strings.TrimSpace(field)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		fields = append(fields, normalized)
	}
	if len(fields) == 0 {
		fields = append(fields, defaultFetchFields...)
	}
	c.Fetch.Fields = fields
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeout
	}
	if c.Fetch.Workers <= 0 {
		c.Fetch.Workers = defaultFetchWorkers
	}
}

func (c *Config) normalizeColumns() {
	c.Filter.TaxonColumn = strings.TrimSpace(c.Filter.TaxonColumn)
	if c.Filter.TaxonColumn == "" {
		c.Filter.TaxonColumn = defaultTaxonColumn
	}
	c.Partition.StrainColumn = strings.TrimSpace(c.Partition.StrainColumn)
	if c.Partition.StrainColumn == "" {
		c.Partition.StrainColumn = defaultStrainColumn
	}
	c.Partition.Dir = strings.Trim(strings.TrimSpace(c.Partition.Dir), "/")
	if c.Partition.Dir == "" {
		c.Partition.Dir = defaultPartitionDir
	}
	c.Merge.ArchiveDir = strings.Trim(strings.TrimSpace(c.Merge.ArchiveDir), "/")
	if c.Merge.ArchiveDir == "" {
		c.Merge.ArchiveDir = defaultArchiveDir
	}
}

func (c *Config) normalizeArtifacts() {
	if strings.TrimSpace(c.Artifacts.MergedTable) == "" {
		c.Artifacts.MergedTable = defaultMergedTable
	}
	if strings.TrimSpace(c.Artifacts.FilteredTable) == "" {
		c.Artifacts.FilteredTable = defaultFilteredTable
	}
	if strings.TrimSpace(c.Artifacts.Registry) == "" {
		c.Artifacts.Registry = defaultRegistry
	}
	c.Artifacts.MergedTable = strings.TrimSpace(c.Artifacts.MergedTable)
	c.Artifacts.FilteredTable = strings.TrimSpace(c.Artifacts.FilteredTable)
	c.Artifacts.Registry = strings.TrimSpace(c.Artifacts.Registry)
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = ""
		return nil
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
