package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Pipeline contains the inputs of a manifest build.
type Pipeline struct {
	Accessions []string `toml:"accessions" yaml:"accessions"`
	// TaxID accepts an integer or a string in the source file; normalize
	// resolves it into Taxon.
	TaxID      any    `toml:"tax_id" yaml:"tax_id"`
	ResultsDir string `toml:"results_dir" yaml:"results_dir"`
	Reset      bool   `toml:"reset" yaml:"reset"`
	MinFreeMiB int    `toml:"min_free_mib" yaml:"min_free_mib"`

	Taxon Taxon `toml:"-" yaml:"-"`
}

// Fetch contains ENA portal retrieval settings.
type Fetch struct {
	BaseURL        string   `toml:"base_url" yaml:"base_url"`
	Result         string   `toml:"result" yaml:"result"`
	Fields         []string `toml:"fields" yaml:"fields"`
	TimeoutSeconds int      `toml:"timeout_seconds" yaml:"timeout_seconds"`
	Workers        int      `toml:"workers" yaml:"workers"`
	AllowPartial   bool     `toml:"allow_partial" yaml:"allow_partial"`
}

// Merge contains merged table settings.
type Merge struct {
	ArchiveRaw bool   `toml:"archive_raw" yaml:"archive_raw"`
	ArchiveDir string `toml:"archive_dir" yaml:"archive_dir"`
}

// Filter contains taxon filter settings.
type Filter struct {
	TaxonColumn string `toml:"taxon_column" yaml:"taxon_column"`
}

// Partition contains per-strain output settings.
type Partition struct {
	StrainColumn string `toml:"strain_column" yaml:"strain_column"`
	Dir          string `toml:"dir" yaml:"dir"`
}

// Artifacts names the files written to the results directory.
type Artifacts struct {
	MergedTable   string `toml:"merged_table" yaml:"merged_table"`
	FilteredTable string `toml:"filtered_table" yaml:"filtered_table"`
	Registry      string `toml:"registry" yaml:"registry"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
	Dir    string `toml:"dir" yaml:"dir"`
}

// Config encapsulates all configuration values for strainmanifest.
//
// Configuration sections by subsystem:
//   - Pipeline: accessions, target taxon, results directory
//   - Fetch: ENA portal endpoint, fields, concurrency, failure policy
//   - Merge: raw file archival
//   - Filter: taxon column
//   - Partition: strain column and output directory
//   - Artifacts: artifact file names
//   - Logging: log format, level, and file directory
type Config struct {
	Pipeline  Pipeline  `toml:"pipeline" yaml:"pipeline"`
	Fetch     Fetch     `toml:"fetch" yaml:"fetch"`
	Merge     Merge     `toml:"merge" yaml:"merge"`
	Filter    Filter    `toml:"filter" yaml:"filter"`
	Partition Partition `toml:"partition" yaml:"partition"`
	Artifacts Artifacts `toml:"artifacts" yaml:"artifacts"`
	Logging   Logging   `toml:"logging" yaml:"logging"`
}

// legacyConfig mirrors the flat keys of the original pipeline's config.yaml.
type legacyConfig struct {
	Accessions []string `yaml:"ENA_ID_get_gvcf"`
	TaxID      any      `yaml:"tax_id"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		var legacy legacyConfig
		if err := yaml.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		cfg.applyLegacy(legacy)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

func (c *Config) applyLegacy(legacy legacyConfig) {
	if len(c.Pipeline.Accessions) == 0 && len(legacy.Accessions) > 0 {
		c.Pipeline.Accessions = legacy.Accessions
	}
	if c.Pipeline.TaxID == nil && legacy.TaxID != nil {
		c.Pipeline.TaxID = legacy.TaxID
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{ProjectConfigFile, legacyConfigFile} {
		projectPath, err := filepath.Abs(candidate)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
			return projectPath, true, nil
		}
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the results directory and, when configured, the log directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Pipeline.ResultsDir}
	if c.Logging.Dir != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FetchFields returns the comma-joined field list requested from the portal.
func (c *Config) FetchFields() string {
	return strings.Join(c.Fetch.Fields, ",")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
