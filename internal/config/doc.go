// Package config loads, normalizes, and validates strainmanifest settings.
//
// TOML is the primary format. YAML files are also accepted so the pipeline can
// read an existing config/config.yaml, including its ENA_ID_get_gvcf and
// tax_id keys. Load applies defaults, expands paths, and resolves environment
// overrides before validation so callers always receive a usable Config.
package config
