package config

// ProjectConfigFile is looked up in the working directory before the user
// config.
const ProjectConfigFile = "strainmanifest.toml"

const (
	defaultConfigPath    = "~/.config/strainmanifest/config.toml"
	legacyConfigFile     = "config/config.yaml"
	defaultResultsDir    = "./results/table"
	defaultMinFreeMiB    = 64
	defaultFetchBaseURL  = "https://www.ebi.ac.uk/ena/portal/api/filereport"
	defaultFetchResult   = "read_run"
	defaultFetchTimeout  = 60
	defaultFetchWorkers  = 4
	defaultArchiveDir    = "archive"
	defaultTaxonColumn   = "tax_id"
	defaultStrainColumn  = "strain"
	defaultPartitionDir  = "strains"
	defaultMergedTable   = "merged_table.tsv.ok"
	defaultFilteredTable = "merged_filtered_table.csv"
	defaultRegistry      = "ENA_strain_list.json"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	maxFetchWorkers      = 32
	envPortalURL         = "ENA_PORTAL_URL"
	envResultsDir        = "STRAINMANIFEST_RESULTS_DIR"
)

var defaultFetchFields = []string{
	"run_accession",
	"sample_accession",
	"experiment_accession",
	"study_accession",
	"tax_id",
	"scientific_name",
	"strain",
	"library_layout",
	"instrument_platform",
	"fastq_ftp",
	"fastq_md5",
	"fastq_bytes",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	fields := make([]string, len(defaultFetchFields))
	copy(fields, defaultFetchFields)
	return Config{
		Pipeline: Pipeline{
			ResultsDir: defaultResultsDir,
			MinFreeMiB: defaultMinFreeMiB,
		},
		Fetch: Fetch{
			BaseURL:        defaultFetchBaseURL,
			Result:         defaultFetchResult,
			Fields:         fields,
			TimeoutSeconds: defaultFetchTimeout,
			Workers:        defaultFetchWorkers,
		},
		Merge: Merge{
			ArchiveRaw: true,
			ArchiveDir: defaultArchiveDir,
		},
		Filter: Filter{
			TaxonColumn: defaultTaxonColumn,
		},
		Partition: Partition{
			StrainColumn: defaultStrainColumn,
			Dir:          defaultPartitionDir,
		},
		Artifacts: Artifacts{
			MergedTable:   defaultMergedTable,
			FilteredTable: defaultFilteredTable,
			Registry:      defaultRegistry,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
