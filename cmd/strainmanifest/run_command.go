package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"strainmanifest/internal/config"
	"strainmanifest/internal/failure"
	"strainmanifest/internal/logging"
	"strainmanifest/internal/pipeline"
)

type runFlags struct {
	reset        bool
	accessions   []string
	taxID        string
	resultsDir   string
	workers      int
	allowPartial bool
	jsonOutput   bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, merge, filter and partition ENA run metadata",
		Long: "Downloads run metadata for each configured accession, merges it into one table,\n" +
			"keeps rows for the target taxon, writes one CSV per strain and extends the strain registry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyRunFlags(cmd, *loaded, flags)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runner, err := pipeline.NewRunner(cfg, logger)
			if err != nil {
				return err
			}
			report, err := runner.Run(signalCtx, pipeline.Options{Reset: flags.reset})
			if err != nil {
				if signalCtx.Err() != nil {
					return context.Canceled
				}
				return err
			}

			if flags.jsonOutput {
				return writeJSON(cmd, newRunSummary(report))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderReport(report, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.reset, "reset", false, "Delete previous artifacts before running")
	cmd.Flags().StringSliceVarP(&flags.accessions, "accession", "a", nil, "Accession to fetch (repeatable; replaces configured accessions)")
	cmd.Flags().StringVar(&flags.taxID, "tax-id", "", "Target taxon identifier")
	cmd.Flags().StringVar(&flags.resultsDir, "results-dir", "", "Results directory")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Concurrent downloads")
	cmd.Flags().BoolVar(&flags.allowPartial, "allow-partial", false, "Continue when some accessions fail to download")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

// applyRunFlags returns a copy of cfg with command-line overrides applied.
// The results directory flag wins over STRAINMANIFEST_RESULTS_DIR, so it is
// applied after normalization.
func applyRunFlags(cmd *cobra.Command, cfg config.Config, flags runFlags) (*config.Config, error) {
	if cmd.Flags().Changed("accession") {
		cfg.Pipeline.Accessions = append([]string(nil), flags.accessions...)
	}
	if taxID := strings.TrimSpace(flags.taxID); taxID != "" {
		cfg.Pipeline.TaxID = taxID
	}
	if flags.workers > 0 {
		cfg.Fetch.Workers = flags.workers
	}
	if flags.allowPartial {
		cfg.Fetch.AllowPartial = true
	}
	if err := cfg.Normalize(); err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "config", "flags", "", err)
	}
	if dir := strings.TrimSpace(flags.resultsDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, failure.Wrap(failure.ErrConfiguration, "config", "flags", "results dir", err)
		}
		cfg.Pipeline.ResultsDir = expanded
	}
	if err := cfg.ValidateRun(); err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "config", "validate", "", err)
	}
	return &cfg, nil
}
