package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"strainmanifest/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var project bool
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Long:        "Writes a commented sample configuration. By default it goes to ~/.config/strainmanifest/config.toml;\n--project writes ./strainmanifest.toml, which takes precedence when present.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath, project)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit pipeline.accessions and pipeline.tax_id before running strainmanifest.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&project, "project", false, "Write "+config.ProjectConfigFile+" in the current directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	cmd.MarkFlagsMutuallyExclusive("path", "project")
	return cmd
}

func initTarget(path string, project bool) (string, error) {
	switch {
	case project:
		return config.ExpandPath(config.ProjectConfigFile)
	case strings.TrimSpace(path) != "":
		expanded, err := config.ExpandPath(strings.TrimSpace(path))
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	default:
		target, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return target, nil
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configSeen {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Results directory: %s\n", cfg.Pipeline.ResultsDir)
			fmt.Fprintf(out, "Accessions: %d\n", len(cfg.Pipeline.Accessions))
			fmt.Fprintf(out, "Allow partial fetch: %s\n", yesNo(cfg.Fetch.AllowPartial))
			if err := cfg.ValidateRun(); err != nil {
				fmt.Fprintf(out, "Not ready to run: %v\n", err)
				fmt.Fprintln(out, "Configuration valid")
				return nil
			}
			fmt.Fprintf(out, "Taxon: %s\n", cfg.Pipeline.Taxon)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
