package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"strainmanifest/internal/failure"
	"strainmanifest/internal/registry"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Print the strain registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Pipeline.ResultsDir, filepath.FromSlash(cfg.Artifacts.Registry))
			ids, err := readRegistry(path)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, ids)
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "Registry is empty")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the registry as a JSON array")
	return cmd
}

// readRegistry reads the registry file directly so inspecting it never
// creates a ledger in the results directory.
func readRegistry(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	ids, err := registry.Decode(data)
	if err != nil {
		return nil, &failure.RegistryCorruptionError{Path: path, Cause: err}
	}
	return ids, nil
}
