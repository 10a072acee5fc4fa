package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/config"
	"strainmanifest/internal/preflight"
)

const statusRunLimit = 5

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show results directory health, recent runs and artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Environment", colorize)
			lines = append(lines, environmentLines(cmd.Context(), cfg, offline, colorize)...)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			ledger := filepath.Join(cfg.Pipeline.ResultsDir, artifacts.LedgerFile)
			if _, err := os.Stat(ledger); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "No runs recorded in", cfg.Pipeline.ResultsDir)
				return nil
			}

			store, err := artifacts.OpenLocal(cfg.Pipeline.ResultsDir)
			if err != nil {
				return fmt.Errorf("open artifact store: %w", err)
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context(), statusRunLimit)
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context(), "")
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Status", "Accessions", "Error"},
				runRows(runs),
				[]int{3},
				colorize,
			))
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Artifact", "Kind", "Status", "Rows", "Updated"},
				artifactRows(records),
				[]int{3},
				colorize,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the ENA portal reachability check")
	return cmd
}

func environmentLines(ctx context.Context, cfg *config.Config, offline bool, colorize bool) []string {
	lines := []string{
		renderStatusLine("Accessions", accessionKind(cfg), accessionDetail(cfg), colorize),
		renderStatusLine("Taxon", taxonKind(cfg), taxonDetail(cfg), colorize),
	}
	if _, err := os.Stat(cfg.Pipeline.ResultsDir); errors.Is(err, fs.ErrNotExist) {
		lines = append(lines, renderStatusLine("Results directory", statusInfo, "Not created yet", colorize))
	} else {
		for _, result := range preflight.RunAll(ctx, cfg) {
			lines = append(lines, checkLine(result, statusError, colorize))
		}
	}
	if offline {
		lines = append(lines, renderStatusLine("ENA portal", statusInfo, "Not checked", colorize))
	} else {
		lines = append(lines, checkLine(preflight.CheckPortal(ctx, cfg.Fetch.BaseURL), statusWarn, colorize))
	}
	return lines
}

func accessionKind(cfg *config.Config) statusKind {
	if len(cfg.Pipeline.Accessions) == 0 {
		return statusWarn
	}
	return statusOK
}

func accessionDetail(cfg *config.Config) string {
	if len(cfg.Pipeline.Accessions) == 0 {
		return "None configured"
	}
	return strings.Join(cfg.Pipeline.Accessions, ", ")
}

func taxonKind(cfg *config.Config) statusKind {
	if cfg.Pipeline.Taxon.IsZero() {
		return statusWarn
	}
	return statusOK
}

func taxonDetail(cfg *config.Config) string {
	if cfg.Pipeline.Taxon.IsZero() {
		return "Not configured"
	}
	return fmt.Sprintf("%s (column %s)", cfg.Pipeline.Taxon, cfg.Filter.TaxonColumn)
}

func runRows(runs []artifacts.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		message := run.ErrorKind
		if run.ErrorMessage != "" {
			message = fmt.Sprintf("%s: %s", run.ErrorKind, truncate(run.ErrorMessage, 60))
		}
		rows = append(rows, []string{
			id,
			formatTimestamp(run.StartedAt),
			string(run.Status),
			strconv.Itoa(len(run.Accessions)),
			message,
		})
	}
	return rows
}

func artifactRows(records []artifacts.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Name,
			string(rec.Kind),
			string(rec.Status),
			strconv.Itoa(rec.Rows),
			formatTimestamp(rec.UpdatedAt),
		})
	}
	return rows
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
