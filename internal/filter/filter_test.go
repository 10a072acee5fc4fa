package filter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/config"
	"strainmanifest/internal/failure"
	"strainmanifest/internal/table"
)

func newTestFilter(t *testing.T, taxon any) (*Filter, *artifacts.Local) {
	t.Helper()
	store, err := artifacts.OpenLocal(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLocal failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	parsed, err := config.ParseTaxon(taxon)
	if err != nil {
		t.Fatalf("ParseTaxon failed: %v", err)
	}
	return New(store, nil, Options{
		OutputName:  "merged_filtered_table.csv",
		TaxonColumn: "tax_id",
		Taxon:       parsed,
	}), store
}

func mustTable(t *testing.T, tsv string) *table.Table {
	t.Helper()
	tbl, err := table.ReadTSV(strings.NewReader(tsv))
	if err != nil {
		t.Fatalf("ReadTSV failed: %v", err)
	}
	return tbl
}

func TestApplyKeepsMatchingRows(t *testing.T) {
	f, store := newTestFilter(t, 4932)
	merged := mustTable(t, "run_accession\ttax_id\tstrain\n"+
		"ERR1\t4932\tS1\n"+
		"ERR2\t562\tS9\n"+
		"ERR3\t 4932 \tS2\n"+
		"ERR1\t4932\tS1\n"+
		"ERR4\t\tS3\n"+
		"ERR5\tyeast\tS4\n")

	result, err := f.Apply(context.Background(), merged)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got := []int{result.Input, result.Kept, result.NonMatching, result.Malformed, result.Duplicates}
	if diff := cmp.Diff([]int{6, 2, 1, 2, 1}, got); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Kind != failure.WarningFilter || result.Warnings[0].Count != 2 {
		t.Fatalf("unexpected warnings: %+v", result.Warnings)
	}

	rc, rec, err := store.Open(context.Background(), "merged_filtered_table.csv")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	onDisk, err := table.ReadCSV(rc)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	var runs []string
	for _, row := range onDisk.Rows {
		runs = append(runs, row["run_accession"])
	}
	if diff := cmp.Diff([]string{"ERR1", "ERR3"}, runs); diff != "" {
		t.Fatalf("kept rows mismatch (-want +got):\n%s", diff)
	}
	if rec.Rows != 2 || rec.Kind != artifacts.KindFiltered {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestApplyStringTaxon(t *testing.T) {
	f, _ := newTestFilter(t, "Saccharomyces cerevisiae")
	merged := mustTable(t, "tax_id\n"+
		"Saccharomyces cerevisiae\n"+
		" Saccharomyces cerevisiae \n"+
		"Saccharomyces cerevisiae\n"+
		"saccharomyces cerevisiae\n")

	result, err := f.Apply(context.Background(), merged)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Kept != 2 || result.Duplicates != 1 || result.NonMatching != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestApplyMissingColumnDropsEverything(t *testing.T) {
	f, _ := newTestFilter(t, "4932")
	merged := mustTable(t, "run_accession\nERR1\nERR2\n")

	result, err := f.Apply(context.Background(), merged)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Kept != 0 || result.Malformed != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(result.Warnings[0].Message, "no tax_id column") {
		t.Fatalf("unexpected warning: %q", result.Warnings[0].Message)
	}
}

func TestApplyRequiresTaxon(t *testing.T) {
	f, _ := newTestFilter(t, nil)
	if _, err := f.Apply(context.Background(), table.New([]string{"tax_id"})); !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
