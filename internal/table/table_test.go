package table

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnionHeaderKeepsFirstSeenOrder(t *testing.T) {
	got := UnionHeader(
		[]string{"run_accession", "tax_id"},
		[]string{"tax_id", "strain", "run_accession"},
		nil,
		[]string{"country"},
	)
	want := []string{"run_accession", "tax_id", "strain", "country"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("union mismatch (-want +got):\n%s", diff)
	}
}

func TestKeyDistinguishesCellBoundaries(t *testing.T) {
	tbl := New([]string{"a", "b"})
	left := Row{"a": "ab", "b": "c"}
	right := Row{"a": "a", "b": "bc"}
	if tbl.Key(left) == tbl.Key(right) {
		t.Fatal("expected distinct keys for shifted cell boundaries")
	}
	if tbl.Key(Row{"a": "x"}) != tbl.Key(Row{"a": "x", "b": ""}) {
		t.Fatal("missing and empty cells should share a key")
	}
}

func TestValuesFillsMissingColumns(t *testing.T) {
	tbl := New([]string{"a", "b", "c"})
	got := tbl.Values(Row{"c": "3", "a": "1"})
	if diff := cmp.Diff([]string{"1", "", "3"}, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if !tbl.HasColumn("b") || tbl.HasColumn("z") {
		t.Fatal("HasColumn mismatch")
	}
}
