package fetch

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/failure"
)

type stubDownloader struct {
	bodies map[string]string
	fail   map[string]error
	calls  atomic.Int32
}

func (s *stubDownloader) Download(ctx context.Context, accession string, w io.Writer) (int64, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err, ok := s.fail[accession]; ok {
		return 0, err
	}
	n, err := io.WriteString(w, s.bodies[accession])
	return int64(n), err
}

func openStore(t *testing.T) *artifacts.Local {
	t.Helper()
	store, err := artifacts.OpenLocal(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLocal failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// verifyWorkersExit fails the test if any download worker outlives FetchAll.
// The ledger's connection opener lives until the store cleanup runs.
func verifyWorkersExit(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

func TestFetchAllStoresEachAccession(t *testing.T) {
	store := openStore(t)
	stub := &stubDownloader{bodies: map[string]string{
		"PRJ1": "run_accession\tstrain\nERR1\tS1\nERR2\tS1\n",
		"PRJ2": "run_accession\tstrain\nERR3\tS2",
		"PRJ3": "",
	}}
	fetcher := NewFetcher(stub, store, nil, Options{Workers: 2})

	result, err := fetcher.FetchAll(context.Background(), []string{"PRJ1", "PRJ2", "PRJ3"})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if diff := cmp.Diff([]string{"PRJ1", "PRJ2", "PRJ3"}, result.Fetched); diff != "" {
		t.Fatalf("fetched mismatch (-want +got):\n%s", diff)
	}
	if result.Rows != 3 {
		t.Fatalf("rows = %d, want 3", result.Rows)
	}

	rec, err := store.Stat(context.Background(), "PRJ3.tsv")
	if err != nil {
		t.Fatalf("empty response should still be stored: %v", err)
	}
	if rec.Size != 0 || rec.Kind != artifacts.KindRaw {
		t.Fatalf("unexpected empty record: %+v", rec)
	}
}

func TestFetchAllFailsFast(t *testing.T) {
	store := openStore(t)
	defer verifyWorkersExit(t)
	boom := errors.New("connection reset")
	stub := &stubDownloader{
		bodies: map[string]string{"PRJ1": "a\n1\n"},
		fail:   map[string]error{"PRJ2": boom},
	}
	fetcher := NewFetcher(stub, store, nil, Options{Workers: 1})

	_, err := fetcher.FetchAll(context.Background(), []string{"PRJ2", "PRJ1"})
	var retrieval *failure.RetrievalError
	if !errors.As(err, &retrieval) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if retrieval.Accession != "PRJ2" || !errors.Is(err, boom) || !errors.Is(err, failure.ErrRetrieval) {
		t.Fatalf("unexpected retrieval error: %v", err)
	}
	if _, err := store.Stat(context.Background(), "PRJ2.tsv"); !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("failed accession must not leave an artifact, got %v", err)
	}
}

func TestFetchAllAllowPartial(t *testing.T) {
	store := openStore(t)
	defer verifyWorkersExit(t)
	stub := &stubDownloader{
		bodies: map[string]string{"PRJ1": "a\n1\n"},
		fail:   map[string]error{"PRJ2": errors.New("status 500")},
	}
	fetcher := NewFetcher(stub, store, nil, Options{Workers: 2, AllowPartial: true})

	result, err := fetcher.FetchAll(context.Background(), []string{"PRJ1", "PRJ2"})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if diff := cmp.Diff([]string{"PRJ2"}, result.Failed); diff != "" {
		t.Fatalf("failed mismatch (-want +got):\n%s", diff)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Kind != failure.WarningFetch || result.Warnings[0].Count != 1 {
		t.Fatalf("unexpected warnings: %+v", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0].Message, "PRJ2") {
		t.Fatalf("warning should name the accession: %q", result.Warnings[0].Message)
	}
}

func TestFetchAllAllowPartialRequiresOneSuccess(t *testing.T) {
	store := openStore(t)
	stub := &stubDownloader{fail: map[string]error{
		"PRJ1": errors.New("down"),
		"PRJ2": errors.New("down"),
	}}
	fetcher := NewFetcher(stub, store, nil, Options{AllowPartial: true})

	if _, err := fetcher.FetchAll(context.Background(), []string{"PRJ1", "PRJ2"}); !errors.Is(err, failure.ErrRetrieval) {
		t.Fatalf("expected retrieval error when nothing succeeds, got %v", err)
	}
}

func TestFetchAllEmpty(t *testing.T) {
	store := openStore(t)
	stub := &stubDownloader{}
	result, err := NewFetcher(stub, store, nil, Options{}).FetchAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(result.Fetched) != 0 || stub.calls.Load() != 0 {
		t.Fatalf("expected no work, got %+v (%d calls)", result, stub.calls.Load())
	}
}

func TestLineCounterRows(t *testing.T) {
	cases := map[string]int{
		"":                 0,
		"header\n":         0,
		"header":           0,
		"header\nrow\n":    1,
		"header\nrow":      1,
		"header\nr1\nr2\n": 2,
	}
	for input, want := range cases {
		counter := &lineCounter{w: io.Discard}
		_, _ = io.WriteString(counter, input)
		if got := counter.rows(); got != want {
			t.Fatalf("rows(%q) = %d, want %d", input, got, want)
		}
	}
}
