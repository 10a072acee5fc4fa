package testsupport

import (
	"context"
	"io"
	"testing"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/config"
	"strainmanifest/internal/fetch"
)

// MustOpenStore opens the artifact store of cfg's results directory and
// registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *artifacts.Local {
	t.Helper()

	store, err := artifacts.OpenLocal(cfg.Pipeline.ResultsDir)
	if err != nil {
		t.Fatalf("artifacts.OpenLocal: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// CommitRaw stores content as the raw table of accession.
func CommitRaw(t testing.TB, store artifacts.Store, accession, content string) artifacts.Record {
	t.Helper()

	rec, err := store.Commit(context.Background(), fetch.RawName(accession), artifacts.KindRaw, func(w io.Writer) (int, error) {
		_, err := io.WriteString(w, content)
		return 0, err
	})
	if err != nil {
		t.Fatalf("commit raw %s: %v", accession, err)
	}
	return rec
}
