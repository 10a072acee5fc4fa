package artifacts

import (
	"context"
	"testing"

	"strainmanifest/internal/failure"
)

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, []string{"PRJ1"})
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if run.ID == "" || run.Status != RunRunning {
		t.Fatalf("unexpected run: %+v", run)
	}

	rec, err := store.Commit(ctx, "a.csv", KindFiltered, writeString("a\n", 0))
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if rec.RunID != run.ID {
		t.Fatalf("record run id = %q, want %q", rec.RunID, run.ID)
	}

	runErr := failure.Wrap(failure.ErrMerge, "merge", "read", "empty source", nil)
	if err := store.FinishRun(ctx, run.ID, runErr); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := store.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != RunFailed || got.ErrorKind != "merge" || got.FinishedAt == nil {
		t.Fatalf("unexpected finished run: %+v", got)
	}
	if len(got.Accessions) != 1 || got.Accessions[0] != "PRJ1" {
		t.Fatalf("unexpected accessions: %v", got.Accessions)
	}
}

func TestBeginRunMarksStaleRunsInterrupted(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.BeginRun(ctx, nil)
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	second, err := store.BeginRun(ctx, nil)
	if err != nil {
		t.Fatalf("second BeginRun failed: %v", err)
	}
	if err := store.FinishRun(ctx, second.ID, nil); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := store.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	statuses := map[string]RunStatus{}
	for _, run := range runs {
		statuses[run.ID] = run.Status
	}
	if statuses[first.ID] != RunInterrupted {
		t.Fatalf("first run status = %q, want interrupted", statuses[first.ID])
	}
	if statuses[second.ID] != RunSucceeded {
		t.Fatalf("second run status = %q, want succeeded", statuses[second.ID])
	}
}
