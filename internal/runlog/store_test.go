package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"photomesh/internal/config"
	"photomesh/internal/logging"
	"photomesh/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testJob() config.Job {
	return config.Job{SourceBucket: "in", SourceKey: "scans/chair.zip", DestBucket: "out"}
}

func TestBeginAndComplete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Begin(ctx, testJob())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if id == "" {
		t.Fatal("Begin returned empty id")
	}

	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Status != StatusRunning {
		t.Fatalf("status = %q, want running", run.Status)
	}
	if run.SourceKey != "scans/chair.zip" {
		t.Fatalf("source key = %q", run.SourceKey)
	}

	if err := store.Complete(ctx, id, "scans/chair_printable.obj"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	run, err = store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after complete: %v", err)
	}
	if run.Status != StatusSucceeded || run.ResultKey != "scans/chair_printable.obj" {
		t.Fatalf("run after complete = %+v", run)
	}
}

func TestFailRecordsTaxonomyKind(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Begin(ctx, testJob())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	failure := services.Wrap(services.ErrDataQuality, "image_matching", "validate", "no overlapping pairs", nil)
	if err := store.Fail(ctx, id, failure); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", run.Status)
	}
	if run.ErrorKind != "data_quality" {
		t.Fatalf("error kind = %q, want data_quality", run.ErrorKind)
	}
}

func TestStageHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Begin(ctx, testJob())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := store.StageStarted(ctx, id, "camera_init"); err != nil {
		t.Fatalf("StageStarted: %v", err)
	}
	if err := store.StageFinished(ctx, id, "camera_init", nil); err != nil {
		t.Fatalf("StageFinished: %v", err)
	}
	if err := store.StageStarted(ctx, id, "feature_extraction"); err != nil {
		t.Fatalf("StageStarted: %v", err)
	}
	if err := store.StageFinished(ctx, id, "feature_extraction", errors.New("boom")); err != nil {
		t.Fatalf("StageFinished: %v", err)
	}

	stages, err := store.Stages(ctx, id)
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("stage count = %d, want 2", len(stages))
	}
	if stages[0].Stage != "camera_init" || stages[0].Status != StatusSucceeded {
		t.Fatalf("first stage = %+v", stages[0])
	}
	if stages[1].Status != StatusFailed || stages[1].ErrorMessage != "boom" {
		t.Fatalf("second stage = %+v", stages[1])
	}

	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.CurrentStage != "feature_extraction" {
		t.Fatalf("current stage = %q", run.CurrentStage)
	}
}

func TestRecorderWritesThrough(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Begin(ctx, testJob())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	recorder := store.Recorder(id, logging.NewNop())
	recorder.StageStarted("meshing")
	recorder.StageFinished("meshing", nil)

	stages, err := store.Stages(ctx, id)
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	if len(stages) != 1 || stages[0].Stage != "meshing" || stages[0].Status != StatusSucceeded {
		t.Fatalf("stages = %+v", stages)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.Begin(ctx, testJob())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	second, err := store.Begin(ctx, testJob())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("run count = %d, want 2", len(runs))
	}
	if runs[0].ID != second && runs[0].ID != first {
		t.Fatalf("unexpected ids: %+v", runs)
	}
}

func TestGetMissingRun(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(context.Background(), "no-such-run"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	store, err := OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	id, err := store.Begin(context.Background(), testJob())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenPath(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(context.Background(), id); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}
