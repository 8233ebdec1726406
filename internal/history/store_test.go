package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStartRunAndUpdate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := uuid.NewString()

	run, err := store.StartRun(ctx, id, "/rec/a.mkv", "Weekly Sync", "Pat", "awaiting_metadata")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.ID != id || run.State != "awaiting_metadata" {
		t.Fatalf("run = %+v", run)
	}
	if run.CreatedAt.IsZero() || run.UpdatedAt.IsZero() {
		t.Error("timestamps not persisted")
	}

	run.BaseName = "20260204 Weekly Sync"
	run.State = "done"
	run.StageResults = map[string]string{
		"encode_audio": "completed",
		"encode_video": "skipped_already_present",
	}
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fetched, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil {
		t.Fatal("run not found after update")
	}
	if fetched.BaseName != "20260204 Weekly Sync" || fetched.State != "done" {
		t.Errorf("fetched = %+v", fetched)
	}
	if fetched.StageResults["encode_video"] != "skipped_already_present" {
		t.Errorf("stage results = %v", fetched.StageResults)
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := openTestStore(t)
	run, err := store.GetByID(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if run != nil {
		t.Fatalf("expected nil for unknown id, got %+v", run)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id := uuid.NewString()
		ids = append(ids, id)
		if _, err := store.StartRun(ctx, id, "/rec/a.mkv", "Run", "Pat", "done"); err != nil {
			t.Fatalf("StartRun %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Recent returned %d runs, want 2", len(runs))
	}
	if runs[0].ID != ids[2] {
		t.Errorf("newest run first: got %s, want %s", runs[0].ID, ids[2])
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.StartRun(ctx, uuid.NewString(), "", "", "", "done"); err != nil {
		t.Fatal(err)
	}
	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Errorf("Clear removed %d rows, want 1", removed)
	}
}
