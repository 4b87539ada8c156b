package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"rasterprep/internal/imagery"
	"rasterprep/internal/ledger"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	runID := uuid.NewString()

	if err := store.BeginRun(ctx, runID, "/data/imagery", "otb-bayes", false); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.FinishRun(ctx, runID, 5, 2, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != runID || run.Method != "otb-bayes" || run.DryRun {
		t.Errorf("run = %+v", run)
	}
	if run.Processed != 5 || run.Skipped != 2 || run.Errored != 1 {
		t.Errorf("counts = %d/%d/%d", run.Processed, run.Skipped, run.Errored)
	}
	if run.FinishedAt.IsZero() || run.StartedAt.IsZero() {
		t.Error("timestamps not recorded")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	older := uuid.NewString()
	if err := store.BeginRun(ctx, older, "/a", "otb-bayes", true); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1100 * time.Millisecond)
	newer := uuid.NewString()
	if err := store.BeginRun(ctx, newer, "/b", "gdal-cubic", false); err != nil {
		t.Fatal(err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != newer {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
}

func TestTileRows(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	runID := uuid.NewString()
	if err := store.BeginRun(ctx, runID, "/data", "otb-bayes", false); err != nil {
		t.Fatal(err)
	}

	tile := &imagery.Tile{
		BaseDir:     "/data",
		ImageFolder: "IMG01",
		PrepFolder:  "IMG01_PREP",
		DType:       imagery.DTypeUInt16,
		Steps:       []imagery.Step{imagery.StepPansharp, imagery.StepScale},
		MulTile:     "IMG01/IMG01_MUL/TILE-M1_R1C1.TIF",
		PanTile:     "IMG01/IMG01_PAN/TILE-P1_R1C1.TIF",
	}
	id, err := store.RecordTile(ctx, runID, tile)
	if err != nil {
		t.Fatalf("RecordTile: %v", err)
	}
	if err := store.UpdateTile(ctx, id, ledger.StatusDone, "IMG01/IMG01_PREP/out.tif", ""); err != nil {
		t.Fatalf("UpdateTile: %v", err)
	}

	failed := &imagery.Tile{ImageFolder: "IMG02", PrepFolder: "IMG02_PREP", DType: imagery.DTypeUInt16}
	fid, err := store.RecordTile(ctx, runID, failed)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateTile(ctx, fid, ledger.StatusFailed, "", "pansharpen failed"); err != nil {
		t.Fatal(err)
	}

	counts, err := store.TileStatusCounts(ctx, runID)
	if err != nil {
		t.Fatalf("TileStatusCounts: %v", err)
	}
	if counts[ledger.StatusDone] != 1 || counts[ledger.StatusFailed] != 1 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestRecordImage(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	runID := uuid.NewString()
	if err := store.BeginRun(ctx, runID, "/data", "otb-bayes", false); err != nil {
		t.Fatal(err)
	}

	img := &imagery.Image{
		ImageFolder: "IMG01",
		PrepFolder:  "IMG01_PREP",
		BandOutputs: []string{"a_BAND_B.tif", "a_BAND_G.tif"},
		Duration:    3 * time.Second,
	}
	if err := store.RecordImage(ctx, runID, img, ledger.StatusDone); err != nil {
		t.Fatalf("RecordImage: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	store, err := ledger.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	runID := uuid.NewString()
	if err := store.BeginRun(context.Background(), runID, "/data", "otb-bayes", false); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := ledger.Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.ListRuns(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != runID {
		t.Fatalf("expected persisted run, got %+v", runs)
	}
}
