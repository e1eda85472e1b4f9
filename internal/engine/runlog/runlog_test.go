package runlog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTemp(t)
	ctx := context.Background()

	err := l.Record(ctx, Run{
		RunID:            "run-1",
		VideosRequested:  2,
		VideosProcessed:  1,
		ScriptsGenerated: 2,
		Credibility:      "75%",
		SheetURL:         "https://docs.google.com/spreadsheets/d/abc",
		Status:           StatusSuccess,
		Warnings:         []string{"video 2 skipped"},
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := l.Record(ctx, Run{RunID: "run-2", Status: StatusFailed, Error: "no videos"}); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	runs, err := l.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-2" {
		t.Errorf("expected newest first, got %s", runs[0].RunID)
	}
	if runs[0].Error != "no videos" || runs[0].Warnings != nil {
		t.Errorf("unexpected failed run: %+v", runs[0])
	}
	r := runs[1]
	if r.VideosProcessed != 1 || r.ScriptsGenerated != 2 || r.Credibility != "75%" {
		t.Errorf("unexpected run: %+v", r)
	}
	if len(r.Warnings) != 1 || r.Warnings[0] != "video 2 skipped" {
		t.Errorf("warnings = %v", r.Warnings)
	}
	if r.CreatedAt == "" {
		t.Error("expected created_at to be set")
	}
}

func TestRecentLimit(t *testing.T) {
	l := openTemp(t)
	ctx := context.Background()
	for i := range 5 {
		if err := l.Record(ctx, Run{RunID: fmt.Sprintf("run-%d", i), Status: StatusSuccess}); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}
	runs, err := l.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-4" {
		t.Errorf("expected run-4 first, got %s", runs[0].RunID)
	}
}

func TestRecordRequiresRunID(t *testing.T) {
	l := openTemp(t)
	if err := l.Record(context.Background(), Run{Status: StatusSuccess}); err == nil {
		t.Error("expected error for missing run_id")
	}
}

func TestRecordDuplicateRunID(t *testing.T) {
	l := openTemp(t)
	ctx := context.Background()
	if err := l.Record(ctx, Run{RunID: "dup", Status: StatusSuccess}); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := l.Record(ctx, Run{RunID: "dup", Status: StatusSuccess}); err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestEmptyLog(t *testing.T) {
	l := openTemp(t)
	runs, err := l.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
