package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"calcscript/internal/core/errors"
	"calcscript/internal/data/history"
)

type memoryRecorder struct {
	mu     sync.Mutex
	runs   []history.Run
	failOn string
}

func (m *memoryRecorder) SaveRun(_ context.Context, run history.Run) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.Script == m.failOn {
		return "", fmt.Errorf("disk full")
	}
	m.runs = append(m.runs, run)
	return run.ID, nil
}

func (m *memoryRecorder) snapshot() []history.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Run(nil), m.runs...)
}

func TestRecorder_CloseDrainsQueuedRuns(t *testing.T) {
	sink := &memoryRecorder{}
	rec := NewRecorder(sink, 8)
	in := quietInterpreter(WithRecorder(rec))
	ctx := context.Background()

	ok, _ := in.Execute(ctx, RunRequestFor("ok.calc", "x = 2 + 3"))
	failed, _ := in.Execute(ctx, RunRequestFor("bad.calc", "x = 1; y = x / 0"))

	closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rec.Close(closeCtx); err != nil {
		t.Fatalf("close recorder: %v", err)
	}

	runs := sink.snapshot()
	if len(runs) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(runs))
	}
	if runs[0].ID != ok.RunID || runs[0].Status != history.StatusOK || runs[0].Source != "ok.calc" {
		t.Fatalf("unexpected first record %+v", runs[0])
	}
	if runs[0].Variables["x"] != 5 || runs[0].Statements != 1 {
		t.Fatalf("unexpected first record payload %+v", runs[0])
	}
	second := runs[1]
	if second.ID != failed.RunID || second.Status != history.StatusError {
		t.Fatalf("unexpected second record %+v", second)
	}
	if second.ErrorCode != string(errors.CodeDivisionByZero) {
		t.Fatalf("expected division error code, got %q", second.ErrorCode)
	}
	if second.ErrorMessage != "SemanticError: division by zero (statement 2)" {
		t.Fatalf("unexpected error message %q", second.ErrorMessage)
	}
	if second.Variables["x"] != 1 || len(second.Variables) != 1 {
		t.Fatalf("expected partial state in record, got %v", second.Variables)
	}
}

func TestRecorder_FailedWriteDoesNotStopWorker(t *testing.T) {
	sink := &memoryRecorder{failOn: "boom"}
	rec := NewRecorder(sink, 4)

	rec.Record(history.Run{ID: "1", Script: "boom"})
	rec.Record(history.Run{ID: "2", Script: "fine"})
	if err := rec.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	runs := sink.snapshot()
	if len(runs) != 1 || runs[0].ID != "2" {
		t.Fatalf("expected only the second run to be stored, got %+v", runs)
	}
}

func TestRecorder_RecordAfterCloseIsDropped(t *testing.T) {
	sink := &memoryRecorder{}
	rec := NewRecorder(sink, 1)
	if err := rec.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec.Record(history.Run{ID: "late"})
	if err := rec.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(sink.snapshot()) != 0 {
		t.Fatal("expected late record to be dropped")
	}

	var nilRecorder *Recorder
	nilRecorder.Record(history.Run{})
	if err := nilRecorder.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRecorder_WithSQLiteRetention(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rec := NewRecorder(store, 16).WithRetention(2)
	in := quietInterpreter(WithRecorder(rec))
	for i := 0; i < 5; i++ {
		if _, err := in.Execute(context.Background(), RunRequestFor("loop", fmt.Sprintf("n = %d", i))); err != nil {
			t.Fatal(err)
		}
	}
	if err := rec.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	runs, err := store.LoadRuns(context.Background(), time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected retention to keep 2 runs, got %d", len(runs))
	}
	if runs[0].Variables["n"] != 4 {
		t.Fatalf("expected newest run first, got %+v", runs[0])
	}
}
