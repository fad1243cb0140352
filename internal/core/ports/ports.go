package ports

import (
	"context"
	"time"

	"calcscript/internal/data/history"
	"calcscript/internal/engine/scanner"
)

// RunRecorder persists an audit record of a completed run.
type RunRecorder interface {
	SaveRun(ctx context.Context, run history.Run) (string, error)
}

// RunHistory reads back audit records. It never feeds an environment.
type RunHistory interface {
	RunRecorder
	LoadRuns(ctx context.Context, since time.Time, limit int) ([]history.Run, error)
	Ping(ctx context.Context) error
}

// RunRequest is the input shared by every driving adapter.
type RunRequest struct {
	Source string // file path, "stdin", "api", "ui"
	Script string
}

// Outcome records what one statement did.
type Outcome struct {
	Index      int
	Statement  string
	Assignment bool
	Name       string
	Value      float64
}

// RunResult is the state visible after a run. Variables holds every
// assignment that completed before the first fault.
type RunResult struct {
	RunID     string
	Variables map[string]float64
	Names     []string
	Outcomes  []Outcome
	Err       error
	Duration  time.Duration
}

// ScriptService is the surface driving adapters (CLI, TUI, watch mode,
// HTTP API) use to talk to the interpreter.
type ScriptService interface {
	Execute(ctx context.Context, req RunRequest) (*RunResult, error)
	Tokenize(ctx context.Context, source string) []scanner.Token
}
