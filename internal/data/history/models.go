package history

import "time"

const SchemaVersion = 1

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one audit record of a script evaluation. Records are write-only
// from the interpreter's point of view: nothing reloads Variables into a
// symbol environment.
type Run struct {
	ID           string             `json:"id"`
	Timestamp    time.Time          `json:"timestamp"`
	Source       string             `json:"source"`
	Script       string             `json:"script"`
	Status       string             `json:"status"`
	Statements   int                `json:"statements"`
	ErrorCode    string             `json:"error_code,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Variables    map[string]float64 `json:"variables"`
	Duration     time.Duration      `json:"duration"`
}
