// Package journal records process runs and the dispatch decisions made
// during them. Implementations are SQLite (Open) or in-memory (NewMemJournal).
package journal

import (
	"context"
	"errors"
	"time"
)

// DefaultPath is the default location of the SQLite journal, relative to the
// working directory. Open creates the parent directory.
const DefaultPath = ".procgraph/journal.db"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusStopped   = "stopped"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("journal: run not found")

// Run is one execution of a process.
type Run struct {
	ID         string
	Process    string
	InputEvent string
	Status     string
	Steps      int
	Error      string
	StartedAt  time.Time
	EndedAt    time.Time // zero while running
}

// Record is one dispatch decision: the event a step emitted and where the
// dispatcher routed it.
type Record struct {
	RunID   string
	Seq     int
	Step    string
	Event   string
	Payload string // JSON, empty when the payload is nil or not encodable
	Targets []string
	Stop    bool
	Error   string
	At      time.Time
}

// Journal persists runs and their dispatch records.
type Journal interface {
	StartRun(ctx context.Context, run Run) error
	Append(ctx context.Context, rec Record) error
	FinishRun(ctx context.Context, id, status string, steps int, runErr error) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
	Records(ctx context.Context, runID string) ([]Record, error)
	Close() error
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
