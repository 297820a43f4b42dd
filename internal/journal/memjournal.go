package journal

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemJournal is an in-memory Journal. Safe for concurrent use.
type MemJournal struct {
	mu      sync.Mutex
	order   []string
	runs    map[string]*Run
	records map[string][]Record
}

// NewMemJournal returns an empty in-memory journal.
func NewMemJournal() *MemJournal {
	return &MemJournal{
		runs:    make(map[string]*Run),
		records: make(map[string][]Record),
	}
}

func (j *MemJournal) StartRun(_ context.Context, run Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.runs[run.ID]; ok {
		return fmt.Errorf("start run %s: already exists", run.ID)
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	j.runs[run.ID] = &run
	j.order = append(j.order, run.ID)
	return nil
}

func (j *MemJournal) Append(_ context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.runs[rec.RunID]; !ok {
		return fmt.Errorf("append to %s: %w", rec.RunID, ErrRunNotFound)
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	rec.Targets = slices.Clone(rec.Targets)
	j.records[rec.RunID] = append(j.records[rec.RunID], rec)
	return nil
}

func (j *MemJournal) FinishRun(_ context.Context, id, status string, steps int, runErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	r, ok := j.runs[id]
	if !ok {
		return fmt.Errorf("finish %s: %w", id, ErrRunNotFound)
	}
	r.Status = status
	r.Steps = steps
	r.Error = errString(runErr)
	r.EndedAt = time.Now().UTC()
	return nil
}

func (j *MemJournal) GetRun(_ context.Context, id string) (*Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	r, ok := j.runs[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrRunNotFound)
	}
	cp := *r
	return &cp, nil
}

// ListRuns returns runs in the order they were started.
func (j *MemJournal) ListRuns(_ context.Context) ([]Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Run, 0, len(j.order))
	for _, id := range j.order {
		out = append(out, *j.runs[id])
	}
	return out, nil
}

func (j *MemJournal) Records(_ context.Context, runID string) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.runs[runID]; !ok {
		return nil, fmt.Errorf("records of %s: %w", runID, ErrRunNotFound)
	}
	recs := j.records[runID]
	out := make([]Record, len(recs))
	for i, r := range recs {
		r.Targets = slices.Clone(r.Targets)
		out[i] = r
	}
	return out, nil
}

func (j *MemJournal) Close() error { return nil }
