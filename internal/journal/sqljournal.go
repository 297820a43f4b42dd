package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLJournal implements Journal with SQLite.
type SQLJournal struct {
	db *sql.DB
}

// Open opens or creates a SQLite journal at path and runs migrations.
// Creates the parent directory if it does not exist.
func Open(path string) (*SQLJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers from concurrent step goroutines.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	j := &SQLJournal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SQLJournal) migrate() error {
	var tableCount int
	err := j.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		return j.freshInstall()
	}

	var v int
	err = j.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		v = schemaVersionV1
		if _, err := j.db.Exec("INSERT INTO schema_version(version) VALUES(?)", v); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	switch v {
	case currentSchemaVersion:
		return nil
	case schemaVersionV1:
		return j.migrateV1ToV2()
	default:
		return fmt.Errorf("unknown journal schema version %d", v)
	}
}

func (j *SQLJournal) freshInstall() error {
	if _, err := j.db.Exec(schemaV2); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := j.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

func (j *SQLJournal) migrateV1ToV2() error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(migrationV1ToV2); err != nil {
		return fmt.Errorf("v1→v2 migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration tx: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (j *SQLJournal) Close() error {
	return j.db.Close()
}

func (j *SQLJournal) StartRun(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs(id, process, input_event, status, steps, started_at) VALUES(?, ?, ?, ?, ?, ?)`,
		run.ID, run.Process, run.InputEvent, run.Status, run.Steps, formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("start run %s: %w", run.ID, err)
	}
	return nil
}

func (j *SQLJournal) Append(ctx context.Context, rec Record) error {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	targets := rec.Targets
	if targets == nil {
		targets = []string{}
	}
	tj, err := json.Marshal(targets)
	if err != nil {
		return fmt.Errorf("marshal targets: %w", err)
	}
	var exists int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", rec.RunID).Scan(&exists); err != nil {
		return fmt.Errorf("append to %s: %w", rec.RunID, err)
	}
	if exists == 0 {
		return fmt.Errorf("append to %s: %w", rec.RunID, ErrRunNotFound)
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO dispatches(run_id, seq, step, event, payload, targets, stop, error, at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Seq, rec.Step, rec.Event, nullable(rec.Payload), string(tj), rec.Stop, nullable(rec.Error), formatTime(rec.At))
	if err != nil {
		return fmt.Errorf("append to %s: %w", rec.RunID, err)
	}
	return nil
}

func (j *SQLJournal) FinishRun(ctx context.Context, id, status string, steps int, runErr error) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, steps = ?, error = ?, ended_at = ? WHERE id = ?`,
		status, steps, nullable(errString(runErr)), formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("finish %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish %s: %w", id, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, process, input_event, status, steps, error, started_at, ended_at`

func (j *SQLJournal) GetRun(ctx context.Context, id string) (*Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns runs in the order they were started.
func (j *SQLJournal) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (j *SQLJournal) Records(ctx context.Context, runID string) ([]Record, error) {
	if _, err := j.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, seq, step, event, payload, targets, stop, error, at FROM dispatches WHERE run_id = ? ORDER BY seq, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("records of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec              Record
			payload, errText sql.NullString
			targets, at      string
		)
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Step, &rec.Event, &payload, &targets, &rec.Stop, &errText, &at); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		if err := json.Unmarshal([]byte(targets), &rec.Targets); err != nil {
			return nil, fmt.Errorf("decode targets: %w", err)
		}
		rec.Payload = nullStr(payload)
		rec.Error = nullStr(errText)
		rec.At = parseTime(at)
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r              Run
		errText, ended sql.NullString
		started        string
	)
	if err := s.Scan(&r.ID, &r.Process, &r.InputEvent, &r.Status, &r.Steps, &errText, &started, &ended); err != nil {
		return nil, err
	}
	r.Error = nullStr(errText)
	r.StartedAt = parseTime(started)
	r.EndedAt = parseTime(nullStr(ended))
	return &r, nil
}

// timeLayout has a fixed-width fraction so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
