package store

import (
	"context"
	"fmt"
)

// Run is a recorded run.
type Run struct {
	ID       string
	Scenario string
	Seq      int64
}

// EventRecord is one stored trace event. Value holds the serialized value
// for next events and the error message for error events.
type EventRecord struct {
	RunID  string
	Seq    int64
	Stream string
	Key    string
	Kind   string
	Value  string
}

// WriteRun inserts a run record and returns it with its assigned seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing an existing id
// returns the stored record unchanged.
func (s *Store) WriteRun(ctx context.Context, id, scenario string) (Run, error) {
	if id == "" {
		return Run{}, fmt.Errorf("write run: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs))
		ON CONFLICT(id) DO NOTHING
	`, id, scenario)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	var run Run
	err = tx.QueryRowContext(ctx, `
		SELECT id, scenario, seq FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Scenario, &run.Seq)
	if err != nil {
		return Run{}, fmt.Errorf("write run: read back: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

// WriteEvents appends the events of one run in a single transaction.
// Every record's RunID is overwritten with runID. Events already stored
// under the same (run_id, seq) are ignored.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteEvents(ctx context.Context, runID string, events []EventRecord) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events (run_id, seq, stream, key, kind, value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, runID, ev.Seq, ev.Stream, ev.Key, ev.Kind, ev.Value); err != nil {
			return fmt.Errorf("write events: seq %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}
