package store

import (
	"context"
	"fmt"

	"github.com/roach88/kinda/internal/ir"
)

// WriteRun registers a run. Writing the same run twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Name)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteTrace appends a trace record to a run. The record's ID is computed
// with ir.TraceID when empty. Uses ON CONFLICT DO NOTHING so replaying the
// same (run, seq) is idempotent.
//
// The run must have been written first (foreign key constraint).
func (s *Store) WriteTrace(ctx context.Context, run string, rec ir.TraceRecord) error {
	if rec.ID == "" {
		id, err := ir.TraceID(rec)
		if err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
		rec.ID = id
	}

	argsJSON, err := marshalArgs(rec.Args)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO traces
		(run, seq, id, kind, object, event, listener, args)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run, seq) DO NOTHING
	`,
		run,
		rec.Seq,
		rec.ID,
		string(rec.Kind),
		rec.Object,
		rec.Event,
		rec.Listener,
		argsJSON,
	)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

// WriteTraces appends records in one transaction.
func (s *Store) WriteTraces(ctx context.Context, run string, recs []ir.TraceRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write traces: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO traces
		(run, seq, id, kind, object, event, listener, args)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write traces: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if rec.ID == "" {
			if rec.ID, err = ir.TraceID(rec); err != nil {
				return fmt.Errorf("write traces: %w", err)
			}
		}
		argsJSON, err := marshalArgs(rec.Args)
		if err != nil {
			return fmt.Errorf("write traces: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, run, rec.Seq, rec.ID, string(rec.Kind), rec.Object, rec.Event, rec.Listener, argsJSON); err != nil {
			return fmt.Errorf("write traces: seq %d: %w", rec.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write traces: commit: %w", err)
	}
	return nil
}
