package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/queryir"
	"github.com/roach88/kinda/internal/querysql"
)

// Run identifies one recorded trace.
type Run struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Records int    `json:"records"`
}

// ReadTrace returns all records of a run ordered by seq ASC, id ASC
// COLLATE BINARY.
//
// Returns an empty slice (not nil) if the run has no records.
func (s *Store) ReadTrace(ctx context.Context, run string) ([]ir.TraceRecord, error) {
	return s.QueryTrace(ctx, queryir.Where(run))
}

// ReadTraceKind returns the records of a run with the given kind.
func (s *Store) ReadTraceKind(ctx context.Context, run string, kind ir.TraceKind) ([]ir.TraceRecord, error) {
	return s.QueryTrace(ctx, queryir.Where(run,
		queryir.Equals{Field: queryir.FieldKind, Value: ir.IRString(kind)}))
}

// QueryTrace returns the records of q.Run matching q.Filter, in seq order.
func (s *Store) QueryTrace(ctx context.Context, q queryir.Select) ([]ir.TraceRecord, error) {
	query, params, err := querysql.Compile(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	return scanTraces(rows)
}

// ListRuns returns all runs with their record counts, ordered by id.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, COUNT(t.seq)
		FROM runs r
		LEFT JOIN traces t ON t.run = r.id
		GROUP BY r.id, r.name
		ORDER BY r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Name, &r.Records); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanTraces(rows *sql.Rows) ([]ir.TraceRecord, error) {
	defer rows.Close()

	records := []ir.TraceRecord{}
	for rows.Next() {
		rec, err := scanTrace(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate traces: %w", err)
	}
	return records, nil
}

func scanTrace(rows *sql.Rows) (ir.TraceRecord, error) {
	var (
		rec      ir.TraceRecord
		kind     string
		argsJSON string
	)
	if err := rows.Scan(&rec.ID, &rec.Seq, &kind, &rec.Object, &rec.Event, &rec.Listener, &argsJSON); err != nil {
		return ir.TraceRecord{}, fmt.Errorf("scan trace: %w", err)
	}
	rec.Kind = ir.TraceKind(kind)

	args, err := unmarshalArgs(argsJSON)
	if err != nil {
		return ir.TraceRecord{}, fmt.Errorf("trace %d: %w", rec.Seq, err)
	}
	rec.Args = args
	return rec, nil
}
