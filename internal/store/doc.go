// Package store provides SQLite-backed storage for dispatch traces.
//
// A trace is the ordered list of ir.TraceRecord values produced while a
// scenario runs: emissions, deferrals, listener calls and session
// boundaries. Records belong to a run and are keyed by (run, seq).
//
// # Ordering
//
// All reads use ORDER BY seq ASC, id ASC COLLATE BINARY so a trace read
// back is identical to the trace written, whatever the insertion order.
//
// # Queries
//
// QueryTrace runs a queryir.Select compiled by querysql, so filtered reads
// share the same ordering and never interpolate values into SQL.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema is versioned through PRAGMA user_version; Open applies any
// pending migrations and refuses databases from a newer schema.
//
// Record IDs are content-addressed via ir.TraceID. Args are stored as
// canonical JSON.
package store
