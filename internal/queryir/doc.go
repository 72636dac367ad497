// Package queryir provides a small query representation for filtering
// recorded dispatch traces.
//
// A Select names a run and an optional filter over the trace columns:
//
//	[trace flags] → [queryir.Select] → [querysql] → SQLite
//
// Filters are built from sealed predicate types:
//   - Equals: column = literal
//   - SeqRange: bounds on the record sequence number
//   - And: conjunction of predicates
//
// OR predicates are not supported; callers needing several kinds issue
// several queries.
//
// Validate checks a query before compilation. Backends may assume a
// validated query only references the columns in Fields.
package queryir
