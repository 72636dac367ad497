// Package ir holds the data types shared by the manifest compiler, the
// class registry's declarative form, the scenario harness and the trace
// store.
//
// ir imports nothing internal; every other package may import it.
//
// Key constraints:
//   - Values are restricted to null, string, int64, bool, array and object.
//     Floats are rejected so canonical encodings are stable.
//   - JSON tags use snake_case.
//   - Traces carry a logical sequence number, never wall-clock time.
package ir
