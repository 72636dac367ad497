// Package harness runs event scenarios against freshly defined classes and
// records the resulting dispatch trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: deferred_flush
//	description: "Deferred events run when the outermost session closes"
//	specs:
//	  - classes.cue            # optional CUE manifests, relative paths
//	classes:                   # optional inline class specs
//	  - name: Movie
//	    version: 0.1.0
//	    values: { title: Untitled }
//	listeners:
//	  - name: log
//	    class: Movie           # or object: movie
//	    event: change
//	    then:                  # optional steps run inside the listener
//	      - do: emit_later
//	        object: movie
//	        event: saved
//	steps:
//	  - do: create
//	    object: movie
//	    class: Movie
//	  - do: begin
//	  - do: emit
//	    object: movie
//	    event: change
//	    args: [title]
//	  - do: end
//	  - do: end
//	    error: SESSION_NOT_OPEN  # expected error substring
//	assertions:
//	  - type: trace_count
//	    match: { kind: listener, listener: log }
//	    count: 1
//
// # Steps
//
// begin and end open and close a session level; emit, emit_later and
// emit_async emit on an object; create builds an object with Class.Create;
// set assigns a member.
//
// # Trace
//
// Every step and every listener call appends an ir.TraceRecord. Sequence
// numbers come from a logical clock, object IDs from a sequence generator,
// and async listener records are ordered by listener name, so the same
// scenario always produces the same trace. The trace is written to a
// SQLite store and read back before assertions run.
//
// # Assertion Types
//
//   - trace_contains: a record matches
//   - trace_order: listeners were first called in the given order
//   - trace_count: exactly N records match
//   - final_value: an object member has the given value after the run
//
// Golden snapshots of traces live in testdata/golden and are compared with
// goldie.
package harness
