// Package event implements the transactional event manager carried by every
// composed object.
//
// ARCHITECTURE:
//
// Emitter:
// Each object owns an Emitter with its own synchronous and asynchronous
// listener tables. An emitter may have a parent (the class prototype's
// emitter); dispatch runs the object's listeners first, then the parent's.
//
// Session:
// A Session is a reference-counted transactional scope. Begin/End nest;
// only the outermost End flushes. While open:
//   - Emit drops an event whose args equal the last ones recorded for the
//     same (emitter, name).
//   - EmitLater queues the event. Re-queueing identical args moves the
//     pending entry to the tail, so each (emitter, name, args) appears at
//     most once and fires last.
//
// Run wraps Begin/End so the flush and cleanup happen on every exit path.
// DefaultSession is the process-wide session; callers that want isolation
// (tests, the scenario harness) pass their own.
//
// Async fan-out:
// EmitAsync submits every async listener (own, then parent) concurrently
// and joins them. There is no cancellation once submitted beyond the
// context passed to the listeners.
//
// Concurrency:
// One mutex guards a session's counter, scratch and queue. Listener tables
// are guarded per emitter. No lock is held while a listener runs, so the
// outermost End re-checks the depth before each deferred dispatch: a Begin
// from another goroutine during the drain takes over the remaining queue.
package event
