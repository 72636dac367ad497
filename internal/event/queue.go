package event

import "reflect"

// deferred is an emission waiting for the outermost session to close.
type deferred struct {
	target *Emitter
	name   string
	args   []any
}

// deferredQueue is the FIFO of deferred emissions.
//
// The queue holds at most one entry per (target, name, args): re-emitting an
// identical event moves the existing entry to the tail instead of adding a
// second one.
//
// Not safe for concurrent use; the owning Session's mutex guards it.
type deferredQueue struct {
	events []deferred
}

// push appends an entry to the tail.
func (q *deferredQueue) push(d deferred) {
	q.events = append(q.events, d)
}

// remove deletes the first entry matching (target, name, args).
// Returns false if no entry matched.
func (q *deferredQueue) remove(target *Emitter, name string, args []any) bool {
	for i, d := range q.events {
		if d.target == target && d.name == name && reflect.DeepEqual(d.args, args) {
			copy(q.events[i:], q.events[i+1:])
			q.events[len(q.events)-1] = deferred{}
			q.events = q.events[:len(q.events)-1]
			return true
		}
	}
	return false
}

// pop removes and returns the head entry.
func (q *deferredQueue) pop() (deferred, bool) {
	if len(q.events) == 0 {
		return deferred{}, false
	}

	d := q.events[0]

	// Nil out the slot so the emitter and args can be collected.
	q.events[0] = deferred{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return d, true
}

// reset drops every pending entry.
func (q *deferredQueue) reset() {
	clear(q.events)
	q.events = q.events[:0]
}

// Len returns the number of pending entries.
func (q *deferredQueue) Len() int {
	return len(q.events)
}
