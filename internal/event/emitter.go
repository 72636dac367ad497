package event

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Listener handles a synchronous event. src is the owner of the emitter the
// event was emitted on, even when the listener is registered on a parent.
type Listener func(src any, args ...any) error

// AsyncListener handles an event emitted with EmitAsync.
type AsyncListener func(ctx context.Context, src any, args ...any) error

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

var nextListenerID atomic.Uint64

// Target is implemented by anything that carries an Emitter.
type Target interface {
	Events() *Emitter
}

type syncEntry struct {
	id ListenerID
	fn Listener
}

type asyncEntry struct {
	id ListenerID
	fn AsyncListener
}

// Emitter holds the listener tables of one object.
//
// Listener tables belong to the emitter, not to a class: registering on a
// class prototype's emitter is how class-level listeners are declared. An
// emitter whose parent is set also dispatches to the parent's listeners
// after its own.
type Emitter struct {
	owner   any
	session *Session
	parent  *Emitter

	mu        sync.RWMutex
	listeners map[string][]syncEntry
	async     map[string][]asyncEntry
}

// NewEmitter creates an emitter for owner. A nil session selects
// DefaultSession. parent may be nil.
func NewEmitter(owner any, session *Session, parent *Emitter) *Emitter {
	if session == nil {
		session = DefaultSession()
	}
	return &Emitter{
		owner:   owner,
		session: session,
		parent:  parent,
	}
}

// Events returns e, so an Emitter is itself a Target.
func (e *Emitter) Events() *Emitter {
	return e
}

// Owner returns the object the emitter belongs to.
func (e *Emitter) Owner() any {
	return e.owner
}

// Session returns the session the emitter participates in.
func (e *Emitter) Session() *Session {
	return e.session
}

// Parent returns the emitter consulted after this one, or nil.
func (e *Emitter) Parent() *Emitter {
	return e.parent
}

// On registers a synchronous listener for name.
func (e *Emitter) On(name string, fn Listener) ListenerID {
	id := ListenerID(nextListenerID.Add(1))
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string][]syncEntry)
	}
	e.listeners[name] = append(e.listeners[name], syncEntry{id: id, fn: fn})
	return id
}

// Off removes the given listeners for name. With no ids, every listener for
// name is removed. Parent listeners are not affected.
func (e *Emitter) Off(name string, ids ...ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(ids) == 0 {
		delete(e.listeners, name)
		return
	}
	entries, ok := e.listeners[name]
	if !ok {
		return
	}
	entries = slices.DeleteFunc(entries, func(l syncEntry) bool {
		return slices.Contains(ids, l.id)
	})
	if len(entries) == 0 {
		delete(e.listeners, name)
		return
	}
	e.listeners[name] = entries
}

// OnAsync registers an asynchronous listener for name.
func (e *Emitter) OnAsync(name string, fn AsyncListener) ListenerID {
	id := ListenerID(nextListenerID.Add(1))
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.async == nil {
		e.async = make(map[string][]asyncEntry)
	}
	e.async[name] = append(e.async[name], asyncEntry{id: id, fn: fn})
	return id
}

// OffAsync removes asynchronous listeners the same way Off does.
func (e *Emitter) OffAsync(name string, ids ...ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(ids) == 0 {
		delete(e.async, name)
		return
	}
	entries, ok := e.async[name]
	if !ok {
		return
	}
	entries = slices.DeleteFunc(entries, func(l asyncEntry) bool {
		return slices.Contains(ids, l.id)
	})
	if len(entries) == 0 {
		delete(e.async, name)
		return
	}
	e.async[name] = entries
}

// ListenerCount returns the number of synchronous listeners registered
// directly on e for name.
func (e *Emitter) ListenerCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[name])
}

// Emit dispatches name immediately. While a session is open, an emission
// whose args equal the last ones recorded for name on this emitter is
// dropped.
func (e *Emitter) Emit(name string, args ...any) error {
	args = normalizeArgs(args)
	if !e.session.admit(e, name, args) {
		return nil
	}
	return e.dispatch(name, args)
}

// EmitLater defers name until the outermost session closes. An identical
// pending emission is moved to the tail of the queue rather than duplicated.
// Without an open session it dispatches immediately.
func (e *Emitter) EmitLater(name string, args ...any) error {
	args = normalizeArgs(args)
	if e.session.enqueue(e, name, args) {
		return nil
	}
	return e.dispatch(name, args)
}

// EmitAsync calls every async listener for name, this emitter's first and
// then the parent's, concurrently, and waits for all of them. The first
// error is returned and cancels the context passed to the others.
func (e *Emitter) EmitAsync(ctx context.Context, name string, args ...any) error {
	args = normalizeArgs(args)
	listeners := e.asyncListeners(name)
	if e.parent != nil {
		listeners = append(listeners, e.parent.asyncListeners(name)...)
	}
	if len(listeners) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		g.Go(func() error {
			if err := l(gctx, e.owner, args...); err != nil {
				return &ListenerError{Event: name, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// dispatch calls e's listeners, then the parent's, with e's owner as source.
func (e *Emitter) dispatch(name string, args []any) error {
	if err := e.call(name, e.owner, args); err != nil {
		return err
	}
	if e.parent != nil {
		return e.parent.call(name, e.owner, args)
	}
	return nil
}

func (e *Emitter) call(name string, src any, args []any) error {
	for _, fn := range e.syncListeners(name) {
		if err := fn(src, args...); err != nil {
			return &ListenerError{Event: name, Err: err}
		}
	}
	return nil
}

// syncListeners snapshots the listeners so they run without the lock held.
func (e *Emitter) syncListeners(name string) []Listener {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entries := e.listeners[name]
	fns := make([]Listener, len(entries))
	for i, l := range entries {
		fns[i] = l.fn
	}
	return fns
}

func (e *Emitter) asyncListeners(name string) []AsyncListener {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entries := e.async[name]
	fns := make([]AsyncListener, len(entries))
	for i, l := range entries {
		fns[i] = l.fn
	}
	return fns
}

func normalizeArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	return args
}
