package event

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// Session is a reference-counted transactional scope for event emission.
//
// While a session is open, Emit suppresses re-emission of an event whose
// arguments equal the last ones recorded for the same emitter, and EmitLater
// queues events instead of dispatching them. When the outermost session
// closes, the queue is drained in FIFO order and all per-emitter scratch is
// released.
//
// A single mutex guards the counter, the scratch and the queue. Listeners
// are never called with it held.
type Session struct {
	mu      sync.Mutex
	count   int
	scratch map[*Emitter]map[string][]any
	queue   deferredQueue
	logger  *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger used for flush diagnostics.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession creates a closed session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		scratch: make(map[*Emitter]map[string][]any),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultSession = NewSession()

// DefaultSession returns the process-wide session shared by emitters that
// were not given one explicitly.
func DefaultSession() *Session {
	return defaultSession
}

// Begin opens the session or nests one level deeper.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

// End closes one level. Closing the outermost level first dispatches every
// deferred event, then drops all scratch state.
//
// The depth is checked under the lock before each deferred dispatch.
// Listeners may nest Begin/End freely since they return to depth 1. If
// another caller opens a level while the queue drains, draining stops and
// that caller's closing End becomes the outermost one: the remaining queue
// and scratch stay with its session and nothing is dispatched while it is
// open.
//
// If a deferred listener fails, the remaining queue is discarded, the
// session still closes and the listener error is returned. When another
// caller has opened a level by then, its queue is kept and only the error
// is returned.
func (s *Session) End() error {
	s.mu.Lock()
	if s.count == 0 {
		s.mu.Unlock()
		return &SessionError{Code: ErrCodeSessionNotOpen, Message: "cannot end a session that is not open"}
	}
	if s.count > 1 {
		s.count--
		s.mu.Unlock()
		return nil
	}

	// Listeners may emit more deferred events while we drain; the count is
	// still 1 so those land on this queue and are dispatched here too.
	flushed := 0
	for {
		if s.count > 1 {
			s.count--
			pending := s.queue.Len()
			s.mu.Unlock()
			s.logger.Debug("event session handed off", "flushed", flushed, "pending", pending)
			return nil
		}
		d, ok := s.queue.pop()
		if !ok {
			break
		}
		s.mu.Unlock()
		flushed++
		if err := d.target.dispatch(d.name, d.args); err != nil {
			s.mu.Lock()
			if s.count > 1 {
				s.count--
				s.mu.Unlock()
				return err
			}
			dropped := s.closeLocked()
			s.mu.Unlock()
			s.logger.Debug("event session closed", "flushed", flushed, "dropped", dropped, "error", err)
			return err
		}
		s.mu.Lock()
	}
	s.closeLocked()
	s.mu.Unlock()

	s.logger.Debug("event session closed", "flushed", flushed)
	return nil
}

// closeLocked drops the queue and scratch and closes the outermost level,
// returning how many deferred events were discarded. Callers hold s.mu.
func (s *Session) closeLocked() int {
	dropped := s.queue.Len()
	s.queue.reset()
	clear(s.scratch)
	s.count--
	return dropped
}

// Run opens a session, calls fn, and closes the session on every exit path,
// panics included. fn's error is returned, joined with any error from End.
func (s *Session) Run(fn func() error) (err error) {
	s.Begin()
	defer func() {
		if endErr := s.End(); endErr != nil {
			err = errors.Join(err, endErr)
		}
	}()
	return fn()
}

// Open reports whether at least one session level is open.
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count > 0
}

// Depth returns the current nesting level.
func (s *Session) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Pending returns the number of deferred events waiting for the outermost
// close.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Participants returns the number of emitters holding scratch state.
func (s *Session) Participants() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scratch)
}

// recordLocked stores args as the latest emission of name for e and reports
// whether they equal the previously recorded ones. Callers hold s.mu and have
// checked that the session is open.
func (s *Session) recordLocked(e *Emitter, name string, args []any) (same bool) {
	sc, ok := s.scratch[e]
	if !ok {
		sc = make(map[string][]any)
		s.scratch[e] = sc
	}
	if prev, seen := sc[name]; seen && reflect.DeepEqual(prev, args) {
		return true
	}
	sc[name] = slices.Clone(args)
	return false
}

// admit decides whether an immediate emission should be dispatched.
func (s *Session) admit(e *Emitter, name string, args []any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return true
	}
	return !s.recordLocked(e, name, args)
}

// enqueue queues an emission. Returns false when no session is open and the
// caller must dispatch immediately.
func (s *Session) enqueue(e *Emitter, name string, args []any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return false
	}
	if s.recordLocked(e, name, args) {
		s.queue.remove(e, name, args)
	}
	s.queue.push(deferred{target: e, name: name, args: slices.Clone(args)})
	return true
}
