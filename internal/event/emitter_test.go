package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects dispatched events as "name:args" strings.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) listener(name string) Listener {
	return func(src any, args ...any) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, fmt.Sprintf("%s:%v", name, args))
		return nil
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestEmitDispatchesOwnThenParent(t *testing.T) {
	s := NewSession()
	proto := NewEmitter("proto", s, nil)
	obj := NewEmitter("obj", s, proto)

	var order []string
	var sources []any
	proto.On("changed", func(src any, args ...any) error {
		order = append(order, "proto")
		sources = append(sources, src)
		return nil
	})
	obj.On("changed", func(src any, args ...any) error {
		order = append(order, "obj")
		sources = append(sources, src)
		return nil
	})

	require.NoError(t, obj.Emit("changed"))

	assert.Equal(t, []string{"obj", "proto"}, order)
	assert.Equal(t, []any{"obj", "obj"}, sources, "parent listeners see the emitting object as source")
}

func TestEmitListenersRunInRegistrationOrder(t *testing.T) {
	e := NewEmitter(nil, NewSession(), nil)
	var order []int
	for i := range 3 {
		e.On("x", func(any, ...any) error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, e.Emit("x"))
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestEmitDedupWithinSession(t *testing.T) {
	s := NewSession()
	e := NewEmitter(nil, s, nil)
	r := &recorder{}
	e.On("saved", r.listener("saved"))

	s.Begin()
	require.NoError(t, e.Emit("saved", 1, "a"))
	require.NoError(t, e.Emit("saved", 1, "a"))
	require.NoError(t, e.Emit("saved", 2, "a"))
	require.NoError(t, e.Emit("saved", 1, "a"))
	require.NoError(t, s.End())

	assert.Equal(t, []string{"saved:[1 a]", "saved:[2 a]", "saved:[1 a]"}, r.got())

	// Outside a session nothing is suppressed.
	require.NoError(t, e.Emit("saved", 1, "a"))
	require.NoError(t, e.Emit("saved", 1, "a"))
	assert.Len(t, r.got(), 5)
}

func TestEmitDedupComparesValues(t *testing.T) {
	s := NewSession()
	e := NewEmitter(nil, s, nil)
	r := &recorder{}
	e.On("x", r.listener("x"))

	s.Begin()
	require.NoError(t, e.Emit("x", map[string]any{"k": []int{1, 2}}))
	require.NoError(t, e.Emit("x", map[string]any{"k": []int{1, 2}}))
	require.NoError(t, s.End())

	assert.Len(t, r.got(), 1)
}

func TestEmitDedupIsPerEmitter(t *testing.T) {
	s := NewSession()
	a := NewEmitter("a", s, nil)
	b := NewEmitter("b", s, nil)
	r := &recorder{}
	a.On("x", r.listener("a"))
	b.On("x", r.listener("b"))

	require.NoError(t, s.Run(func() error {
		require.NoError(t, a.Emit("x"))
		require.NoError(t, b.Emit("x"))
		require.NoError(t, a.Emit("x"))
		assert.Equal(t, 2, s.Participants())
		return nil
	}))

	assert.Equal(t, []string{"a:[]", "b:[]"}, r.got())
	assert.Equal(t, 0, s.Participants())
}

func TestEmitLaterWithoutSessionIsImmediate(t *testing.T) {
	e := NewEmitter(nil, NewSession(), nil)
	r := &recorder{}
	e.On("x", r.listener("x"))

	require.NoError(t, e.EmitLater("x", 1))
	assert.Equal(t, []string{"x:[1]"}, r.got())
}

func TestEmitLaterDefersUntilOutermostClose(t *testing.T) {
	s := NewSession()
	e := NewEmitter(nil, s, nil)
	r := &recorder{}
	e.On("a", r.listener("a"))
	e.On("b", r.listener("b"))

	s.Begin()
	s.Begin()
	require.NoError(t, e.EmitLater("a"))
	require.NoError(t, e.EmitLater("b"))
	require.NoError(t, s.End())
	assert.Empty(t, r.got(), "closing an inner level must not flush")
	assert.Equal(t, 2, s.Pending())

	require.NoError(t, s.End())
	assert.Equal(t, []string{"a:[]", "b:[]"}, r.got())
	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.Open())
}

func TestEmitLaterRepeatMovesToTail(t *testing.T) {
	s := NewSession()
	e := NewEmitter(nil, s, nil)
	r := &recorder{}
	e.On("a", r.listener("a"))
	e.On("b", r.listener("b"))

	s.Begin()
	require.NoError(t, e.EmitLater("a", 1))
	require.NoError(t, e.EmitLater("b"))
	require.NoError(t, e.EmitLater("a", 1))
	assert.Equal(t, 2, s.Pending(), "identical re-emission is not duplicated")
	require.NoError(t, s.End())

	assert.Equal(t, []string{"b:[]", "a:[1]"}, r.got())
}

func TestEmitLaterDifferentArgsQueuesBoth(t *testing.T) {
	s := NewSession()
	e := NewEmitter(nil, s, nil)
	r := &recorder{}
	e.On("a", r.listener("a"))

	s.Begin()
	require.NoError(t, e.EmitLater("a", 1))
	require.NoError(t, e.EmitLater("a", 2))
	require.NoError(t, s.End())

	assert.Equal(t, []string{"a:[1]", "a:[2]"}, r.got())
}

func TestDeferredListenerMayEmitLaterDuringFlush(t *testing.T) {
	s := NewSession()
	e := NewEmitter(nil, s, nil)
	r := &recorder{}
	e.On("first", func(src any, args ...any) error {
		return e.EmitLater("second")
	})
	e.On("second", r.listener("second"))

	s.Begin()
	require.NoError(t, e.EmitLater("first"))
	require.NoError(t, s.End())

	assert.Equal(t, []string{"second:[]"}, r.got())
}

func TestEndWithoutBeginFails(t *testing.T) {
	s := NewSession()
	err := s.End()
	require.Error(t, err)
	assert.True(t, IsSessionNotOpen(err))

	s.Begin()
	require.NoError(t, s.End())
	assert.True(t, IsSessionNotOpen(s.End()))
}

func TestRunClosesSessionOnError(t *testing.T) {
	s := NewSession()
	e := NewEmitter(nil, s, nil)
	r := &recorder{}
	e.On("x", r.listener("x"))

	boom := errors.New("boom")
	err := s.Run(func() error {
		require.NoError(t, e.EmitLater("x"))
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"x:[]"}, r.got(), "deferred events still flush")
	assert.Equal(t, 0, s.Depth())
}

func TestRunClosesSessionOnPanic(t *testing.T) {
	s := NewSession()

	assert.Panics(t, func() {
		_ = s.Run(func() error {
			panic("boom")
		})
	})
	assert.Equal(t, 0, s.Depth())
}

func TestDeferredListenerErrorStillClosesSession(t *testing.T) {
	s := NewSession()
	e := NewEmitter(nil, s, nil)
	boom := errors.New("boom")
	e.On("a", func(any, ...any) error { return boom })
	r := &recorder{}
	e.On("b", r.listener("b"))

	s.Begin()
	require.NoError(t, e.EmitLater("a"))
	require.NoError(t, e.EmitLater("b"))
	err := s.End()

	require.ErrorIs(t, err, boom)
	var le *ListenerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "a", le.Event)
	assert.Empty(t, r.got())
	assert.False(t, s.Open())
	assert.Equal(t, 0, s.Pending())
}

func TestBeginDuringFlushTakesOverQueue(t *testing.T) {
	s := NewSession()
	a := NewEmitter("a", s, nil)
	b := NewEmitter("b", s, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	a.On("slow", func(any, ...any) error {
		close(entered)
		<-release
		return nil
	})
	r := &recorder{}
	b.On("x", r.listener("x"))

	s.Begin()
	require.NoError(t, a.EmitLater("slow"))
	done := make(chan error, 1)
	go func() { done <- s.End() }()

	<-entered
	s.Begin()
	require.NoError(t, b.EmitLater("x"))
	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, r.got(), "deferred event must wait for the open session")
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, 1, s.Pending())

	require.NoError(t, s.End())
	assert.Equal(t, []string{"x:[]"}, r.got())
	assert.False(t, s.Open())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, s.Participants())
}

func TestBeginDuringFlushKeepsDedupState(t *testing.T) {
	s := NewSession()
	a := NewEmitter("a", s, nil)
	b := NewEmitter("b", s, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	a.On("slow", func(any, ...any) error {
		close(entered)
		<-release
		return nil
	})
	r := &recorder{}
	b.On("x", r.listener("x"))

	s.Begin()
	require.NoError(t, a.EmitLater("slow"))
	done := make(chan error, 1)
	go func() { done <- s.End() }()

	<-entered
	s.Begin()
	require.NoError(t, b.Emit("x", 1))
	close(release)
	require.NoError(t, <-done)

	require.NoError(t, b.Emit("x", 1))
	assert.Equal(t, []string{"x:[1]"}, r.got(), "repeat emission is still deduplicated")
	require.NoError(t, s.End())
}

func TestListenerErrorStopsDispatch(t *testing.T) {
	e := NewEmitter(nil, NewSession(), nil)
	boom := errors.New("boom")
	called := false
	e.On("x", func(any, ...any) error { return boom })
	e.On("x", func(any, ...any) error {
		called = true
		return nil
	})

	require.ErrorIs(t, e.Emit("x"), boom)
	assert.False(t, called)
}

func TestOffRemovesListeners(t *testing.T) {
	e := NewEmitter(nil, NewSession(), nil)
	r := &recorder{}
	id := e.On("x", r.listener("first"))
	e.On("x", r.listener("second"))

	e.Off("x", id)
	require.NoError(t, e.Emit("x"))
	assert.Equal(t, []string{"second:[]"}, r.got())

	e.Off("x")
	assert.Equal(t, 0, e.ListenerCount("x"))
	require.NoError(t, e.Emit("x"))
	assert.Len(t, r.got(), 1)

	// Removing from an unknown name is a no-op.
	e.Off("missing", id)
}

func TestOffWithIDOnFreshEmitter(t *testing.T) {
	s := NewSession()
	other := NewEmitter("other", s, nil)
	id := other.On("x", func(any, ...any) error { return nil })
	asyncID := other.OnAsync("x", func(context.Context, any, ...any) error { return nil })

	e := NewEmitter("obj", s, nil)
	assert.NotPanics(t, func() { e.Off("x", id) })
	assert.NotPanics(t, func() { e.OffAsync("x", asyncID) })
	assert.Equal(t, 0, e.ListenerCount("x"))
	assert.Equal(t, 1, other.ListenerCount("x"))
}

func TestOffLastListenerDropsName(t *testing.T) {
	e := NewEmitter(nil, NewSession(), nil)
	id := e.On("x", func(any, ...any) error { return nil })
	asyncID := e.OnAsync("x", func(context.Context, any, ...any) error { return nil })

	e.Off("x", id)
	e.OffAsync("x", asyncID)

	_, hasSync := e.listeners["x"]
	_, hasAsync := e.async["x"]
	assert.False(t, hasSync)
	assert.False(t, hasAsync)
	assert.NoError(t, e.EmitAsync(context.Background(), "x"))
}

func TestOffDoesNotTouchParent(t *testing.T) {
	proto := NewEmitter(nil, NewSession(), nil)
	obj := NewEmitter(nil, proto.Session(), proto)
	r := &recorder{}
	proto.On("x", r.listener("proto"))

	obj.Off("x")
	require.NoError(t, obj.Emit("x"))
	assert.Equal(t, []string{"proto:[]"}, r.got())
}

func TestEmitAsyncRunsListenersConcurrently(t *testing.T) {
	s := NewSession()
	proto := NewEmitter("proto", s, nil)
	obj := NewEmitter("obj", s, proto)

	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	go func() {
		started.Wait()
		close(release)
	}()

	wait := func(ctx context.Context, src any, args ...any) error {
		started.Done()
		select {
		case <-release:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("listeners ran sequentially")
		}
	}
	obj.OnAsync("loaded", wait)
	proto.OnAsync("loaded", wait)

	require.NoError(t, obj.EmitAsync(context.Background(), "loaded"))
}

func TestEmitAsyncJoinsAndPassesArgs(t *testing.T) {
	s := NewSession()
	proto := NewEmitter("proto", s, nil)
	obj := NewEmitter("obj", s, proto)

	var mu sync.Mutex
	seen := map[string][]any{}
	record := func(tag string) AsyncListener {
		return func(ctx context.Context, src any, args ...any) error {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			defer mu.Unlock()
			seen[tag] = append([]any{src}, args...)
			return nil
		}
	}
	obj.OnAsync("loaded", record("own"))
	proto.OnAsync("loaded", record("inherited"))

	require.NoError(t, obj.EmitAsync(context.Background(), "loaded", 42))

	assert.Equal(t, []any{"obj", 42}, seen["own"])
	assert.Equal(t, []any{"obj", 42}, seen["inherited"])
}

func TestEmitAsyncReturnsListenerError(t *testing.T) {
	e := NewEmitter(nil, NewSession(), nil)
	boom := errors.New("boom")
	e.OnAsync("x", func(context.Context, any, ...any) error { return nil })
	e.OnAsync("x", func(context.Context, any, ...any) error { return boom })

	err := e.EmitAsync(context.Background(), "x")
	require.ErrorIs(t, err, boom)
}

func TestEmitAsyncWithoutListeners(t *testing.T) {
	e := NewEmitter(nil, NewSession(), nil)
	id := e.OnAsync("x", func(context.Context, any, ...any) error {
		return errors.New("should not run")
	})
	e.OffAsync("x", id)

	assert.NoError(t, e.EmitAsync(context.Background(), "x"))
	assert.NoError(t, e.EmitAsync(context.Background(), "never-registered"))
}

func TestNilSessionUsesDefault(t *testing.T) {
	e := NewEmitter(nil, nil, nil)
	assert.Same(t, DefaultSession(), e.Session())
}
