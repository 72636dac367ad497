package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/kinda/internal/class"
	"github.com/roach88/kinda/internal/compiler"
	"github.com/roach88/kinda/internal/event"
	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/store"
	"github.com/roach88/kinda/internal/testutil"
	"github.com/roach88/kinda/internal/version"
)

// Options configures a scenario run.
type Options struct {
	// Store receives the trace. Nil opens a private in-memory store.
	Store *store.Store

	// RunID keys the trace in the store. Defaults to the scenario name.
	RunID string

	// Logger receives class and session diagnostics. Defaults to discard.
	Logger *slog.Logger
}

// Harness executes one scenario against a fresh registry and session.
// Object IDs and trace sequence numbers are deterministic.
type Harness struct {
	ctx      context.Context
	registry *class.Registry
	rec      *recorder
	logger   *slog.Logger

	listeners map[string][]ListenerSpec // by object name
	objects   map[string]*class.Object
	names     map[*class.Object]string
	creating  string
}

// Run executes a scenario in a private in-memory store.
func Run(scenario *Scenario) (*Result, error) {
	return RunWith(context.Background(), scenario, Options{})
}

// RunWith executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile and validate the scenario's classes, then define them
//  2. Attach class listeners
//  3. Execute steps, checking each step's expected error
//  4. Write the trace to the store and read it back
//  5. Evaluate assertions
//
// A returned error means the scenario could not be set up or its trace
// could not be stored; step and assertion failures are reported in the
// Result.
func RunWith(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	runID := opts.RunID
	if runID == "" {
		runID = scenario.Name
	}

	session := event.NewSession(event.WithSessionLogger(logger))
	h := &Harness{
		ctx: ctx,
		registry: class.NewRegistry(
			class.WithSession(session),
			class.WithLogger(logger),
			class.WithIDGenerator(testutil.NewSequenceGenerator("obj")),
		),
		rec:       newRecorder(),
		logger:    logger,
		listeners: make(map[string][]ListenerSpec),
		objects:   make(map[string]*class.Object),
		names:     make(map[*class.Object]string),
	}

	if err := h.defineClasses(scenario); err != nil {
		return nil, err
	}
	if err := h.attachListeners(scenario.Listeners); err != nil {
		return nil, err
	}

	result := NewResult()
	result.RunID = runID
	for i, step := range scenario.Steps {
		if err := h.runStep(fmt.Sprintf("steps[%d]", i), step); err != nil {
			result.AddError(err.Error())
		}
	}
	if session.Open() {
		result.AddError(fmt.Sprintf("event session still open at depth %d after last step", session.Depth()))
	}

	if err := st.WriteRun(ctx, store.Run{ID: runID, Name: scenario.Name}); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	if err := st.WriteTraces(ctx, runID, h.rec.snapshot()); err != nil {
		return nil, fmt.Errorf("failed to record trace: %w", err)
	}
	trace, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = trace

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h) {
		result.AddError(msg)
	}

	return result, nil
}

// Object returns a created object by scenario name.
func (h *Harness) Object(name string) (*class.Object, bool) {
	o, ok := h.objects[name]
	return o, ok
}

func (h *Harness) defineClasses(scenario *Scenario) error {
	var specs []ir.ClassSpec
	cctx := cuecontext.New()
	for _, path := range scenario.Specs {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read spec: %w", err)
		}
		compiled, err := compiler.CompileManifest(cctx.CompileBytes(data, cue.Filename(path)))
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", path, err)
		}
		specs = append(specs, compiled...)
	}
	specs = append(specs, scenario.Classes...)

	if verrs := compiler.Validate(specs); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return fmt.Errorf("invalid classes: %w", errors.Join(errs...))
	}

	if _, err := h.registry.Define(specs); err != nil {
		return fmt.Errorf("failed to define classes: %w", err)
	}
	return nil
}

func (h *Harness) lookup(ref string) (*class.Class, error) {
	r, err := version.ParseRef(ref)
	if err != nil {
		return nil, err
	}
	c, ok := h.registry.Lookup(r)
	if !ok {
		return nil, fmt.Errorf("class %q is not defined", ref)
	}
	return c, nil
}

// attachListeners registers class listeners on their prototypes and keeps
// object listeners until the object is created.
func (h *Harness) attachListeners(specs []ListenerSpec) error {
	for _, l := range specs {
		if l.Object != "" {
			h.listeners[l.Object] = append(h.listeners[l.Object], l)
			continue
		}
		c, err := h.lookup(l.Class)
		if err != nil {
			return fmt.Errorf("listener %s: %w", l.Name, err)
		}
		h.attach(c.Prototype().Events(), l)
	}
	return nil
}

func (h *Harness) attach(e *event.Emitter, l ListenerSpec) {
	if l.Async {
		e.OnAsync(l.Event, func(_ context.Context, src any, args ...any) error {
			return h.onEvent(l, src, args)
		})
		return
	}
	e.On(l.Event, func(src any, args ...any) error {
		return h.onEvent(l, src, args)
	})
}

func (h *Harness) onEvent(l ListenerSpec, src any, args []any) error {
	arr, err := ir.ArrayFromGo(args)
	if err != nil {
		return fmt.Errorf("listener %s: %w", l.Name, err)
	}
	h.rec.add(ir.TraceRecord{
		Kind:     ir.TraceListener,
		Object:   h.nameOf(src),
		Event:    l.Event,
		Listener: l.Name,
		Args:     arr,
	})

	for i, step := range l.Then {
		if err := h.runStep(fmt.Sprintf("%s.then[%d]", l.Name, i), step); err != nil {
			return err
		}
	}
	if l.Fail != "" {
		return errors.New(l.Fail)
	}
	return nil
}

func (h *Harness) nameOf(src any) string {
	if o, ok := src.(*class.Object); ok {
		if name, ok := h.names[o]; ok {
			return name
		}
		if h.creating != "" {
			return h.creating
		}
	}
	return fmt.Sprintf("%v", src)
}

// runStep executes a step and checks it against the step's expected error.
// The returned error describes a mismatch.
func (h *Harness) runStep(field string, step Step) error {
	err := h.execute(step)
	switch {
	case step.Error == "" && err != nil:
		return fmt.Errorf("%s: %s: %w", field, step.Do, err)
	case step.Error != "" && err == nil:
		return fmt.Errorf("%s: %s: expected error containing %q, got none", field, step.Do, step.Error)
	case step.Error != "" && !strings.Contains(err.Error(), step.Error):
		return fmt.Errorf("%s: %s: expected error containing %q, got %q", field, step.Do, step.Error, err.Error())
	}
	return nil
}

func (h *Harness) execute(step Step) error {
	session := h.registry.Session()
	switch step.Do {
	case StepBegin:
		h.rec.add(ir.TraceRecord{Kind: ir.TraceBegin})
		session.Begin()
		return nil

	case StepEnd:
		h.rec.add(ir.TraceRecord{Kind: ir.TraceEnd})
		return session.End()

	case StepEmit, StepEmitLater, StepEmitAsync:
		o, ok := h.objects[step.Object]
		if !ok {
			return fmt.Errorf("object %q does not exist", step.Object)
		}
		rec := ir.TraceRecord{Object: step.Object, Event: step.Event, Args: step.Args}
		switch step.Do {
		case StepEmit:
			rec.Kind = ir.TraceEmit
			h.rec.add(rec)
			return o.Emit(step.Event, step.Args.Values()...)
		case StepEmitLater:
			rec.Kind = ir.TraceDefer
			h.rec.add(rec)
			return o.EmitLater(step.Event, step.Args.Values()...)
		default:
			rec.Kind = ir.TraceAsync
			h.rec.add(rec)
			h.rec.beginAsync()
			defer h.rec.endAsync()
			return o.EmitAsync(h.ctx, step.Event, step.Args.Values()...)
		}

	case StepCreate:
		return h.create(step)

	case StepSet:
		o, ok := h.objects[step.Object]
		if !ok {
			return fmt.Errorf("object %q does not exist", step.Object)
		}
		return o.Set(step.Member, ir.ToGo(step.Value.V))
	}
	return fmt.Errorf("unknown step %q", step.Do)
}

func (h *Harness) create(step Step) error {
	if _, exists := h.objects[step.Object]; exists {
		return fmt.Errorf("object %q already exists", step.Object)
	}
	c, err := h.lookup(step.Class)
	if err != nil {
		return err
	}

	h.rec.add(ir.TraceRecord{Kind: ir.TraceCreate, Object: step.Object, Event: c.String(), Args: step.Args})

	h.creating = step.Object
	o, err := c.Create(step.Args.Values()...)
	h.creating = ""
	if err != nil {
		return err
	}

	h.objects[step.Object] = o
	h.names[o] = step.Object
	for _, l := range h.listeners[step.Object] {
		h.attach(o.Events(), l)
	}
	h.logger.Debug("object created", "object", step.Object, "class", c.String(), "id", o.ID())
	return nil
}
