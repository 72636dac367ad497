package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/kinda/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Trace    []ir.TraceRecord // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, rec := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", rec.Seq, FormatRecord(rec))
		}
	}

	return buf.String()
}

// FormatRecord renders a trace record on one line:
// kind [object] [event] [-> listener] [args].
func FormatRecord(rec ir.TraceRecord) string {
	var b strings.Builder
	b.WriteString(string(rec.Kind))
	if rec.Object != "" {
		b.WriteString(" " + rec.Object)
	}
	if rec.Event != "" {
		b.WriteString(" " + rec.Event)
	}
	if rec.Listener != "" {
		b.WriteString(" -> " + rec.Listener)
	}
	if len(rec.Args) > 0 {
		b.WriteString(" " + ir.String(rec.Args))
	}
	return b.String()
}

func (m TraceMatch) String() string {
	return FormatRecord(ir.TraceRecord{Kind: m.Kind, Object: m.Object, Event: m.Event, Listener: m.Listener, Args: m.Args})
}

// matches reports whether rec satisfies every field set in m.
func (m TraceMatch) matches(rec ir.TraceRecord) bool {
	if m.Kind != "" && m.Kind != rec.Kind {
		return false
	}
	if m.Object != "" && m.Object != rec.Object {
		return false
	}
	if m.Event != "" && m.Event != rec.Event {
		return false
	}
	if m.Listener != "" && m.Listener != rec.Listener {
		return false
	}
	if m.Args != nil && !reflect.DeepEqual(normalizeArray(m.Args), normalizeArray(rec.Args)) {
		return false
	}
	return true
}

// normalizeArray treats nil and empty args alike.
func normalizeArray(a ir.IRArray) ir.IRArray {
	if len(a) == 0 {
		return ir.IRArray{}
	}
	return a
}

// assertTraceContains checks that at least one record matches.
func assertTraceContains(trace []ir.TraceRecord, a Assertion) error {
	for _, rec := range trace {
		if a.Match.matches(rec) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: a.Match.String(),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the listeners' first calls appear in the
// given order. Other records may come in between.
func assertTraceOrder(trace []ir.TraceRecord, a Assertion) error {
	positions := make(map[string]int)
	for i, rec := range trace {
		if rec.Kind != ir.TraceListener {
			continue
		}
		if _, seen := positions[rec.Listener]; !seen {
			positions[rec.Listener] = i + 1
		}
	}

	for _, name := range a.Listeners {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all listeners called: %v", a.Listeners),
				Actual:   fmt.Sprintf("missing listener: %s", name),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Listeners); i++ {
		prev, curr := a.Listeners[i-1], a.Listeners[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("listeners in order: %v", a.Listeners),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks the exact number of matching records.
func assertTraceCount(trace []ir.TraceRecord, a Assertion) error {
	count := 0
	for _, rec := range trace {
		if a.Match.matches(rec) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s exactly %d times", a.Match, a.Count),
			Actual:   fmt.Sprintf("found %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalValue reads a member of a created object.
func assertFinalValue(h *Harness, a Assertion) error {
	o, ok := h.Object(a.Object)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("object %s", a.Object),
			Actual:   "object was never created",
		}
	}

	v, err := o.Get(a.Member)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s.%s = %s", a.Object, a.Member, ir.String(a.Value.V)),
			Actual:   err.Error(),
		}
	}

	actual, err := ir.FromGo(v)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s.%s = %s", a.Object, a.Member, ir.String(a.Value.V)),
			Actual:   fmt.Sprintf("non-IR value %T", v),
		}
	}
	if !reflect.DeepEqual(actual, a.Value.V) {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s.%s = %s", a.Object, a.Member, ir.String(a.Value.V)),
			Actual:   ir.String(actual),
		}
	}
	return nil
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, h *Harness) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalValue:
			err = assertFinalValue(h, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
