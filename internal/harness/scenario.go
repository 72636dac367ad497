package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kinda/internal/ir"
)

// Scenario describes classes, listeners and a sequence of event steps whose
// dispatch trace is recorded and checked.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE manifest files, relative to the scenario file.
	Specs []string `yaml:"specs,omitempty"`

	// Classes declares classes inline. They are defined after Specs.
	Classes []ir.ClassSpec `yaml:"classes,omitempty"`

	// Listeners are attached to a class prototype when the run starts, or to
	// an object right after the step that creates it.
	Listeners []ListenerSpec `yaml:"listeners,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and object state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ListenerSpec declares a named listener. Exactly one of Class or Object is
// set.
type ListenerSpec struct {
	Name   string `yaml:"name"`
	Class  string `yaml:"class,omitempty"`
	Object string `yaml:"object,omitempty"`
	Event  string `yaml:"event"`

	// Async registers the listener for EmitAsync instead of Emit.
	Async bool `yaml:"async,omitempty"`

	// Fail makes the listener return an error with this message.
	Fail string `yaml:"fail,omitempty"`

	// Then lists steps run from inside the listener, before Fail applies.
	// Not allowed on async listeners.
	Then []Step `yaml:"then,omitempty"`
}

// Step is one scenario action.
type Step struct {
	// Do is one of the Step* constants.
	Do string `yaml:"do"`

	// Object names the target object (emit*, create, set).
	Object string `yaml:"object,omitempty"`

	// Class is the class reference to create from.
	Class string `yaml:"class,omitempty"`

	// Event is the event name (emit*).
	Event string `yaml:"event,omitempty"`

	// Args are the emitted or creator arguments.
	Args ir.IRArray `yaml:"args,omitempty"`

	// Member and Value are used by set.
	Member string `yaml:"member,omitempty"`
	Value  *Value `yaml:"value,omitempty"`

	// Error, when set, is a substring the step's error must contain.
	Error string `yaml:"error,omitempty"`
}

// Step kinds.
const (
	StepBegin     = "begin"
	StepEnd       = "end"
	StepEmit      = "emit"
	StepEmitLater = "emit_later"
	StepEmitAsync = "emit_async"
	StepCreate    = "create"
	StepSet       = "set"
)

// Assertion validates trace or final object state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Match selects trace records (trace_contains, trace_count).
	Match *TraceMatch `yaml:"match,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty"`

	// Listeners is the expected listener call order (trace_order).
	Listeners []string `yaml:"listeners,omitempty"`

	// Object, Member and Value check a member after the run (final_value).
	Object string `yaml:"object,omitempty"`
	Member string `yaml:"member,omitempty"`
	Value  *Value `yaml:"value,omitempty"`
}

// Value is a single YAML value converted to IR. Floats are rejected.
type Value struct {
	V ir.IRValue
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	iv, err := ir.FromGo(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	v.V = iv
	return nil
}

// TraceMatch selects trace records. Empty fields match anything; Args, when
// present, must be equal.
type TraceMatch struct {
	Kind     ir.TraceKind `yaml:"kind,omitempty"`
	Object   string       `yaml:"object,omitempty"`
	Event    string       `yaml:"event,omitempty"`
	Listener string       `yaml:"listener,omitempty"`
	Args     ir.IRArray   `yaml:"args,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalValue    = "final_value"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) {
			scenario.Specs[i] = filepath.Join(base, specPath)
		}
	}
	for _, specPath := range scenario.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: spec file not found: %s", specPath)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	created := make(map[string]bool)
	collectCreated(s.Steps, created)
	for _, l := range s.Listeners {
		collectCreated(l.Then, created)
	}

	names := make(map[string]bool)
	for i, l := range s.Listeners {
		if err := validateListener(i, l, created); err != nil {
			return err
		}
		if names[l.Name] {
			return fmt.Errorf("listeners[%d]: duplicate listener name %q", i, l.Name)
		}
		names[l.Name] = true
	}

	if err := validateSteps("steps", s.Steps, created); err != nil {
		return err
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}

	return nil
}

func collectCreated(steps []Step, created map[string]bool) {
	for _, st := range steps {
		if st.Do == StepCreate {
			created[st.Object] = true
		}
	}
}

func validateListener(i int, l ListenerSpec, created map[string]bool) error {
	if l.Name == "" {
		return fmt.Errorf("listeners[%d]: name is required", i)
	}
	if l.Event == "" {
		return fmt.Errorf("listeners[%d]: event is required", i)
	}
	if (l.Class == "") == (l.Object == "") {
		return fmt.Errorf("listeners[%d]: exactly one of class or object is required", i)
	}
	if l.Object != "" && !created[l.Object] {
		return fmt.Errorf("listeners[%d]: object %q is never created", i, l.Object)
	}
	if l.Async && len(l.Then) > 0 {
		return fmt.Errorf("listeners[%d]: async listeners cannot run steps", i)
	}
	return validateSteps(fmt.Sprintf("listeners[%d].then", i), l.Then, created)
}

func validateSteps(field string, steps []Step, created map[string]bool) error {
	for i, st := range steps {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		switch st.Do {
		case StepBegin, StepEnd:
		case StepEmit, StepEmitLater, StepEmitAsync:
			if st.Object == "" || st.Event == "" {
				return fmt.Errorf("%s: %s requires object and event", prefix, st.Do)
			}
			if !created[st.Object] {
				return fmt.Errorf("%s: object %q is never created", prefix, st.Object)
			}
		case StepCreate:
			if st.Object == "" || st.Class == "" {
				return fmt.Errorf("%s: create requires object and class", prefix)
			}
		case StepSet:
			if st.Object == "" || st.Member == "" {
				return fmt.Errorf("%s: set requires object and member", prefix)
			}
			if st.Value == nil {
				return fmt.Errorf("%s: set requires a value", prefix)
			}
		case "":
			return fmt.Errorf("%s: do is required", prefix)
		default:
			return fmt.Errorf("%s: unknown step %q", prefix, st.Do)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Match == nil {
			return fmt.Errorf("assertions[%d]: match is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Listeners) == 0 {
			return fmt.Errorf("assertions[%d]: listeners list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Match == nil {
			return fmt.Errorf("assertions[%d]: match is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalValue:
		if a.Object == "" || a.Member == "" {
			return fmt.Errorf("assertions[%d]: object and member are required for final_value", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for final_value", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
