package ir

// Version of the manifest and trace formats.
const SchemaVersion = "1"

// ClassSpec is the declarative form of a class.
//
// Extends and Includes name other classes as "Name" or "Name@version".
// An empty Extends means the registry's root class.
type ClassSpec struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version,omitempty" yaml:"version,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Extends     string   `json:"extends,omitempty" yaml:"extends,omitempty"`
	Includes    []string `json:"includes,omitempty" yaml:"includes,omitempty"`
	Values      IRObject `json:"values,omitempty" yaml:"values,omitempty"`
	Statics     IRObject `json:"statics,omitempty" yaml:"statics,omitempty"`
}

// Manifest is a set of class specs loaded together.
type Manifest struct {
	Classes []ClassSpec `json:"classes" yaml:"classes"`
}

// TraceKind classifies a trace record.
type TraceKind string

const (
	// TraceEmit is a synchronous emission that reached dispatch.
	TraceEmit TraceKind = "emit"
	// TraceDefer is an emission queued until the session closes.
	TraceDefer TraceKind = "defer"
	// TraceAsync is an asynchronous emission.
	TraceAsync TraceKind = "async"
	// TraceListener is one listener invocation.
	TraceListener TraceKind = "listener"
	// TraceBegin and TraceEnd mark session boundaries.
	TraceBegin TraceKind = "begin"
	TraceEnd   TraceKind = "end"
	// TraceCreate is an object construction.
	TraceCreate TraceKind = "create"
)

// TraceRecord is one entry of a dispatch trace.
//
// Object is the scenario-level name of the object involved, Listener the
// name of the listener that ran (TraceListener only).
type TraceRecord struct {
	ID       string    `json:"id,omitempty"`
	Seq      int64     `json:"seq"`
	Kind     TraceKind `json:"kind"`
	Object   string    `json:"object,omitempty"`
	Event    string    `json:"event,omitempty"`
	Listener string    `json:"listener,omitempty"`
	Args     IRArray   `json:"args,omitempty"`
}
