package harness

import "github.com/roach88/kinda/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as declared and all assertions
	// held.
	Pass bool `json:"pass"`

	// RunID identifies the trace in the store.
	RunID string `json:"run_id"`

	// Trace is the dispatch trace as read back from the store.
	Trace []ir.TraceRecord `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []ir.TraceRecord{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
