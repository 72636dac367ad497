package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/kinda/internal/ir"
)

// TraceSnapshot is the golden form of a scenario trace. Record IDs are
// left out; they are derived from the other fields.
type TraceSnapshot struct {
	ScenarioName string           `json:"scenario_name"`
	Trace        []ir.TraceRecord `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, rec := range s.Trace {
		m := map[string]any{
			"seq":  rec.Seq,
			"kind": string(rec.Kind),
		}
		if rec.Object != "" {
			m["object"] = rec.Object
		}
		if rec.Event != "" {
			m["event"] = rec.Event
		}
		if rec.Listener != "" {
			m["listener"] = rec.Listener
		}
		if len(rec.Args) > 0 {
			m["args"] = rec.Args
		}
		traceList[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// MarshalSnapshot renders a result's trace as canonical JSON.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
