package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/branchpoll/internal/ir"
)

// Snapshot is the golden form of a scenario run: the trace and the final
// results, serialised as canonical JSON.
type Snapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Results      []ir.QuestionResult
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, which only handles primitives, maps and slices.
// Submission ids are left out; participant and seq identify a submission.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, e := range s.Trace {
		m := map[string]any{
			"step": e.Step,
			"type": e.Type,
		}
		if e.Participant != "" {
			m["participant"] = e.Participant
		}
		if e.Seq != 0 {
			m["seq"] = e.Seq
		}
		if e.Outcome != "" {
			m["outcome"] = e.Outcome
		}
		if e.Type == "active" {
			m["active"] = e.Active
		}
		trace[i] = m
	}

	results := make([]any, len(s.Results))
	for i, r := range s.Results {
		m := map[string]any{
			"question_id":     r.QuestionID,
			"question_type":   string(r.QuestionType),
			"question_text":   r.QuestionText,
			"total_responses": r.TotalResponses,
		}
		if r.QuestionType.IsChoice() {
			tally := make([]any, len(r.Tally))
			for j, c := range r.Tally {
				tally[j] = map[string]any{
					"choice_id": c.ChoiceID,
					"text":      c.Text,
					"count":     c.Count,
				}
			}
			m["tally"] = tally
		} else {
			samples := r.Samples
			if samples == nil {
				samples = []string{}
			}
			m["samples"] = samples
		}
		results[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"results":       results,
	}
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Results:      result.Results,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
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

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
