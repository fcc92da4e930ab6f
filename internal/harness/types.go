package harness

import "github.com/roach88/branchpoll/internal/ir"

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Step int    `json:"step"`
	Type string `json:"type"` // "submit" or "active"

	// Submit steps.
	Participant  string `json:"participant,omitempty"`
	SubmissionID string `json:"submission_id,omitempty"`
	Seq          int64  `json:"seq,omitempty"`
	Outcome      string `json:"outcome,omitempty"` // "accepted" or the rejection code

	// Active steps.
	Active []string `json:"active,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Results are the poll's aggregated results after all steps.
	Results []ir.QuestionResult `json:"results"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Results: []ir.QuestionResult{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Accepted returns the number of accepted submissions in the trace.
func (r *Result) Accepted() int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == "submit" && e.Outcome == OutcomeAccepted {
			n++
		}
	}
	return n
}
