package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/branchpoll/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Question string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Question != "" {
		fmt.Fprintf(&buf, " (question %s)", e.Question)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// EvaluateAssertions runs all assertions against a result and returns the
// failure messages, empty if every assertion held.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	if a.Type == AssertSubmissionCount {
		if got := result.Accepted(); got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d accepted submissions", a.Count),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
		return nil
	}

	r, ok := findResult(result.Results, a.Question)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Question: a.Question,
			Expected: "question in results",
			Actual:   "not found",
		}
	}

	switch a.Type {
	case AssertTotalResponses:
		if r.TotalResponses != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Question: a.Question,
				Expected: fmt.Sprintf("%d", a.Count),
				Actual:   fmt.Sprintf("%d", r.TotalResponses),
			}
		}
	case AssertTally:
		got := tallyFor(r, a.Counts)
		if !maps.Equal(got, a.Counts) {
			return &AssertionError{
				Type:     a.Type,
				Question: a.Question,
				Expected: formatCounts(a.Counts),
				Actual:   formatCounts(got),
			}
		}
	case AssertSamples:
		samples := r.Samples
		if samples == nil {
			samples = []string{}
		}
		want := a.Samples
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(samples, want) {
			return &AssertionError{
				Type:     a.Type,
				Question: a.Question,
				Expected: fmt.Sprintf("%q", want),
				Actual:   fmt.Sprintf("%q", samples),
			}
		}
	}
	return nil
}

func findResult(results []ir.QuestionResult, questionID string) (ir.QuestionResult, bool) {
	for _, r := range results {
		if r.QuestionID == questionID {
			return r, true
		}
	}
	return ir.QuestionResult{}, false
}

// tallyFor builds the actual counts keyed the way the assertion keys them:
// by choice text, or by choice id where the assertion uses ids.
func tallyFor(r ir.QuestionResult, want map[string]int) map[string]int {
	got := make(map[string]int, len(r.Tally))
	for _, c := range r.Tally {
		key := c.Text
		if _, byID := want[c.ChoiceID]; byID {
			key = c.ChoiceID
		}
		got[key] += c.Count
	}
	return got
}

func formatCounts(counts map[string]int) string {
	keys := slices.Sorted(maps.Keys(counts))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
