package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario for one poll.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Poll is an inline poll definition in the YAML authoring format.
	Poll yaml.Node `yaml:"poll,omitempty"`

	// PollFile is a .yaml, .yml or .cue definitions file, relative to the
	// scenario file. Exactly one of Poll and PollFile is set.
	PollFile string `yaml:"poll_file,omitempty"`

	// PollID picks a poll when PollFile defines several.
	PollID string `yaml:"poll_id,omitempty"`

	// Now is the RFC 3339 wall-clock instant the run pretends it is.
	// Defaults to testutil.Epoch.
	Now string `yaml:"now,omitempty"`

	// SampleSize bounds free-text samples in results. Zero means default.
	SampleSize int `yaml:"sample_size,omitempty"`

	// Steps are played in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final results and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one participant interaction: either a submission or an
// active-question query.
type Step struct {
	Submit *SubmitStep `yaml:"submit,omitempty"`
	Active *ActiveStep `yaml:"active,omitempty"`

	// ExpectError is the expected rejection code for a submit step
	// (a validation kind such as MISSING_REQUIRED, or POLL_CLOSED,
	// POLL_EXPIRED, ANONYMOUS_NOT_ALLOWED, CONFIGURATION_ERROR).
	// Empty means the submission must be accepted.
	ExpectError string `yaml:"expect_error,omitempty"`

	// ExpectActive lists the question ids an active step must return, in
	// order. Nil means no check.
	ExpectActive []string `yaml:"expect_active,omitempty"`
}

// SubmitStep submits a complete answer set. At most one of User and
// Session is set; neither means an anonymous participant that is issued a
// session id.
type SubmitStep struct {
	User    string         `yaml:"user,omitempty"`
	Session string         `yaml:"session,omitempty"`
	Answers map[string]any `yaml:"answers"`
}

// ActiveStep asks which questions are shown for a partial answer set.
type ActiveStep struct {
	Answers map[string]any `yaml:"answers"`
}

// Assertion validates the final results or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "total_responses": question's TotalResponses equals Count
	// - "tally": choice counts keyed by choice text (or id) equal Counts
	// - "samples": question's free-text samples equal Samples
	// - "submission_count": accepted submissions equal Count
	Type string `yaml:"type"`

	// Question is the question id (all types except submission_count).
	Question string `yaml:"question,omitempty"`

	Count   int            `yaml:"count,omitempty"`
	Counts  map[string]int `yaml:"counts,omitempty"`
	Samples []string       `yaml:"samples,omitempty"`
}

// Assertion type constants.
const (
	AssertTotalResponses  = "total_responses"
	AssertTally           = "tally"
	AssertSamples         = "samples"
	AssertSubmissionCount = "submission_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative poll_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.PollFile != "" && !filepath.IsAbs(scenario.PollFile) {
		scenario.PollFile = filepath.Join(filepath.Dir(path), scenario.PollFile)
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

	hasInline := s.Poll.Kind != 0
	switch {
	case hasInline && s.PollFile != "":
		return fmt.Errorf("poll and poll_file are mutually exclusive")
	case !hasInline && s.PollFile == "":
		return fmt.Errorf("one of poll or poll_file is required")
	case s.PollFile != "":
		if _, err := os.Stat(s.PollFile); os.IsNotExist(err) {
			return fmt.Errorf("poll file not found: %s", s.PollFile)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step) error {
	switch {
	case step.Submit != nil && step.Active != nil:
		return fmt.Errorf("steps[%d]: submit and active are mutually exclusive", index)
	case step.Submit != nil:
		if step.Submit.User != "" && step.Submit.Session != "" {
			return fmt.Errorf("steps[%d]: at most one of user and session may be set", index)
		}
		if step.ExpectActive != nil {
			return fmt.Errorf("steps[%d]: expect_active applies to active steps only", index)
		}
	case step.Active != nil:
		if step.ExpectError != "" {
			return fmt.Errorf("steps[%d]: expect_error applies to submit steps only", index)
		}
	default:
		return fmt.Errorf("steps[%d]: one of submit or active is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTotalResponses, AssertSamples:
		if a.Question == "" {
			return fmt.Errorf("assertions[%d]: question is required for %s", index, a.Type)
		}
	case AssertTally:
		if a.Question == "" {
			return fmt.Errorf("assertions[%d]: question is required for tally", index)
		}
		if len(a.Counts) == 0 {
			return fmt.Errorf("assertions[%d]: counts is required for tally", index)
		}
	case AssertSubmissionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
