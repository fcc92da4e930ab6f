package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/branchpoll/internal/compiler"
	"github.com/roach88/branchpoll/internal/engine"
	"github.com/roach88/branchpoll/internal/ir"
	"github.com/roach88/branchpoll/internal/service"
	"github.com/roach88/branchpoll/internal/store"
	"github.com/roach88/branchpoll/internal/testutil"
)

// OutcomeAccepted is the trace outcome of an accepted submission.
const OutcomeAccepted = "accepted"

// Harness plays one scenario against a service.
type Harness struct {
	svc  *service.Service
	poll ir.Poll
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A returned error means the scenario itself could not run (bad poll,
// unreadable file); step and assertion failures are reported in the Result.
//
// Execution flow:
// 1. Resolve and publish the poll
// 2. Play steps, checking each step's expectation
// 3. Compute results and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	poll, err := resolvePoll(scenario)
	if err != nil {
		return nil, err
	}

	now := testutil.Epoch
	if scenario.Now != "" {
		if now, err = time.Parse(time.RFC3339, scenario.Now); err != nil {
			return nil, fmt.Errorf("now must be RFC 3339: %w", err)
		}
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	svc, err := service.New(ctx, st,
		service.WithClock(testutil.NewDeterministicClock()),
		service.WithSessionGenerator(testutil.NewSequentialSessionGenerator("")),
		service.WithNow(testutil.FrozenNow(now)),
		service.WithSampleSize(scenario.SampleSize),
		service.WithResultsAfterClose(true),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	if err != nil {
		return nil, err
	}
	if err := svc.Publish(ctx, poll); err != nil {
		return nil, fmt.Errorf("failed to publish poll: %w", err)
	}

	h := &Harness{svc: svc, poll: poll}
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	results, err := svc.GetResults(ctx, poll.ID)
	if err != nil {
		result.AddError(fmt.Sprintf("get results: %v", err))
	} else {
		result.Results = results
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// resolvePoll decodes the inline poll or loads the poll file.
func resolvePoll(s *Scenario) (ir.Poll, error) {
	var polls []ir.Poll
	if s.PollFile != "" {
		loaded, err := compiler.LoadFile(s.PollFile)
		if err != nil {
			return ir.Poll{}, err
		}
		polls = loaded
	} else {
		data, err := yaml.Marshal(&s.Poll)
		if err != nil {
			return ir.Poll{}, fmt.Errorf("inline poll: %w", err)
		}
		if polls, err = compiler.ParsePollYAML(data); err != nil {
			return ir.Poll{}, fmt.Errorf("inline poll: %w", err)
		}
	}

	switch {
	case s.PollID != "":
		for _, p := range polls {
			if p.ID == s.PollID {
				return p, nil
			}
		}
		return ir.Poll{}, fmt.Errorf("poll %q not defined", s.PollID)
	case len(polls) == 1:
		return polls[0], nil
	default:
		return ir.Poll{}, fmt.Errorf("expected exactly one poll, found %d (set poll_id)", len(polls))
	}
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if step.Active != nil {
		return h.executeActive(ctx, i, step, result)
	}
	return h.executeSubmit(ctx, i, step, result)
}

func (h *Harness) executeActive(ctx context.Context, i int, step Step, result *Result) error {
	answers, err := ConvertAnswers(h.poll, step.Active.Answers)
	if err != nil {
		return err
	}

	questions, err := h.svc.GetActiveQuestions(ctx, h.poll.ID, answers)
	if err != nil {
		result.AddError(fmt.Sprintf("step %d: active questions: %v", i, err))
		return nil
	}

	ids := make([]string, len(questions))
	for j, q := range questions {
		ids[j] = q.ID
	}
	result.Trace = append(result.Trace, TraceEvent{Step: i, Type: "active", Active: ids})

	if step.ExpectActive != nil && !slices.Equal(ids, step.ExpectActive) {
		result.AddError(fmt.Sprintf("step %d: expected active %v, got %v", i, step.ExpectActive, ids))
	}
	return nil
}

func (h *Harness) executeSubmit(ctx context.Context, i int, step Step, result *Result) error {
	answers, err := ConvertAnswers(h.poll, step.Submit.Answers)
	if err != nil {
		return err
	}

	participant := ir.ParticipantRef{UserID: step.Submit.User, SessionID: step.Submit.Session}
	sub, err := h.svc.SubmitAnswers(ctx, h.poll.ID, participant, answers)

	event := TraceEvent{Step: i, Type: "submit", Outcome: OutcomeAccepted}
	if err != nil {
		code := ErrorCode(err)
		if code == "" {
			return err
		}
		event.Participant = participant.String()
		if participant.UserID == "" && participant.SessionID == "" {
			event.Participant = "anonymous"
		}
		event.Outcome = code
	} else {
		event.Participant = sub.Participant.String()
		event.SubmissionID = sub.ID
		event.Seq = sub.Seq
	}
	result.Trace = append(result.Trace, event)

	want := step.ExpectError
	if want == "" {
		want = OutcomeAccepted
	}
	if event.Outcome != want {
		result.AddError(fmt.Sprintf("step %d: expected %s, got %s", i, want, event.Outcome))
	}
	return nil
}

// ErrorCode maps a submission error to its scenario code. Returns "" for
// errors that are not participant-facing rejections.
func ErrorCode(err error) string {
	switch {
	case engine.IsValidationError(err):
		return string(engine.ValidationKindOf(err))
	case engine.IsConfigurationError(err):
		return "CONFIGURATION_ERROR"
	case errors.Is(err, service.ErrPollClosed):
		return "POLL_CLOSED"
	case errors.Is(err, service.ErrPollExpired):
		return "POLL_EXPIRED"
	case errors.Is(err, service.ErrAnonymousNotAllowed):
		return "ANONYMOUS_NOT_ALLOWED"
	default:
		return ""
	}
}

// ConvertAnswers turns loosely written scenario answers into ir.Answers.
// Question ids the poll does not define are kept so that scenarios can
// exercise UNKNOWN_QUESTION.
func ConvertAnswers(poll ir.Poll, raw map[string]any) (ir.Answers, error) {
	answers := make(ir.Answers, len(raw))
	for qid, val := range raw {
		q, known := poll.Question(qid)
		v, err := convertAnswer(q, known, val)
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", qid, err)
		}
		answers[qid] = v
	}
	return answers, nil
}

func convertAnswer(q ir.Question, known bool, val any) (ir.AnswerValue, error) {
	switch v := val.(type) {
	case nil:
		return ir.Unanswered{}, nil
	case []any:
		ids := make(ir.ChoiceSetValue, len(v))
		for i, item := range v {
			ids[i] = resolveChoice(q, fmt.Sprint(item))
		}
		return ids, nil
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return ir.UnmarshalAnswerValue(data)
	case string, int, bool:
		s := fmt.Sprint(v)
		if known && q.Type.IsChoice() {
			return ir.ChoiceValue(resolveChoice(q, s)), nil
		}
		return ir.TextValue(s), nil
	default:
		return nil, fmt.Errorf("unsupported answer %T", val)
	}
}

// resolveChoice maps a choice text to its id. Unmatched values pass through
// unchanged so that invalid choices reach validation.
func resolveChoice(q ir.Question, s string) string {
	if _, ok := q.Choice(s); ok {
		return s
	}
	for _, c := range q.Choices {
		if c.Text == s {
			return c.ID
		}
	}
	return s
}
