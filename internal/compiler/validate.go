package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/branchpoll/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrUnsupportedType = "E200" // unsupported value passed to Validate

	// Poll errors (E201-E209)
	ErrPollIDInvalid   = "E201" // id missing or not a slug
	ErrPollTitleEmpty  = "E202" // title is required
	ErrPollNoQuestions = "E203" // at least one question required

	// Question errors (E210-E219)
	ErrDuplicateQuestionID = "E210" // question ids must be unique
	ErrQuestionTextEmpty   = "E211" // question text is required
	ErrInvalidQuestionType = "E212" // type not in single_choice|multiple_choice|text
	ErrChoicesMissing      = "E213" // choice question without choices
	ErrChoicesOnText       = "E214" // text question with choices
	ErrDuplicateChoiceID   = "E215" // choice ids unique within a question
	ErrChoiceTextEmpty     = "E216" // choice text is required
	ErrDuplicatePosition   = "E217" // positions must be unique
	ErrQuestionIDInvalid   = "E218" // question id missing or not a slug

	// Dependency errors (E220-E229)
	ErrInvalidOperator     = "E220" // operator not in equals|not_equals|contains|not_contains
	ErrConditionValueEmpty = "E221" // depends_on requires a value
	ErrDependsOnUnknown    = "E222" // depends_on names no question
	ErrDependsOnNotEarlier = "E223" // depends_on names itself or a later question
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled poll against structural rules.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch p := v.(type) {
	case *ir.Poll:
		return validatePoll(p)
	case ir.Poll:
		return validatePoll(&p)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

// slugPattern matches ids usable in URLs and CLI arguments.
var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

func validatePoll(p *ir.Poll) []ValidationError {
	var errs []ValidationError

	// E201: id must be a slug
	if !slugPattern.MatchString(p.ID) {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("poll id %q must be a non-empty slug", p.ID),
			Code:    ErrPollIDInvalid,
		})
	}

	// E202: title is required
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, ValidationError{
			Field:   "title",
			Message: "title is required and must be non-empty",
			Code:    ErrPollTitleEmpty,
		})
	}

	// E203: at least one question
	if len(p.Questions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "questions",
			Message: "at least one question is required",
			Code:    ErrPollNoQuestions,
		})
	}

	questionIDs := make(map[string]bool)
	positions := make(map[int]bool)
	for i, q := range p.Questions {
		path := fmt.Sprintf("questions[%d]", i)

		switch {
		case !slugPattern.MatchString(q.ID):
			errs = append(errs, ValidationError{
				Field:   path + ".id",
				Message: fmt.Sprintf("question id %q must be a non-empty slug", q.ID),
				Code:    ErrQuestionIDInvalid,
			})
		case questionIDs[q.ID]:
			errs = append(errs, ValidationError{
				Field:   path + ".id",
				Message: fmt.Sprintf("duplicate question id: %q", q.ID),
				Code:    ErrDuplicateQuestionID,
			})
		}

		if positions[q.Position] {
			errs = append(errs, ValidationError{
				Field:   path + ".position",
				Message: fmt.Sprintf("duplicate position: %d", q.Position),
				Code:    ErrDuplicatePosition,
			})
		}
		positions[q.Position] = true

		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".text",
				Message: "question text is required",
				Code:    ErrQuestionTextEmpty,
			})
		}

		errs = append(errs, validateChoices(q, path)...)
		errs = append(errs, validateDependsOn(p, q, path)...)

		questionIDs[q.ID] = true
	}

	return errs
}

func validateChoices(q ir.Question, path string) []ValidationError {
	var errs []ValidationError

	// E212: valid type
	if !ir.ValidQuestionTypes[q.Type] {
		return append(errs, ValidationError{
			Field:   path + ".type",
			Message: fmt.Sprintf("invalid question type %q, must be \"single_choice\", \"multiple_choice\", or \"text\"", q.Type),
			Code:    ErrInvalidQuestionType,
		})
	}

	if !q.Type.IsChoice() {
		// E214: text questions carry no choices
		if len(q.Choices) > 0 {
			errs = append(errs, ValidationError{
				Field:   path + ".choices",
				Message: "text question cannot have choices",
				Code:    ErrChoicesOnText,
			})
		}
		return errs
	}

	// E213: choice questions need choices
	if len(q.Choices) == 0 {
		errs = append(errs, ValidationError{
			Field:   path + ".choices",
			Message: fmt.Sprintf("%s question needs at least one choice", q.Type),
			Code:    ErrChoicesMissing,
		})
	}

	choiceIDs := make(map[string]bool)
	for j, c := range q.Choices {
		cpath := fmt.Sprintf("%s.choices[%d]", path, j)
		if strings.TrimSpace(c.ID) == "" || choiceIDs[c.ID] {
			errs = append(errs, ValidationError{
				Field:   cpath + ".id",
				Message: fmt.Sprintf("choice id %q is empty or duplicated", c.ID),
				Code:    ErrDuplicateChoiceID,
			})
		}
		choiceIDs[c.ID] = true

		if strings.TrimSpace(c.Text) == "" {
			errs = append(errs, ValidationError{
				Field:   cpath + ".text",
				Message: "choice text is required",
				Code:    ErrChoiceTextEmpty,
			})
		}
	}

	return errs
}

func validateDependsOn(p *ir.Poll, q ir.Question, path string) []ValidationError {
	dep := q.DependsOn
	if dep == nil {
		return nil
	}
	var errs []ValidationError
	path += ".depends_on"

	// E220: operator
	if !ir.ValidOperators[dep.Operator] {
		errs = append(errs, ValidationError{
			Field:   path + ".operator",
			Message: fmt.Sprintf("invalid operator %q, must be \"equals\", \"not_equals\", \"contains\", or \"not_contains\"", dep.Operator),
			Code:    ErrInvalidOperator,
		})
	}

	// E221: condition value required
	if strings.TrimSpace(dep.Value) == "" {
		errs = append(errs, ValidationError{
			Field:   path + ".value",
			Message: "condition value is required when depends_on is set",
			Code:    ErrConditionValueEmpty,
		})
	}

	// E222/E223: must name a strictly earlier question
	prereq, ok := p.Question(dep.QuestionID)
	switch {
	case !ok:
		errs = append(errs, ValidationError{
			Field:   path + ".question_id",
			Message: fmt.Sprintf("unknown question %q", dep.QuestionID),
			Code:    ErrDependsOnUnknown,
		})
	case prereq.ID == q.ID || prereq.Position >= q.Position:
		errs = append(errs, ValidationError{
			Field:   path + ".question_id",
			Message: fmt.Sprintf("question %q must depend on an earlier question, not %q", q.ID, dep.QuestionID),
			Code:    ErrDependsOnNotEarlier,
		})
	}

	return errs
}
