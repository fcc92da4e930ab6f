package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/branchpoll/internal/ir"
)

// Validate checks an answer set against the questions that are active for it.
//
// Questions are scanned in position order and the first failure is returned:
//   - inactive questions are skipped, whatever they hold
//   - active, required and empty: KindMissingRequired
//   - active and answered with the wrong variant: KindWrongAnswerType
//   - a blank entry in a non-empty multiple_choice set: KindEmptyMultiChoice
//   - a choice id the question does not offer: KindInvalidChoice
//
// After the scan, answers keyed by ids that are not in the poll are reported
// as KindUnknownQuestion, lowest id first.
//
// Returns nil when the answer set is acceptable.
func Validate(active ActiveSet, questions []ir.Question, answers ir.Answers) error {
	for _, q := range byPosition(questions) {
		if !active.Contains(q.ID) {
			continue
		}
		if err := validateAnswer(q, answers.Get(q.ID)); err != nil {
			return err
		}
	}

	var unknown []string
	for id := range answers {
		if !containsID(questions, id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return &ValidationError{
			Kind:       KindUnknownQuestion,
			QuestionID: unknown[0],
			Message:    "answer does not belong to any question of the poll",
		}
	}

	return nil
}

func validateAnswer(q ir.Question, answer ir.AnswerValue) error {
	if answer.IsEmpty() {
		if q.IsRequired {
			return newMissingRequired(q.ID)
		}
		return nil
	}

	switch q.Type {
	case ir.SingleChoice:
		v, ok := answer.(ir.ChoiceValue)
		if !ok {
			return wrongType(q, answer)
		}
		if _, ok := q.Choice(string(v)); !ok {
			return newInvalidChoice(q.ID, string(v))
		}

	case ir.MultipleChoice:
		v, ok := answer.(ir.ChoiceSetValue)
		if !ok {
			return wrongType(q, answer)
		}
		for _, id := range v {
			if strings.TrimSpace(id) == "" {
				return &ValidationError{
					Kind:       KindEmptyMultiChoice,
					QuestionID: q.ID,
					Message:    "selection contains a blank choice",
				}
			}
			if _, ok := q.Choice(id); !ok {
				return newInvalidChoice(q.ID, id)
			}
		}

	case ir.FreeText:
		if _, ok := answer.(ir.TextValue); !ok {
			return wrongType(q, answer)
		}

	default:
		return &ConfigurationError{
			QuestionID: q.ID,
			Message:    fmt.Sprintf("unknown question type %q", q.Type),
		}
	}

	return nil
}

func wrongType(q ir.Question, answer ir.AnswerValue) *ValidationError {
	return &ValidationError{
		Kind:       KindWrongAnswerType,
		QuestionID: q.ID,
		Message:    fmt.Sprintf("%s question cannot take a %s answer", q.Type, variantName(answer)),
	}
}

func variantName(answer ir.AnswerValue) string {
	switch answer.(type) {
	case ir.ChoiceValue:
		return "choice"
	case ir.ChoiceSetValue:
		return "choice set"
	case ir.TextValue:
		return "text"
	default:
		return "unanswered"
	}
}
