package engine

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a malformed poll definition detected at
// evaluation time: a DependsOn that names an unknown, self or later question.
//
// A ConfigurationError is a defect in the stored poll, not in the
// participant's answers.
type ConfigurationError struct {
	// QuestionID is the dependent question carrying the bad reference.
	QuestionID string

	// DependsOn is the referenced question id.
	DependsOn string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.DependsOn == "" {
		return fmt.Sprintf("configuration error: question %q: %s", e.QuestionID, e.Message)
	}
	return fmt.Sprintf("configuration error: question %q depends on %q: %s", e.QuestionID, e.DependsOn, e.Message)
}

// ValidationKind categorizes answer validation failures.
type ValidationKind string

const (
	// KindMissingRequired: an active required question has no answer.
	KindMissingRequired ValidationKind = "MISSING_REQUIRED"

	// KindInvalidChoice: an answer references a choice id the question does not offer.
	KindInvalidChoice ValidationKind = "INVALID_CHOICE"

	// KindEmptyMultiChoice: a multiple_choice selection contains a blank entry.
	KindEmptyMultiChoice ValidationKind = "EMPTY_MULTI_CHOICE"

	// KindWrongAnswerType: the answer variant does not match the question type.
	KindWrongAnswerType ValidationKind = "WRONG_ANSWER_TYPE"

	// KindUnknownQuestion: an answer is keyed by an id that is not in the poll.
	KindUnknownQuestion ValidationKind = "UNKNOWN_QUESTION"
)

// ValidationError rejects a participant's answer set. Only the first
// failure in question position order is reported.
type ValidationError struct {
	Kind       ValidationKind
	QuestionID string

	// ChoiceID is set for KindInvalidChoice.
	ChoiceID string

	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.ChoiceID != "" {
		return fmt.Sprintf("%s: %s (question=%s, choice=%s)", e.Kind, e.Message, e.QuestionID, e.ChoiceID)
	}
	return fmt.Sprintf("%s: %s (question=%s)", e.Kind, e.Message, e.QuestionID)
}

// IsValidationError returns true if err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfigurationError returns true if err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ValidationKindOf returns the kind of a wrapped *ValidationError, or "" if
// err is not one.
func ValidationKindOf(err error) ValidationKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

func newMissingRequired(qid string) *ValidationError {
	return &ValidationError{
		Kind:       KindMissingRequired,
		QuestionID: qid,
		Message:    "required question has no answer",
	}
}

func newInvalidChoice(qid, choiceID string) *ValidationError {
	return &ValidationError{
		Kind:       KindInvalidChoice,
		QuestionID: qid,
		ChoiceID:   choiceID,
		Message:    "choice is not offered by the question",
	}
}
