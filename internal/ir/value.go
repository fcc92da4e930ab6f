package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerValue is a sealed interface representing one answer to one question.
// Only Unanswered, ChoiceValue, ChoiceSetValue and TextValue implement it.
//
// The variant must match the question type: ChoiceValue for single_choice,
// ChoiceSetValue for multiple_choice, TextValue for text.
type AnswerValue interface {
	answerValue() // Sealed

	// IsEmpty reports whether the value carries no usable answer.
	// Unanswered, a blank choice id, an empty set and blank text are empty.
	IsEmpty() bool
}

// Unanswered marks a question with no answer. It is distinct from an empty
// string or an empty set at the type level, even though both are empty.
type Unanswered struct{}

func (Unanswered) answerValue() {}

// IsEmpty implements AnswerValue.
func (Unanswered) IsEmpty() bool { return true }

// MarshalJSON implements json.Marshaler for Unanswered.
func (Unanswered) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// ChoiceValue is a single selected choice id.
type ChoiceValue string

func (ChoiceValue) answerValue() {}

// IsEmpty implements AnswerValue.
func (v ChoiceValue) IsEmpty() bool { return strings.TrimSpace(string(v)) == "" }

// MarshalJSON implements json.Marshaler for ChoiceValue.
func (v ChoiceValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"choice_id": string(v)})
}

// ChoiceSetValue is a set of selected choice ids. Order is not significant.
type ChoiceSetValue []string

func (ChoiceSetValue) answerValue() {}

// IsEmpty implements AnswerValue.
func (v ChoiceSetValue) IsEmpty() bool { return len(v) == 0 }

// Contains reports whether id is in the set.
func (v ChoiceSetValue) Contains(id string) bool {
	for _, c := range v {
		if c == id {
			return true
		}
	}
	return false
}

// Distinct returns the ids in first-seen order with duplicates removed.
func (v ChoiceSetValue) Distinct() []string {
	seen := make(map[string]bool, len(v))
	out := make([]string, 0, len(v))
	for _, c := range v {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// MarshalJSON implements json.Marshaler for ChoiceSetValue.
func (v ChoiceSetValue) MarshalJSON() ([]byte, error) {
	ids := []string(v)
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(map[string][]string{"choice_ids": ids})
}

// TextValue is a free-text answer.
type TextValue string

func (TextValue) answerValue() {}

// IsEmpty implements AnswerValue.
func (v TextValue) IsEmpty() bool { return strings.TrimSpace(string(v)) == "" }

// MarshalJSON implements json.Marshaler for TextValue.
func (v TextValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"text": string(v)})
}

// NewChoiceSet creates a ChoiceSetValue from ids.
func NewChoiceSet(ids ...string) ChoiceSetValue {
	return ChoiceSetValue(ids)
}

// Answers maps question id to answer. A missing key means Unanswered.
type Answers map[string]AnswerValue

// Get returns the answer for a question, or Unanswered if there is none.
func (a Answers) Get(questionID string) AnswerValue {
	if v, ok := a[questionID]; ok && v != nil {
		return v
	}
	return Unanswered{}
}

// Clone returns a shallow copy. Answer values are immutable.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler for Answers.
func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = make(Answers, len(raw))
	for k, v := range raw {
		val, err := UnmarshalAnswerValue(v)
		if err != nil {
			return fmt.Errorf("answer %q: %w", k, err)
		}
		(*a)[k] = val
	}
	return nil
}

// UnmarshalAnswerValue decodes the tagged JSON form of an answer:
//
//	null or {}              -> Unanswered
//	{"choice_id": "c1"}     -> ChoiceValue
//	{"choice_ids": ["c1"]}  -> ChoiceSetValue
//	{"text": "..."}         -> TextValue
//
// Numeric choice ids are accepted and kept in their decimal form.
func UnmarshalAnswerValue(data []byte) (AnswerValue, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}
	if string(data) == "null" {
		return Unanswered{}, nil
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("answer must be an object or null, got %s", string(data))
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}

	switch len(obj) {
	case 0:
		return Unanswered{}, nil
	case 1:
	default:
		return nil, fmt.Errorf("answer must have exactly one of choice_id, choice_ids, text")
	}

	if raw, ok := obj["choice_id"]; ok {
		id, err := decodeID(raw)
		if err != nil {
			return nil, fmt.Errorf("choice_id: %w", err)
		}
		return ChoiceValue(id), nil
	}

	if raw, ok := obj["choice_ids"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("choice_ids: %w", err)
		}
		ids := make(ChoiceSetValue, len(items))
		for i, item := range items {
			id, err := decodeID(item)
			if err != nil {
				return nil, fmt.Errorf("choice_ids[%d]: %w", i, err)
			}
			ids[i] = id
		}
		return ids, nil
	}

	if raw, ok := obj["text"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("text: %w", err)
		}
		return TextValue(s), nil
	}

	for k := range obj {
		return nil, fmt.Errorf("unknown answer field %q", k)
	}
	return nil, fmt.Errorf("unreachable")
}

// decodeID accepts a JSON string or integer id.
func decodeID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("id must be a string or integer: %s", string(raw))
	}
	if _, err := n.Int64(); err != nil {
		return "", fmt.Errorf("id must be a string or integer: %s", string(raw))
	}
	return n.String(), nil
}

// ParseAnswers decodes an answers object from JSON bytes.
func ParseAnswers(data []byte) (Answers, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Answers{}, nil
	}
	var a Answers
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	return a, nil
}
