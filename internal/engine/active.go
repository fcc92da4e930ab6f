package engine

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/branchpoll/internal/ir"
)

// ActiveSet is the set of question ids currently shown to a participant.
type ActiveSet map[string]bool

// Contains reports whether the question is active.
func (s ActiveSet) Contains(questionID string) bool {
	return s[questionID]
}

// Filter returns the active questions in position order.
func (s ActiveSet) Filter(questions []ir.Question) []ir.Question {
	out := make([]ir.Question, 0, len(s))
	for _, q := range byPosition(questions) {
		if s[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

// ActiveQuestions decides which questions are active for a (possibly
// partial) answer set.
//
// Questions are evaluated once, in position order:
//   - no DependsOn: active
//   - DependsOn{qid, op, value}: active iff qid is active AND its answer
//     satisfies (op, value)
//
// An unanswered or empty prerequisite never satisfies a predicate, for any
// operator. Because a dependency may only point backwards, each question's
// prerequisite is already decided when it is reached.
//
// Returns *ConfigurationError if a DependsOn names an unknown, self or later
// question.
func ActiveQuestions(questions []ir.Question, answers ir.Answers) (ActiveSet, error) {
	ordered := byPosition(questions)
	active := make(ActiveSet, len(ordered))
	seen := make(map[string]ir.Question, len(ordered))

	for _, q := range ordered {
		if q.DependsOn == nil {
			active[q.ID] = true
			seen[q.ID] = q
			continue
		}

		prereq, ok := seen[q.DependsOn.QuestionID]
		if !ok {
			return nil, dependencyError(q, questions)
		}

		if active[prereq.ID] && Satisfies(prereq, *q.DependsOn, answers.Get(prereq.ID)) {
			active[q.ID] = true
		}
		seen[q.ID] = q
	}

	return active, nil
}

// ActiveList is ActiveQuestions returning the active questions themselves,
// in position order.
func ActiveList(questions []ir.Question, answers ir.Answers) ([]ir.Question, error) {
	active, err := ActiveQuestions(questions, answers)
	if err != nil {
		return nil, err
	}
	return active.Filter(questions), nil
}

// CheckDependencies verifies that every DependsOn points to a strictly
// earlier question. It is the static half of ActiveQuestions and needs no
// answers.
func CheckDependencies(questions []ir.Question) error {
	seen := make(map[string]bool, len(questions))
	for _, q := range byPosition(questions) {
		if q.DependsOn != nil && !seen[q.DependsOn.QuestionID] {
			return dependencyError(q, questions)
		}
		seen[q.ID] = true
	}
	return nil
}

func dependencyError(q ir.Question, questions []ir.Question) *ConfigurationError {
	ref := q.DependsOn.QuestionID
	msg := "referenced question does not exist"
	switch {
	case ref == q.ID:
		msg = "question cannot depend on itself"
	case containsID(questions, ref):
		msg = "referenced question does not come earlier"
	}
	return &ConfigurationError{QuestionID: q.ID, DependsOn: ref, Message: msg}
}

func containsID(questions []ir.Question, id string) bool {
	for _, q := range questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Satisfies evaluates a DependsOn predicate against the prerequisite's answer.
//
// Strings are compared after NFC normalization. A choice matches the
// predicate value by id or by its display text.
//
//	equals / not_equals
//	  single_choice:   chosen choice matches value
//	  multiple_choice: exactly one choice selected and it matches value
//	  text:            text == value
//	contains / not_contains
//	  multiple_choice: value is one of the selected choices
//	  single_choice:   value is a substring of the chosen id or text
//	  text:            value is a substring of the text
//
// Empty answers and answers of the wrong variant satisfy nothing.
func Satisfies(prereq ir.Question, dep ir.DependsOn, answer ir.AnswerValue) bool {
	if answer == nil || answer.IsEmpty() {
		return false
	}

	labels, ok := answerLabels(prereq, answer)
	if !ok {
		return false
	}
	want := norm.NFC.String(dep.Value)

	switch dep.Operator {
	case ir.OpEquals, "":
		return equalsMatch(prereq.Type, labels, want)
	case ir.OpNotEquals:
		return !equalsMatch(prereq.Type, labels, want)
	case ir.OpContains:
		return containsMatch(prereq.Type, labels, want)
	case ir.OpNotContains:
		return !containsMatch(prereq.Type, labels, want)
	default:
		return false
	}
}

// answerLabels returns, per selected element, the normalized strings the
// element can be matched by. Text answers yield a single element.
func answerLabels(q ir.Question, answer ir.AnswerValue) ([][]string, bool) {
	switch v := answer.(type) {
	case ir.ChoiceValue:
		if q.Type != ir.SingleChoice {
			return nil, false
		}
		return [][]string{choiceLabels(q, string(v))}, true
	case ir.ChoiceSetValue:
		if q.Type != ir.MultipleChoice {
			return nil, false
		}
		ids := v.Distinct()
		out := make([][]string, 0, len(ids))
		for _, id := range ids {
			if strings.TrimSpace(id) == "" {
				continue
			}
			out = append(out, choiceLabels(q, id))
		}
		return out, len(out) > 0
	case ir.TextValue:
		if q.Type != ir.FreeText {
			return nil, false
		}
		return [][]string{{norm.NFC.String(string(v))}}, true
	default:
		return nil, false
	}
}

func choiceLabels(q ir.Question, id string) []string {
	labels := []string{norm.NFC.String(id)}
	if c, ok := q.Choice(id); ok {
		labels = append(labels, norm.NFC.String(c.Text))
	}
	return labels
}

func equalsMatch(t ir.QuestionType, elems [][]string, want string) bool {
	if t == ir.MultipleChoice && len(elems) != 1 {
		return false
	}
	return slices.Contains(elems[0], want)
}

func containsMatch(t ir.QuestionType, elems [][]string, want string) bool {
	if t == ir.MultipleChoice {
		for _, labels := range elems {
			if slices.Contains(labels, want) {
				return true
			}
		}
		return false
	}
	for _, label := range elems[0] {
		if strings.Contains(label, want) {
			return true
		}
	}
	return false
}

// byPosition returns a copy of questions sorted by Position. Ties keep their
// input order.
func byPosition(questions []ir.Question) []ir.Question {
	ordered := slices.Clone(questions)
	slices.SortStableFunc(ordered, func(a, b ir.Question) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return ordered
}
