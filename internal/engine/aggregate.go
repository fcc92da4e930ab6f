package engine

import (
	"cmp"
	"slices"

	"github.com/roach88/branchpoll/internal/ir"
)

// DefaultSampleSize is the number of free-text answers kept per question.
const DefaultSampleSize = 10

// AggregateOptions tunes Aggregate.
type AggregateOptions struct {
	// SampleSize bounds the free-text samples per question. Zero or negative
	// means DefaultSampleSize.
	SampleSize int
}

// Aggregate folds submissions into one QuestionResult per question, in
// position order, with default options.
func Aggregate(questions []ir.Question, submissions []ir.Submission) ([]ir.QuestionResult, error) {
	return AggregateWith(questions, submissions, AggregateOptions{})
}

// AggregateWith folds submissions into per-question results.
//
// Each submission's active set is recomputed from its own answers. A question
// contributes only where it was active and answered with a non-empty value of
// the right variant. Submissions are processed in (seq, id) order, so any
// permutation of the input yields identical results, samples included.
//
// Choice questions tally every choice, zero counts included, in choice order.
// A multiple_choice selection counts each distinct choice once and the
// submission once toward TotalResponses. Choice ids the question does not
// offer are ignored; a submission with no offered id does not count.
//
// Text questions count every non-empty answer and keep the first SampleSize
// as samples.
func AggregateWith(questions []ir.Question, submissions []ir.Submission, opts AggregateOptions) ([]ir.QuestionResult, error) {
	if err := CheckDependencies(questions); err != nil {
		return nil, err
	}

	k := opts.SampleSize
	if k <= 0 {
		k = DefaultSampleSize
	}

	ordered := byPosition(questions)
	results := make([]ir.QuestionResult, len(ordered))
	for i, q := range ordered {
		results[i] = newResult(q)
	}

	for _, sub := range canonicalOrder(submissions) {
		active, err := ActiveQuestions(ordered, sub.Answers)
		if err != nil {
			return nil, err
		}

		for i, q := range ordered {
			if !active.Contains(q.ID) {
				continue
			}
			answer := sub.Answers.Get(q.ID)
			if answer.IsEmpty() {
				continue
			}
			fold(&results[i], q, answer, k)
		}
	}

	return results, nil
}

func newResult(q ir.Question) ir.QuestionResult {
	r := ir.QuestionResult{
		QuestionID:   q.ID,
		QuestionType: q.Type,
		QuestionText: q.Text,
	}
	if q.Type.IsChoice() {
		r.Tally = make([]ir.ChoiceCount, len(q.Choices))
		for i, c := range q.Choices {
			r.Tally[i] = ir.ChoiceCount{ChoiceID: c.ID, Text: c.Text}
		}
	} else {
		r.Samples = []string{}
	}
	return r
}

func fold(r *ir.QuestionResult, q ir.Question, answer ir.AnswerValue, sampleSize int) {
	switch v := answer.(type) {
	case ir.ChoiceValue:
		if q.Type != ir.SingleChoice {
			return
		}
		if tallyChoice(r, string(v)) {
			r.TotalResponses++
		}

	case ir.ChoiceSetValue:
		if q.Type != ir.MultipleChoice {
			return
		}
		counted := false
		for _, id := range v.Distinct() {
			if tallyChoice(r, id) {
				counted = true
			}
		}
		if counted {
			r.TotalResponses++
		}

	case ir.TextValue:
		if q.Type != ir.FreeText {
			return
		}
		r.TotalResponses++
		if len(r.Samples) < sampleSize {
			r.Samples = append(r.Samples, string(v))
		}
	}
}

// tallyChoice increments the count for id and reports whether it was found.
func tallyChoice(r *ir.QuestionResult, id string) bool {
	for i := range r.Tally {
		if r.Tally[i].ChoiceID == id {
			r.Tally[i].Count++
			return true
		}
	}
	return false
}

// canonicalOrder returns a copy of submissions sorted by (seq, id).
func canonicalOrder(submissions []ir.Submission) []ir.Submission {
	ordered := slices.Clone(submissions)
	slices.SortFunc(ordered, func(a, b ir.Submission) int {
		if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return ordered
}
