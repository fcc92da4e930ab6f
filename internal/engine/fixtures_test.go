package engine

import (
	"fmt"

	"github.com/roach88/branchpoll/internal/ir"
)

// carQuestions: q2 is shown only to participants who own a car.
func carQuestions() []ir.Question {
	return []ir.Question{
		{
			ID: "q1", Position: 0, Text: "Do you own a car?", Type: ir.SingleChoice, IsRequired: true,
			Choices: []ir.Choice{{ID: "yes", Text: "Yes"}, {ID: "no", Text: "No"}},
		},
		{
			ID: "q2", Position: 1, Text: "What brand?", Type: ir.FreeText, IsRequired: true,
			DependsOn: &ir.DependsOn{QuestionID: "q1", Operator: ir.OpEquals, Value: "Yes"},
		},
	}
}

// colorQuestions: q2 is gated on the q1 selection by op and value.
func colorQuestions(op ir.Operator, value string) []ir.Question {
	return []ir.Question{
		{
			ID: "q1", Position: 0, Text: "Favourite colours?", Type: ir.MultipleChoice, IsRequired: true,
			Choices: []ir.Choice{{ID: "red", Text: "Red"}, {ID: "blue", Text: "Blue"}, {ID: "green", Text: "Green"}},
		},
		{
			ID: "q2", Position: 1, Text: "Why?", Type: ir.FreeText,
			DependsOn: &ir.DependsOn{QuestionID: "q1", Operator: op, Value: value},
		},
	}
}

func submission(seq int64, answers ir.Answers) ir.Submission {
	return ir.Submission{
		ID:          fmt.Sprintf("sub-%03d", seq),
		PollID:      "poll",
		Participant: ir.ParticipantRef{UserID: fmt.Sprintf("user-%d", seq)},
		Answers:     answers,
		Seq:         seq,
	}
}
