package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/branchpoll/internal/ir"
)

func TestActiveQuestions_NoDependsOnAlwaysActive(t *testing.T) {
	questions := []ir.Question{
		{ID: "a", Position: 0, Type: ir.FreeText},
		{ID: "b", Position: 1, Type: ir.FreeText},
	}

	for _, answers := range []ir.Answers{nil, {}, {"a": ir.TextValue("x")}} {
		active, err := ActiveQuestions(questions, answers)
		require.NoError(t, err)
		assert.True(t, active.Contains("a"))
		assert.True(t, active.Contains("b"))
	}
}

func TestActiveQuestions_CarPoll(t *testing.T) {
	tests := []struct {
		name   string
		answer ir.AnswerValue
		want   bool
	}{
		{"yes by id", ir.ChoiceValue("yes"), true},
		{"no", ir.ChoiceValue("no"), false},
		{"unanswered", ir.Unanswered{}, false},
		{"blank choice", ir.ChoiceValue(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, err := ActiveQuestions(carQuestions(), ir.Answers{"q1": tt.answer})
			require.NoError(t, err)
			assert.True(t, active.Contains("q1"))
			assert.Equal(t, tt.want, active.Contains("q2"))
		})
	}
}

func TestActiveQuestions_NotContains(t *testing.T) {
	answers := ir.Answers{"q1": ir.NewChoiceSet("red", "blue")}

	active, err := ActiveQuestions(colorQuestions(ir.OpNotContains, "Green"), answers)
	require.NoError(t, err)
	assert.True(t, active.Contains("q2"), "Green is not selected")

	active, err = ActiveQuestions(colorQuestions(ir.OpNotContains, "Red"), answers)
	require.NoError(t, err)
	assert.False(t, active.Contains("q2"), "Red is selected")
}

func TestActiveQuestions_MultipleChoiceOperators(t *testing.T) {
	tests := []struct {
		name     string
		op       ir.Operator
		value    string
		selected ir.ChoiceSetValue
		want     bool
	}{
		{"contains by text", ir.OpContains, "Blue", ir.NewChoiceSet("red", "blue"), true},
		{"contains by id", ir.OpContains, "blue", ir.NewChoiceSet("red", "blue"), true},
		{"contains missing", ir.OpContains, "Green", ir.NewChoiceSet("red", "blue"), false},
		{"equals single selection", ir.OpEquals, "Red", ir.NewChoiceSet("red"), true},
		{"equals single selection duplicated", ir.OpEquals, "Red", ir.NewChoiceSet("red", "red"), true},
		{"equals needs exactly one", ir.OpEquals, "Red", ir.NewChoiceSet("red", "blue"), false},
		{"not_equals with two selected", ir.OpNotEquals, "Red", ir.NewChoiceSet("red", "blue"), true},
		{"not_equals same single", ir.OpNotEquals, "Red", ir.NewChoiceSet("red"), false},
		{"empty selection", ir.OpNotContains, "Red", ir.NewChoiceSet(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, err := ActiveQuestions(colorQuestions(tt.op, tt.value), ir.Answers{"q1": tt.selected})
			require.NoError(t, err)
			assert.Equal(t, tt.want, active.Contains("q2"))
		})
	}
}

func TestActiveQuestions_UnansweredPrerequisiteHidesForEveryOperator(t *testing.T) {
	for op := range ir.ValidOperators {
		t.Run(string(op), func(t *testing.T) {
			active, err := ActiveQuestions(colorQuestions(op, "Red"), ir.Answers{})
			require.NoError(t, err)
			assert.False(t, active.Contains("q2"))
		})
	}
}

func TestActiveQuestions_TextAndSingleChoiceOperators(t *testing.T) {
	brand := []ir.Question{
		{ID: "brand", Position: 0, Type: ir.SingleChoice,
			Choices: []ir.Choice{{ID: "tc", Text: "Toyota Corolla"}, {ID: "hc", Text: "Honda Civic"}}},
		{ID: "name", Position: 1, Type: ir.FreeText},
		{ID: "why_toyota", Position: 2, Type: ir.FreeText,
			DependsOn: &ir.DependsOn{QuestionID: "brand", Operator: ir.OpContains, Value: "Toyota"}},
		{ID: "hello_bob", Position: 3, Type: ir.FreeText,
			DependsOn: &ir.DependsOn{QuestionID: "name", Operator: ir.OpEquals, Value: "Bob"}},
		{ID: "not_bob", Position: 4, Type: ir.FreeText,
			DependsOn: &ir.DependsOn{QuestionID: "name", Operator: ir.OpNotContains, Value: "ob"}},
	}

	active, err := ActiveQuestions(brand, ir.Answers{
		"brand": ir.ChoiceValue("tc"),
		"name":  ir.TextValue("Bob"),
	})
	require.NoError(t, err)
	assert.True(t, active.Contains("why_toyota"))
	assert.True(t, active.Contains("hello_bob"))
	assert.False(t, active.Contains("not_bob"))

	active, err = ActiveQuestions(brand, ir.Answers{
		"brand": ir.ChoiceValue("hc"),
		"name":  ir.TextValue("bob"),
	})
	require.NoError(t, err)
	assert.False(t, active.Contains("why_toyota"))
	assert.False(t, active.Contains("hello_bob"), "text equality is case sensitive")
	assert.False(t, active.Contains("not_bob"))
}

func TestActiveQuestions_NFCNormalized(t *testing.T) {
	questions := []ir.Question{
		{ID: "city", Position: 0, Type: ir.FreeText},
		{ID: "follow", Position: 1, Type: ir.FreeText,
			DependsOn: &ir.DependsOn{QuestionID: "city", Operator: ir.OpEquals, Value: "Caf\u00e9"}},
	}

	active, err := ActiveQuestions(questions, ir.Answers{"city": ir.TextValue("Cafe\u0301")})
	require.NoError(t, err)
	assert.True(t, active.Contains("follow"))
}

func TestActiveQuestions_InactivePrerequisiteHidesDependents(t *testing.T) {
	questions := append(carQuestions(), ir.Question{
		ID: "q3", Position: 2, Text: "Would you buy another?", Type: ir.FreeText,
		DependsOn: &ir.DependsOn{QuestionID: "q2", Operator: ir.OpContains, Value: "o"},
	})

	// q2 holds a matching answer, but q2 itself is hidden.
	active, err := ActiveQuestions(questions, ir.Answers{
		"q1": ir.ChoiceValue("no"),
		"q2": ir.TextValue("Toyota"),
	})
	require.NoError(t, err)
	assert.False(t, active.Contains("q2"))
	assert.False(t, active.Contains("q3"))

	active, err = ActiveQuestions(questions, ir.Answers{
		"q1": ir.ChoiceValue("yes"),
		"q2": ir.TextValue("Toyota"),
	})
	require.NoError(t, err)
	assert.True(t, active.Contains("q3"))
}

func TestActiveQuestions_UsesPositionNotSliceOrder(t *testing.T) {
	q := carQuestions()
	reversed := []ir.Question{q[1], q[0]}

	active, err := ActiveQuestions(reversed, ir.Answers{"q1": ir.ChoiceValue("yes")})
	require.NoError(t, err)
	assert.True(t, active.Contains("q2"))

	list := active.Filter(reversed)
	require.Len(t, list, 2)
	assert.Equal(t, "q1", list[0].ID)
	assert.Equal(t, "q2", list[1].ID)
}

func TestActiveQuestions_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		message string
	}{
		{"self", "q1", "itself"},
		{"forward", "q2", "does not come earlier"},
		{"unknown", "q9", "does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions := []ir.Question{
				{ID: "q1", Position: 0, Type: ir.FreeText,
					DependsOn: &ir.DependsOn{QuestionID: tt.ref, Operator: ir.OpEquals, Value: "x"}},
				{ID: "q2", Position: 1, Type: ir.FreeText},
			}

			_, err := ActiveQuestions(questions, ir.Answers{})
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.False(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.message)

			assert.Equal(t, err, CheckDependencies(questions))
		})
	}
}

func TestActiveList(t *testing.T) {
	list, err := ActiveList(carQuestions(), ir.Answers{"q1": ir.ChoiceValue("no")})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "q1", list[0].ID)
}
