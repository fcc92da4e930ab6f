package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerValueSealed(t *testing.T) {
	var _ AnswerValue = Unanswered{}
	var _ AnswerValue = ChoiceValue("c1")
	var _ AnswerValue = ChoiceSetValue{"c1"}
	var _ AnswerValue = TextValue("hi")
}

func TestAnswerValueIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value AnswerValue
		empty bool
	}{
		{"unanswered", Unanswered{}, true},
		{"blank choice", ChoiceValue(""), true},
		{"choice", ChoiceValue("c1"), false},
		{"nil set", ChoiceSetValue(nil), true},
		{"empty set", ChoiceSetValue{}, true},
		{"set", ChoiceSetValue{"c1"}, false},
		{"empty text", TextValue(""), true},
		{"whitespace text", TextValue("  \t"), true},
		{"text", TextValue("Toyota"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.value.IsEmpty())
		})
	}
}

func TestAnswersGetMissingIsUnanswered(t *testing.T) {
	a := Answers{"q1": ChoiceValue("yes")}

	assert.Equal(t, ChoiceValue("yes"), a.Get("q1"))
	assert.Equal(t, Unanswered{}, a.Get("q2"))

	var nilAnswers Answers
	assert.Equal(t, Unanswered{}, nilAnswers.Get("q1"))
}

func TestChoiceSetDistinct(t *testing.T) {
	set := NewChoiceSet("red", "blue", "red", "green", "blue")
	assert.Equal(t, []string{"red", "blue", "green"}, set.Distinct())
	assert.True(t, set.Contains("green"))
	assert.False(t, set.Contains("yellow"))
}

func TestUnmarshalAnswerValue(t *testing.T) {
	tests := []struct {
		name string
		json string
		want AnswerValue
	}{
		{"null", `null`, Unanswered{}},
		{"empty object", `{}`, Unanswered{}},
		{"choice", `{"choice_id":"yes"}`, ChoiceValue("yes")},
		{"numeric choice", `{"choice_id":12}`, ChoiceValue("12")},
		{"choice set", `{"choice_ids":["red","blue"]}`, ChoiceSetValue{"red", "blue"}},
		{"numeric choice set", `{"choice_ids":[1,2]}`, ChoiceSetValue{"1", "2"}},
		{"empty choice set", `{"choice_ids":[]}`, ChoiceSetValue{}},
		{"text", `{"text":"Toyota"}`, TextValue("Toyota")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalAnswerValue([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalAnswerValueErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"bare string", `"yes"`},
		{"two fields", `{"choice_id":"a","text":"b"}`},
		{"unknown field", `{"rating":5}`},
		{"float id", `{"choice_id":1.5}`},
		{"choice ids not list", `{"choice_ids":"a"}`},
		{"text not string", `{"text":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalAnswerValue([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestAnswersJSONShape(t *testing.T) {
	a := Answers{
		"q1": ChoiceValue("yes"),
		"q2": ChoiceSetValue{"red"},
		"q3": TextValue("Toyota"),
		"q4": Unanswered{},
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"q1":{"choice_id":"yes"},"q2":{"choice_ids":["red"]},"q3":{"text":"Toyota"},"q4":null}`,
		string(data))

	parsed, err := ParseAnswers(data)
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestParseAnswersEmptyInput(t *testing.T) {
	a, err := ParseAnswers([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, a)

	_, err = ParseAnswers([]byte(`{"q1": "bare"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `answer "q1"`)
}
