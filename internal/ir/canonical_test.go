package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"zebra": "z",
		"apple": int64(1),
		"Mango": true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"Mango":true,"apple":1,"zebra":"z"}`, string(got))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FF61
	// in UTF-16 even though the UTF-8 bytes sort after.
	got, err := MarshalCanonical(map[string]any{
		"\uff61":     "halfwidth",
		"\U0001F600": "emoji",
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":\"emoji\",\"\uff61\":\"halfwidth\"}", string(got))
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	got, err := MarshalCanonical("a<b>&\"c\\\n \x01")
	require.NoError(t, err)
	assert.Equal(t, "\"a<b>&\\\"c\\\\\\n \\u0001\"", string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestMarshalCanonicalAnswers(t *testing.T) {
	got, err := MarshalCanonical(Answers{
		"q2": ChoiceSetValue{"red", "blue"},
		"q1": ChoiceValue("yes"),
		"q3": TextValue("Toyota"),
		"q4": Unanswered{},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"q1":{"choice_id":"yes"},"q2":{"choice_ids":["red","blue"]},"q3":{"text":"Toyota"}}`,
		string(got))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"unanswered", Unanswered{}},
		{"float", 1.5},
		{"nested float", map[string]any{"x": []any{float32(2)}}},
		{"struct", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.value)
			assert.Error(t, err)
		})
	}
}
