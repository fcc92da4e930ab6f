package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/branchpoll/internal/ir"
)

func TestBuilderBuildsCarPoll(t *testing.T) {
	expires := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)

	poll, err := NewBuilder("car", "Cars").
		Description("Ownership survey").
		Creator("alice").
		AllowAnonymous(false).
		ExpiresAt(expires).
		Question("q1", "Do you own a car?", ir.SingleChoice, "Yes", "No").
		Question("q2", "What brand?", ir.FreeText).
		DependsOn("q1", ir.OpEquals, "Yes").
		Question("q3", "Anything else?", ir.FreeText).
		Optional().
		Build()
	require.NoError(t, err)

	assert.Equal(t, "alice", poll.CreatorID)
	assert.False(t, poll.AllowAnonymous)
	assert.True(t, poll.IsActive)
	assert.Equal(t, expires, *poll.ExpiresAt)

	require.Len(t, poll.Questions, 3)
	assert.Equal(t, []ir.Choice{{ID: "q1_c1", Text: "Yes"}, {ID: "q1_c2", Text: "No"}}, poll.Questions[0].Choices)
	assert.Equal(t, 2, poll.Questions[2].Position)
	assert.False(t, poll.Questions[2].IsRequired)
	assert.True(t, poll.Questions[1].IsRequired)
	assert.Equal(t, "q1", poll.Questions[1].DependsOn.QuestionID)
}

func TestBuilderRejectsForwardDependency(t *testing.T) {
	_, err := NewBuilder("bad", "Bad").
		Question("q1", "First", ir.FreeText).
		DependsOn("q2", ir.OpEquals, "x").
		Question("q2", "Second", ir.FreeText).
		Build()

	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrDependsOnNotEarlier)
}

func TestBuilderJoinsErrors(t *testing.T) {
	_, err := NewBuilder("", "").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrPollIDInvalid)
	assert.Contains(t, err.Error(), ErrPollNoQuestions)
}

func TestBuilderMustBuildPanics(t *testing.T) {
	assert.Panics(t, func() { NewBuilder("x", "X").MustBuild() })
	assert.NotPanics(t, func() {
		NewBuilder("x", "X").Question("q1", "Q", ir.FreeText).Active(false).MustBuild()
	})
}

func TestBuilderModifiersWithoutQuestionAreNoops(t *testing.T) {
	b := NewBuilder("x", "X").Optional().DependsOn("q0", ir.OpEquals, "v")
	poll, err := b.Question("q1", "Q", ir.FreeText).Build()
	require.NoError(t, err)
	assert.Nil(t, poll.Questions[0].DependsOn)
}
