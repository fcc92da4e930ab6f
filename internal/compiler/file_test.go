package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompileCUE_AllPollsInLabelOrder(t *testing.T) {
	v := cuecontext.New().CompileString(`
		poll: alpha: {
			title: "A"
			questions: [{text: "Q", type: "text"}]
		}
		poll: beta: {
			title: "B"
			questions: [{text: "Q", type: "text"}]
		}
	`)

	polls, err := CompileCUE(v)
	require.NoError(t, err)
	require.Len(t, polls, 2)
	assert.Equal(t, "alpha", polls[0].ID)
	assert.Equal(t, "beta", polls[1].ID)
}

func TestCompileCUE_NoPolls(t *testing.T) {
	polls, err := CompileCUE(cuecontext.New().CompileString(`other: 1`))
	require.NoError(t, err)
	assert.Empty(t, polls)
}

func TestCompileCUE_ErrorNamesPoll(t *testing.T) {
	_, err := CompileCUE(cuecontext.New().CompileString(`poll: broken: {questions: []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll.broken")
}

func TestLoadFile(t *testing.T) {
	cuePath := writeFile(t, "car.cue", `
poll: car: {
	title: "Cars"
	questions: [{text: "Own a car?", type: "single_choice", choices: ["Yes", "No"]}]
}
`)
	polls, err := LoadFile(cuePath)
	require.NoError(t, err)
	require.Len(t, polls, 1)
	assert.Equal(t, "car", polls[0].ID)
	assert.Equal(t, "q1_c1", polls[0].Questions[0].Choices[0].ID)

	yamlPath := writeFile(t, "car.yaml", `
id: car
title: Cars
questions:
  - text: Own a car?
    type: single_choice
    choices: [Yes, No]
`)
	polls, err = LoadFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, polls, 1)
	assert.Equal(t, "Cars", polls[0].Title)

	_, err = LoadFile(writeFile(t, "car.json", `{}`))
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
