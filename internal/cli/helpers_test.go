package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const carYAML = `id: car
title: Car survey
questions:
  - id: q1
    text: Do you own a car?
    type: single_choice
    choices: ["Yes", "No"]
  - id: q2
    text: What brand?
    type: text
    depends_on:
      question_id: q1
      value: "Yes"
`

const colorsCUE = `package polls

poll: colors: {
	title: "Colors"
	questions: [
		{
			id:   "fav"
			text: "Favourite colors?"
			type: "multiple_choice"
			choices: ["Red", "Green"]
		},
	]
}
`

// writeDefs writes files (name -> content) into a fresh directory.
func writeDefs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// execute runs a subcommand and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// publishCar publishes the car poll into a new database and returns its path.
func publishCar(t *testing.T) string {
	t.Helper()
	dir := writeDefs(t, map[string]string{"car.yaml": carYAML})
	db := filepath.Join(t.TempDir(), "polls.db")
	_, err := execute(t, NewPublishCommand(&RootOptions{Format: "text"}), dir, "--db", db)
	require.NoError(t, err)
	return db
}
