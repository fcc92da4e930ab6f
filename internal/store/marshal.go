package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/branchpoll/internal/ir"
)

// timeLayout stores wall-clock times as sortable UTC text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// marshalAnswers converts Answers to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so submission ids can be re-derived from rows.
func marshalAnswers(answers ir.Answers) (string, error) {
	if answers == nil {
		answers = ir.Answers{}
	}
	data, err := ir.MarshalCanonical(answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	return string(data), nil
}

// unmarshalAnswers parses stored answers JSON.
func unmarshalAnswers(data string) (ir.Answers, error) {
	if data == "" || data == "{}" {
		return ir.Answers{}, nil
	}
	answers, err := ir.ParseAnswers([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return answers, nil
}

// marshalPoll converts a poll definition to JSON TEXT. Struct field order
// makes the output stable; the content hash is computed separately.
func marshalPoll(p ir.Poll) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal poll: %w", err)
	}
	return string(data), nil
}

// unmarshalPoll parses a stored poll definition.
func unmarshalPoll(data string) (ir.Poll, error) {
	var p ir.Poll
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return ir.Poll{}, fmt.Errorf("unmarshal poll: %w", err)
	}
	if p.Questions == nil {
		p.Questions = []ir.Question{}
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
