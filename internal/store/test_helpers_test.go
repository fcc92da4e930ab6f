package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/branchpoll/internal/ir"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPoll returns the car poll: q2 is shown only when q1 is "Yes".
func createTestPoll(id string) ir.Poll {
	return ir.Poll{
		ID:             id,
		Title:          "Cars",
		AllowAnonymous: true,
		IsActive:       true,
		Questions: []ir.Question{
			{
				ID: "q1", Position: 0, Text: "Do you own a car?", Type: ir.SingleChoice, IsRequired: true,
				Choices: []ir.Choice{{ID: "q1_c1", Text: "Yes"}, {ID: "q1_c2", Text: "No"}},
			},
			{
				ID: "q2", Position: 1, Text: "What brand?", Type: ir.FreeText, IsRequired: true,
				DependsOn: &ir.DependsOn{QuestionID: "q1", Operator: ir.OpEquals, Value: "Yes"},
			},
		},
	}
}

// createTestSubmission builds a submission with a content-addressed id.
func createTestSubmission(t *testing.T, pollID, user string, answers ir.Answers, seq int64) ir.Submission {
	t.Helper()
	participant := ir.ParticipantRef{UserID: user}
	id, err := ir.SubmissionID(pollID, participant, answers, seq)
	if err != nil {
		t.Fatalf("SubmissionID() failed: %v", err)
	}
	return ir.Submission{
		ID:          id,
		PollID:      pollID,
		Participant: participant,
		Answers:     answers,
		SubmittedAt: time.Date(2026, 3, 1, 12, 0, 0, int(seq), time.UTC),
		Seq:         seq,
	}
}

// appendSubmission appends sub and fails the test on error.
func appendSubmission(t *testing.T, s *Store, sub ir.Submission) ir.Submission {
	t.Helper()
	stored, err := s.AppendSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("AppendSubmission() failed: %v", err)
	}
	return stored
}
