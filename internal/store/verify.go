package store

import (
	"context"
	"fmt"

	"github.com/roach88/branchpoll/internal/ir"
)

// Mismatch describes a stored submission whose id no longer matches its
// content.
type Mismatch struct {
	StoredID   string `json:"stored_id"`
	ComputedID string `json:"computed_id"`
	Seq        int64  `json:"seq"`
}

// VerifySubmissions re-derives the content-addressed id of every submission
// of a poll from its stored fields and reports rows that disagree, in seq
// order. An empty result means the log is intact.
func (s *Store) VerifySubmissions(ctx context.Context, pollID string) ([]Mismatch, error) {
	subs, err := s.ListSubmissions(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("verify submissions: %w", err)
	}

	mismatches := []Mismatch{}
	for _, sub := range subs {
		computed, err := ir.SubmissionID(sub.PollID, sub.Participant, sub.Answers, sub.Seq)
		if err != nil {
			return nil, fmt.Errorf("verify submission %s: %w", sub.ID, err)
		}
		if computed != sub.ID {
			mismatches = append(mismatches, Mismatch{
				StoredID:   sub.ID,
				ComputedID: computed,
				Seq:        sub.Seq,
			})
		}
	}
	return mismatches, nil
}
