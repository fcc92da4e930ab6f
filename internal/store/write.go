package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/branchpoll/internal/ir"
)

// SavePoll publishes a poll definition.
//
// Publishing is idempotent: saving the same definition again is a no-op.
// Saving a different definition under an existing id returns ErrPollExists,
// since submissions already recorded refer to the original questions.
func (s *Store) SavePoll(ctx context.Context, p ir.Poll) error {
	hash, err := ir.PollHash(p)
	if err != nil {
		return fmt.Errorf("save poll: %w", err)
	}
	definition, err := marshalPoll(p)
	if err != nil {
		return fmt.Errorf("save poll: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save poll: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT hash FROM polls WHERE id = ?`, p.ID).Scan(&existing)
	switch {
	case err == nil:
		if existing != hash {
			return fmt.Errorf("save poll %q: %w", p.ID, ErrPollExists)
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("save poll: lookup: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO polls (id, hash, definition)
		VALUES (?, ?, ?)
	`, p.ID, hash, definition); err != nil {
		return fmt.Errorf("save poll: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save poll: commit: %w", err)
	}
	return nil
}

// AppendSubmission appends an accepted submission to the log and returns the
// row as stored.
//
// sub.Seq is the caller's proposal. It is settled inside an IMMEDIATE
// transaction, so processes sharing the database file cannot both claim it:
// if the seq is already taken the submission moves to the next free seq and
// its content id is recomputed.
//
// Appending a submission whose id is already stored is a no-op that returns
// the stored row. The referenced poll must exist (foreign key constraint).
func (s *Store) AppendSubmission(ctx context.Context, sub ir.Submission) (ir.Submission, error) {
	answersJSON, err := marshalAnswers(sub.Answers)
	if err != nil {
		return ir.Submission{}, fmt.Errorf("append submission: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Submission{}, fmt.Errorf("append submission: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stored, err := readSubmission(ctx, tx, sub.ID)
	switch {
	case err == nil:
		return stored, nil
	case !errors.Is(err, ErrNotFound):
		return ir.Submission{}, fmt.Errorf("append submission: %w", err)
	}

	var taken bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE seq = ?)`, sub.Seq,
	).Scan(&taken); err != nil {
		return ir.Submission{}, fmt.Errorf("append submission: check seq: %w", err)
	}
	if taken || sub.Seq <= 0 {
		var last int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM submissions`).Scan(&last); err != nil {
			return ir.Submission{}, fmt.Errorf("append submission: last seq: %w", err)
		}
		sub.Seq = last + 1
		if sub.ID, err = ir.SubmissionID(sub.PollID, sub.Participant, sub.Answers, sub.Seq); err != nil {
			return ir.Submission{}, fmt.Errorf("append submission: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO submissions
		(id, poll_id, user_id, session_id, answers, submitted_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sub.ID,
		sub.PollID,
		sub.Participant.UserID,
		sub.Participant.SessionID,
		answersJSON,
		formatTime(sub.SubmittedAt),
		sub.Seq,
	); err != nil {
		return ir.Submission{}, fmt.Errorf("append submission: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ir.Submission{}, fmt.Errorf("append submission: commit: %w", err)
	}
	return sub, nil
}
