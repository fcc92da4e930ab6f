package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/branchpoll/internal/ir"
)

// LoadPoll returns a published poll. Returns ErrNotFound if the id is unknown.
func (s *Store) LoadPoll(ctx context.Context, id string) (ir.Poll, error) {
	var definition string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM polls WHERE id = ?`, id).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Poll{}, fmt.Errorf("load poll %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Poll{}, fmt.Errorf("load poll: %w", err)
	}
	return unmarshalPoll(definition)
}

// ListPolls returns all published polls ordered by id.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListPolls(ctx context.Context) ([]ir.Poll, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT definition FROM polls
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query polls: %w", err)
	}
	defer rows.Close()

	polls := []ir.Poll{}
	for rows.Next() {
		var definition string
		if err := rows.Scan(&definition); err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		p, err := unmarshalPoll(definition)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate polls: %w", err)
	}
	return polls, nil
}

// ListSubmissions returns every submission for a poll.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the poll has no submissions.
func (s *Store) ListSubmissions(ctx context.Context, pollID string) ([]ir.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, user_id, session_id, answers, submitted_at, seq
		FROM submissions
		WHERE poll_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	subs := []ir.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

// ReadSubmission retrieves a single submission by id.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadSubmission(ctx context.Context, id string) (ir.Submission, error) {
	return readSubmission(ctx, s.db, id)
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readSubmission(ctx context.Context, q queryRower, id string) (ir.Submission, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, poll_id, user_id, session_id, answers, submitted_at, seq
		FROM submissions
		WHERE id = ?
	`, id)

	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Submission{}, fmt.Errorf("read submission %q: %w", id, ErrNotFound)
	}
	return sub, err
}

// CountSubmissions returns the number of submissions for a poll.
func (s *Store) CountSubmissions(ctx context.Context, pollID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE poll_id = ?`, pollID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// LastSeq returns the highest seq in the submission log, or 0 when empty.
// The service resumes its logical clock from this value.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM submissions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (ir.Submission, error) {
	var sub ir.Submission
	var answersJSON, submittedAt string

	err := row.Scan(
		&sub.ID,
		&sub.PollID,
		&sub.Participant.UserID,
		&sub.Participant.SessionID,
		&answersJSON,
		&submittedAt,
		&sub.Seq,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Submission{}, err
	}
	if err != nil {
		return ir.Submission{}, fmt.Errorf("scan submission: %w", err)
	}

	if sub.Answers, err = unmarshalAnswers(answersJSON); err != nil {
		return ir.Submission{}, err
	}
	if sub.SubmittedAt, err = parseTime(submittedAt); err != nil {
		return ir.Submission{}, err
	}
	return sub, nil
}
