package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSubmission = "branchpoll/submission/v1"
	DomainPoll       = "branchpoll/poll/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SubmissionID computes the content-addressed ID of a submission.
//
// SubmittedAt is excluded: the ID names what was answered and by whom at which
// logical position, so a replayed log reproduces the same IDs.
func SubmissionID(pollID string, participant ParticipantRef, answers Answers, seq int64) (string, error) {
	obj := map[string]any{
		"poll_id":    pollID,
		"user_id":    participant.UserID,
		"session_id": participant.SessionID,
		"answers":    answers,
		"seq":        seq,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SubmissionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSubmission, canonical), nil
}

// MustSubmissionID is like SubmissionID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSubmissionID(pollID string, participant ParticipantRef, answers Answers, seq int64) string {
	id, err := SubmissionID(pollID, participant, answers, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// PollHash fingerprints a poll definition. Two definitions with the same hash
// are interchangeable; the store uses it to make publish idempotent.
func PollHash(p Poll) (string, error) {
	questions := make([]any, len(p.Questions))
	for i, q := range p.Questions {
		choices := make([]any, len(q.Choices))
		for j, c := range q.Choices {
			choices[j] = map[string]any{"id": c.ID, "text": c.Text}
		}
		qo := map[string]any{
			"id":          q.ID,
			"position":    q.Position,
			"text":        q.Text,
			"type":        string(q.Type),
			"is_required": q.IsRequired,
			"choices":     choices,
		}
		if q.DependsOn != nil {
			qo["depends_on"] = map[string]any{
				"question_id": q.DependsOn.QuestionID,
				"operator":    string(q.DependsOn.Operator),
				"value":       q.DependsOn.Value,
			}
		}
		questions[i] = qo
	}

	obj := map[string]any{
		"id":              p.ID,
		"title":           p.Title,
		"description":     p.Description,
		"creator_id":      p.CreatorID,
		"allow_anonymous": p.AllowAnonymous,
		"is_active":       p.IsActive,
		"questions":       questions,
	}
	if p.ExpiresAt != nil {
		obj["expires_at"] = p.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("PollHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPoll, canonical), nil
}
