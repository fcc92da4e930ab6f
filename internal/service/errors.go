package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/branchpoll/internal/compiler"
)

var (
	// ErrPollClosed is returned when submitting to, or reading the results
	// of, a poll with is_active=false.
	ErrPollClosed = errors.New("poll is closed")

	// ErrPollExpired is returned when submitting to, or reading the results
	// of, a poll past expires_at while the expiry policy is enabled.
	ErrPollExpired = errors.New("poll has expired")

	// ErrAnonymousNotAllowed is returned when a participant without a user id
	// submits to a poll with allow_anonymous=false.
	ErrAnonymousNotAllowed = errors.New("poll does not accept anonymous submissions")
)

// InvalidPollError rejects a poll at publish time.
type InvalidPollError struct {
	PollID string
	Errors []compiler.ValidationError
}

// Error implements the error interface.
func (e *InvalidPollError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("invalid poll %q: %s", e.PollID, strings.Join(msgs, "; "))
}

// IsInvalidPoll returns true if err is or wraps an *InvalidPollError.
func IsInvalidPoll(err error) bool {
	var ipe *InvalidPollError
	return errors.As(err, &ipe)
}

// IsRejected reports whether err is a participation policy rejection
// (closed, expired or anonymous not allowed).
func IsRejected(err error) bool {
	return errors.Is(err, ErrPollClosed) ||
		errors.Is(err, ErrPollExpired) ||
		errors.Is(err, ErrAnonymousNotAllowed)
}
