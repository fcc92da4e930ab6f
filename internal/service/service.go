package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/branchpoll/internal/compiler"
	"github.com/roach88/branchpoll/internal/engine"
	"github.com/roach88/branchpoll/internal/ir"
)

// Repository is the storage a Service needs. Implemented by *store.Store.
type Repository interface {
	SavePoll(ctx context.Context, p ir.Poll) error
	LoadPoll(ctx context.Context, id string) (ir.Poll, error)
	AppendSubmission(ctx context.Context, sub ir.Submission) (ir.Submission, error)
	ListPolls(ctx context.Context) ([]ir.Poll, error)
	ListSubmissions(ctx context.Context, pollID string) ([]ir.Submission, error)
	LastSeq(ctx context.Context) (int64, error)
}

// SeqClock proposes seqs for submissions. Implemented by *engine.Clock and
// *testutil.DeterministicClock.
//
// The repository has the last word: when another writer sharing the database
// already took the proposed seq, the stored seq differs and is fed back
// through Observe.
type SeqClock interface {
	Next() int64
	Observe(seq int64)
}

// Service implements the participant and reporting operations.
type Service struct {
	repo       Repository
	clock      SeqClock
	sessions   engine.SessionGenerator
	now        func() time.Time
	sampleSize int
	expiry     bool
	openOnly   bool
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the logical clock. By default New resumes an engine.Clock
// from the repository's last seq.
func WithClock(c SeqClock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithSessionGenerator sets the generator for anonymous session tokens.
//
// Default: engine.UUIDv7Generator
func WithSessionGenerator(g engine.SessionGenerator) Option {
	return func(s *Service) {
		s.sessions = g
	}
}

// WithNow sets the wall clock used for expiry checks and submitted_at.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSampleSize bounds the free-text samples in results.
//
// Default: engine.DefaultSampleSize
func WithSampleSize(n int) Option {
	return func(s *Service) {
		s.sampleSize = n
	}
}

// WithExpiryBlocksParticipation controls whether submissions after
// expires_at are rejected with ErrPollExpired. Enabled by default.
func WithExpiryBlocksParticipation(enabled bool) Option {
	return func(s *Service) {
		s.expiry = enabled
	}
}

// WithResultsAfterClose lets GetResults report polls that are closed or
// expired. By default results are only served while the poll is open.
func WithResultsAfterClose(enabled bool) Option {
	return func(s *Service) {
		s.openOnly = !enabled
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a Service over repo.
//
// Unless WithClock is given, the logical clock resumes after the highest seq
// already stored, so restarts never reuse a seq.
func New(ctx context.Context, repo Repository, opts ...Option) (*Service, error) {
	s := &Service{
		repo:       repo,
		sessions:   engine.UUIDv7Generator{},
		now:        time.Now,
		sampleSize: engine.DefaultSampleSize,
		expiry:     true,
		openOnly:   true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.clock == nil {
		last, err := repo.LastSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("resume clock: %w", err)
		}
		s.clock = engine.NewClockAt(last)
	}

	return s, nil
}

// Publish validates a poll definition and stores it. Publishing the same
// definition twice is a no-op.
func (s *Service) Publish(ctx context.Context, p ir.Poll) error {
	if errs := compiler.Validate(&p); len(errs) > 0 {
		return &InvalidPollError{PollID: p.ID, Errors: errs}
	}
	if err := s.repo.SavePoll(ctx, p); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	s.logger.Info("poll published", "poll", p.ID, "questions", len(p.Questions))
	return nil
}

// ListPolls returns every published poll ordered by id.
func (s *Service) ListPolls(ctx context.Context) ([]ir.Poll, error) {
	polls, err := s.repo.ListPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return polls, nil
}

// GetPoll returns a published poll after checking its dependencies.
func (s *Service) GetPoll(ctx context.Context, pollID string) (ir.Poll, error) {
	p, err := s.repo.LoadPoll(ctx, pollID)
	if err != nil {
		return ir.Poll{}, err
	}
	if err := engine.CheckDependencies(p.Questions); err != nil {
		s.logger.Error("stored poll is malformed", "poll", pollID, "error", err)
		return ir.Poll{}, err
	}
	return p, nil
}

// GetActiveQuestions returns the questions to show for a partial answer
// set, in position order.
func (s *Service) GetActiveQuestions(ctx context.Context, pollID string, partial ir.Answers) ([]ir.Question, error) {
	p, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return engine.ActiveList(p.Questions, partial)
}

// SubmitAnswers validates and records one participant's answer set.
//
// Anonymous participants without a session id are issued one; the returned
// submission carries it. Nothing is stored unless every check passes.
func (s *Service) SubmitAnswers(ctx context.Context, pollID string, participant ir.ParticipantRef, answers ir.Answers) (ir.Submission, error) {
	p, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return ir.Submission{}, err
	}

	now := s.now().UTC()
	if err := s.checkOpen(&p, now, "submit to"); err != nil {
		s.logger.Debug("submission rejected", "poll", pollID, "error", err)
		return ir.Submission{}, err
	}

	participant, err = s.resolveParticipant(&p, participant)
	if err != nil {
		s.logger.Debug("submission rejected", "poll", pollID, "error", err)
		return ir.Submission{}, err
	}

	answers = compact(answers)
	active, err := engine.ActiveQuestions(p.Questions, answers)
	if err != nil {
		return ir.Submission{}, err
	}
	if err := engine.Validate(active, p.Questions, answers); err != nil {
		s.logger.Debug("submission invalid", "poll", pollID, "participant", participant.String(), "error", err)
		return ir.Submission{}, err
	}

	seq := s.clock.Next()
	id, err := ir.SubmissionID(pollID, participant, answers, seq)
	if err != nil {
		return ir.Submission{}, fmt.Errorf("submit answers: %w", err)
	}
	sub := ir.Submission{
		ID:          id,
		PollID:      pollID,
		Participant: participant,
		Answers:     answers,
		SubmittedAt: now,
		Seq:         seq,
	}
	stored, err := s.repo.AppendSubmission(ctx, sub)
	if err != nil {
		return ir.Submission{}, fmt.Errorf("submit answers: %w", err)
	}
	if stored.Seq != seq {
		s.logger.Debug("seq taken by another writer", "proposed", seq, "stored", stored.Seq)
		s.clock.Observe(stored.Seq)
	}
	sub = stored

	s.logger.Info("submission accepted",
		"id", sub.ID,
		"poll", pollID,
		"participant", participant.String(),
		"seq", sub.Seq,
	)
	return sub, nil
}

// GetResults recomputes the per-question results of a poll from its full
// submission log. Closed or expired polls are refused with ErrPollClosed or
// ErrPollExpired unless WithResultsAfterClose is set.
func (s *Service) GetResults(ctx context.Context, pollID string) ([]ir.QuestionResult, error) {
	p, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if s.openOnly {
		if err := s.checkOpen(&p, s.now().UTC(), "results of"); err != nil {
			return nil, err
		}
	}
	subs, err := s.repo.ListSubmissions(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	results, err := engine.AggregateWith(p.Questions, subs, engine.AggregateOptions{SampleSize: s.sampleSize})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("results computed", "poll", pollID, "submissions", len(subs))
	return results, nil
}

func (s *Service) checkOpen(p *ir.Poll, now time.Time, op string) error {
	if !p.IsActive {
		return fmt.Errorf("%s %q: %w", op, p.ID, ErrPollClosed)
	}
	if s.expiry && p.IsExpired(now) {
		return fmt.Errorf("%s %q: %w", op, p.ID, ErrPollExpired)
	}
	return nil
}

// resolveParticipant keeps exactly one key: an authenticated user id wins
// over a session id.
func (s *Service) resolveParticipant(p *ir.Poll, ref ir.ParticipantRef) (ir.ParticipantRef, error) {
	if ref.UserID != "" {
		return ir.ParticipantRef{UserID: ref.UserID}, nil
	}
	if !p.AllowAnonymous {
		return ir.ParticipantRef{}, fmt.Errorf("submit to %q: %w", p.ID, ErrAnonymousNotAllowed)
	}
	if ref.SessionID == "" {
		ref.SessionID = s.sessions.Generate()
	}
	return ir.ParticipantRef{SessionID: ref.SessionID}, nil
}

// compact drops Unanswered entries; a missing key already means unanswered.
func compact(answers ir.Answers) ir.Answers {
	out := make(ir.Answers, len(answers))
	for id, v := range answers {
		if _, skip := v.(ir.Unanswered); skip || v == nil {
			continue
		}
		out[id] = v
	}
	return out
}
