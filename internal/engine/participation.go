package engine

import (
	"sync"

	"github.com/roach88/branchpoll/internal/ir"
)

// Participation collects one participant's answers to one poll while they
// fill it in. It replaces shared form state: every session owns its own
// Participation and nothing is global.
//
// Thread-safety: Participation is safe for concurrent use.
type Participation struct {
	mu      sync.Mutex
	poll    ir.Poll
	answers ir.Answers
}

// NewParticipation starts an empty answer set for poll.
// Returns *ConfigurationError if the poll's dependencies are malformed.
func NewParticipation(poll ir.Poll) (*Participation, error) {
	if err := CheckDependencies(poll.Questions); err != nil {
		return nil, err
	}
	return &Participation{
		poll:    poll,
		answers: ir.Answers{},
	}, nil
}

// Answer records the answer to a question, replacing any earlier one.
// A nil or Unanswered value clears the answer.
func (p *Participation) Answer(questionID string, value ir.AnswerValue) error {
	if _, ok := p.poll.Question(questionID); !ok {
		return &ValidationError{
			Kind:       KindUnknownQuestion,
			QuestionID: questionID,
			Message:    "answer does not belong to any question of the poll",
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, unanswered := value.(ir.Unanswered); unanswered || value == nil {
		delete(p.answers, questionID)
		return nil
	}
	p.answers[questionID] = value
	return nil
}

// Clear removes the answer to a question.
func (p *Participation) Clear(questionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.answers, questionID)
}

// Active returns the questions currently shown, in position order.
func (p *Participation) Active() ([]ir.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ActiveList(p.poll.Questions, p.answers)
}

// Validate checks the collected answers as a submission would be checked.
func (p *Participation) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	active, err := ActiveQuestions(p.poll.Questions, p.answers)
	if err != nil {
		return err
	}
	return Validate(active, p.poll.Questions, p.answers)
}

// Answers returns a copy of the collected answers with the answers to
// currently inactive questions dropped. Hidden answers are kept internally so
// that they come back if the participant restores the prerequisite.
func (p *Participation) Answers() ir.Answers {
	p.mu.Lock()
	defer p.mu.Unlock()

	active, err := ActiveQuestions(p.poll.Questions, p.answers)
	if err != nil {
		return ir.Answers{}
	}

	out := make(ir.Answers, len(p.answers))
	for id, v := range p.answers {
		if active.Contains(id) {
			out[id] = v
		}
	}
	return out
}
