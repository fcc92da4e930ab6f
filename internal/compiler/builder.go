package compiler

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/branchpoll/internal/ir"
)

// Builder assembles a poll in code. Each Question call appends at the next
// position; dependencies are declared against ids already added.
//
//	poll, err := compiler.NewBuilder("car", "Cars").
//		Question("q1", "Do you own a car?", ir.SingleChoice, "Yes", "No").
//		Question("q2", "What brand?", ir.FreeText).
//		DependsOn("q1", ir.OpEquals, "Yes").
//		Build()
type Builder struct {
	poll ir.Poll
}

// NewBuilder starts a poll with the given id and title. Anonymous
// participation and the active flag default to true.
func NewBuilder(id, title string) *Builder {
	return &Builder{poll: ir.Poll{
		ID:             id,
		Title:          title,
		AllowAnonymous: true,
		IsActive:       true,
		Questions:      []ir.Question{},
	}}
}

// Description sets the poll description.
func (b *Builder) Description(s string) *Builder {
	b.poll.Description = s
	return b
}

// Creator sets the creator id.
func (b *Builder) Creator(id string) *Builder {
	b.poll.CreatorID = id
	return b
}

// AllowAnonymous toggles anonymous participation.
func (b *Builder) AllowAnonymous(allow bool) *Builder {
	b.poll.AllowAnonymous = allow
	return b
}

// Active toggles whether the poll accepts submissions.
func (b *Builder) Active(active bool) *Builder {
	b.poll.IsActive = active
	return b
}

// ExpiresAt sets the expiry.
func (b *Builder) ExpiresAt(t time.Time) *Builder {
	t = t.UTC()
	b.poll.ExpiresAt = &t
	return b
}

// Question appends a required question. Choice ids are derived from the
// question id as <qid>_c1, <qid>_c2, ...
func (b *Builder) Question(id, text string, typ ir.QuestionType, choices ...string) *Builder {
	q := ir.Question{
		ID:         id,
		Position:   len(b.poll.Questions),
		Text:       text,
		Type:       typ,
		IsRequired: true,
	}
	for i, c := range choices {
		q.Choices = append(q.Choices, ir.Choice{ID: fmt.Sprintf("%s_c%d", id, i+1), Text: c})
	}
	b.poll.Questions = append(b.poll.Questions, q)
	return b
}

// Optional marks the last added question as not required.
func (b *Builder) Optional() *Builder {
	if q := b.last(); q != nil {
		q.IsRequired = false
	}
	return b
}

// DependsOn makes the last added question conditional on an earlier one.
func (b *Builder) DependsOn(questionID string, op ir.Operator, value string) *Builder {
	if q := b.last(); q != nil {
		q.DependsOn = &ir.DependsOn{QuestionID: questionID, Operator: op, Value: value}
	}
	return b
}

func (b *Builder) last() *ir.Question {
	if len(b.poll.Questions) == 0 {
		return nil
	}
	return &b.poll.Questions[len(b.poll.Questions)-1]
}

// Build validates and returns the poll. All validation errors are joined.
func (b *Builder) Build() (ir.Poll, error) {
	if errs := Validate(&b.poll); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return ir.Poll{}, errors.Join(joined...)
	}
	return b.poll, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or for polls known to be valid.
func (b *Builder) MustBuild() ir.Poll {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}
