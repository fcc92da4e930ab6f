package ir

import "time"

// QuestionType identifies the answer shape a question accepts.
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	FreeText       QuestionType = "text"
)

// ValidQuestionTypes defines allowed question types.
var ValidQuestionTypes = map[QuestionType]bool{
	SingleChoice:   true,
	MultipleChoice: true,
	FreeText:       true,
}

// IsChoice reports whether the type carries a choice list.
func (t QuestionType) IsChoice() bool {
	return t == SingleChoice || t == MultipleChoice
}

// Operator is the comparison applied by a DependsOn predicate.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

// ValidOperators defines allowed predicate operators.
var ValidOperators = map[Operator]bool{
	OpEquals:      true,
	OpNotEquals:   true,
	OpContains:    true,
	OpNotContains: true,
}

// Poll is a published survey definition. Immutable after publish.
type Poll struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	CreatorID      string     `json:"creator_id,omitempty"`
	AllowAnonymous bool       `json:"allow_anonymous"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Questions      []Question `json:"questions"`
}

// IsExpired reports whether now is past the poll's expiry.
func (p *Poll) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// Question looks up a question by id.
func (p *Poll) Question(id string) (Question, bool) {
	for _, q := range p.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Question is one entry in a poll. Position is 0-based and unique within the
// poll; a question may only depend on a question with a smaller position.
type Question struct {
	ID         string       `json:"id"`
	Position   int          `json:"position"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	IsRequired bool         `json:"is_required"`
	Choices    []Choice     `json:"choices,omitempty"`
	DependsOn  *DependsOn   `json:"depends_on,omitempty"`
}

// Choice looks up a choice by id.
func (q *Question) Choice(id string) (Choice, bool) {
	for _, c := range q.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Choice is a selectable option of a choice question.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DependsOn makes a question conditional on the answer to one earlier question.
type DependsOn struct {
	QuestionID string   `json:"question_id"`
	Operator   Operator `json:"operator"`
	Value      string   `json:"value"`
}

// ParticipantRef identifies who submitted. Exactly one field is set:
// UserID for authenticated participants, SessionID for anonymous ones.
type ParticipantRef struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// IsAnonymous reports whether the participant has no user identity.
func (p ParticipantRef) IsAnonymous() bool {
	return p.UserID == ""
}

// String returns a stable label for logs.
func (p ParticipantRef) String() string {
	if p.UserID != "" {
		return "user:" + p.UserID
	}
	return "session:" + p.SessionID
}

// Submission is one participant's accepted answer set. Append-only.
type Submission struct {
	ID          string         `json:"id"`
	PollID      string         `json:"poll_id"`
	Participant ParticipantRef `json:"participant"`
	Answers     Answers        `json:"answers"`
	SubmittedAt time.Time      `json:"submitted_at"`
	Seq         int64          `json:"seq"`
}

// ChoiceCount is the tally for one choice.
type ChoiceCount struct {
	ChoiceID string `json:"choice_id"`
	Text     string `json:"text"`
	Count    int    `json:"count"`
}

// QuestionResult is the derived aggregate for one question. Never persisted.
type QuestionResult struct {
	QuestionID     string        `json:"question_id"`
	QuestionType   QuestionType  `json:"question_type"`
	QuestionText   string        `json:"question_text"`
	TotalResponses int           `json:"total_responses"`
	Tally          []ChoiceCount `json:"tally,omitempty"`
	Samples        []string      `json:"samples,omitempty"`
}

// Counts returns the tally keyed by choice text.
func (r QuestionResult) Counts() map[string]int {
	counts := make(map[string]int, len(r.Tally))
	for _, c := range r.Tally {
		counts[c.Text] += c.Count
	}
	return counts
}

// Percent returns count as a percentage of TotalResponses, or 0 when there
// are no responses.
func (r QuestionResult) Percent(count int) float64 {
	if r.TotalResponses == 0 {
		return 0
	}
	return float64(count) * 100 / float64(r.TotalResponses)
}
