package compiler

import (
	"fmt"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/branchpoll/internal/ir"
)

// pollDef is the authoring shape of a poll, shared by the CUE and YAML
// front ends. Optional fields are pointers so that defaults can be applied.
type pollDef struct {
	ID             string        `yaml:"id"`
	Title          string        `yaml:"title"`
	Description    string        `yaml:"description"`
	CreatorID      string        `yaml:"creator_id"`
	AllowAnonymous *bool         `yaml:"allow_anonymous"`
	IsActive       *bool         `yaml:"is_active"`
	ExpiresAt      string        `yaml:"expires_at"`
	Questions      []questionDef `yaml:"questions"`
}

type questionDef struct {
	ID        string      `yaml:"id"`
	Text      string      `yaml:"text"`
	Type      string      `yaml:"type"`
	Required  *bool       `yaml:"required"`
	Choices   []choiceDef `yaml:"choices"`
	DependsOn *dependsDef `yaml:"depends_on"`
}

// choiceDef is written either as a bare string (the display text) or as
// {id, text}.
type choiceDef struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

type dependsDef struct {
	QuestionID string `yaml:"question_id"`
	Operator   string `yaml:"operator"`
	Value      string `yaml:"value"`
}

// CompilePoll parses a CUE value into a Poll.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the poll struct itself; its label is the poll id
// unless an explicit id field is given:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`poll: car: { title: "Cars", questions: [...] }`)
//	poll, err := CompilePoll(v.LookupPath(cue.ParsePath("poll.car")))
//
// CompilePoll only decodes. Structural rules are checked by Validate.
func CompilePoll(v cue.Value) (*ir.Poll, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := pollDef{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		def.ID = selectorName(labels[len(labels)-1])
	}

	var err error
	if id, ok, err := optString(v, "id"); err != nil {
		return nil, err
	} else if ok {
		def.ID = id
	}

	titleVal := v.LookupPath(cue.ParsePath("title"))
	if !titleVal.Exists() {
		return nil, &CompileError{
			Field:   "title",
			Message: "title is required",
			Pos:     v.Pos(),
		}
	}
	if def.Title, err = titleVal.String(); err != nil {
		return nil, formatCUEError(err)
	}

	if def.Description, _, err = optString(v, "description"); err != nil {
		return nil, err
	}
	if def.CreatorID, _, err = optString(v, "creator_id"); err != nil {
		return nil, err
	}
	if def.ExpiresAt, _, err = optString(v, "expires_at"); err != nil {
		return nil, err
	}
	if def.AllowAnonymous, err = optBool(v, "allow_anonymous"); err != nil {
		return nil, err
	}
	if def.IsActive, err = optBool(v, "is_active"); err != nil {
		return nil, err
	}

	questionsVal := v.LookupPath(cue.ParsePath("questions"))
	if !questionsVal.Exists() {
		return nil, &CompileError{
			Field:   "questions",
			Message: "questions are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := questionsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		q, err := parseQuestion(iter.Value())
		if err != nil {
			return nil, err
		}
		def.Questions = append(def.Questions, q)
	}

	return def.toPoll(v.Pos())
}

// parseQuestion extracts one question definition.
func parseQuestion(v cue.Value) (questionDef, error) {
	var q questionDef
	var err error

	if q.ID, _, err = optString(v, "id"); err != nil {
		return q, err
	}
	if q.Type, _, err = optString(v, "type"); err != nil {
		return q, err
	}
	if q.Required, err = optBool(v, "required"); err != nil {
		return q, err
	}

	textVal := v.LookupPath(cue.ParsePath("text"))
	if !textVal.Exists() {
		return q, &CompileError{
			Field:   "questions.text",
			Message: "question text is required",
			Pos:     v.Pos(),
		}
	}
	if q.Text, err = textVal.String(); err != nil {
		return q, formatCUEError(err)
	}

	choicesVal := v.LookupPath(cue.ParsePath("choices"))
	if choicesVal.Exists() {
		iter, err := choicesVal.List()
		if err != nil {
			return q, formatCUEError(err)
		}
		for iter.Next() {
			c, err := parseChoice(iter.Value())
			if err != nil {
				return q, err
			}
			q.Choices = append(q.Choices, c)
		}
	}

	depVal := v.LookupPath(cue.ParsePath("depends_on"))
	if depVal.Exists() {
		dep, err := parseDependsOn(depVal)
		if err != nil {
			return q, err
		}
		q.DependsOn = &dep
	}

	return q, nil
}

// parseChoice supports a bare string or {id, text}.
func parseChoice(v cue.Value) (choiceDef, error) {
	if text, err := v.String(); err == nil {
		return choiceDef{Text: text}, nil
	}

	textVal := v.LookupPath(cue.ParsePath("text"))
	if !textVal.Exists() {
		return choiceDef{}, &CompileError{
			Field:   "choices",
			Message: "choice must be a string or object with text field",
			Pos:     v.Pos(),
		}
	}

	var c choiceDef
	var err error
	if c.Text, err = textVal.String(); err != nil {
		return c, formatCUEError(err)
	}
	if c.ID, _, err = optString(v, "id"); err != nil {
		return c, err
	}
	return c, nil
}

func parseDependsOn(v cue.Value) (dependsDef, error) {
	var d dependsDef
	var err error

	qVal := v.LookupPath(cue.ParsePath("question_id"))
	if !qVal.Exists() {
		return d, &CompileError{
			Field:   "depends_on.question_id",
			Message: "depends_on must name a question",
			Pos:     v.Pos(),
		}
	}
	if d.QuestionID, err = qVal.String(); err != nil {
		return d, formatCUEError(err)
	}
	if d.Operator, _, err = optString(v, "operator"); err != nil {
		return d, err
	}

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if valueVal.Exists() {
		if d.Value, err = scalarString(valueVal); err != nil {
			return d, err
		}
	}
	return d, nil
}

// scalarString renders a string, int or bool CUE value as a string.
// Predicate values are compared as strings.
func scalarString(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		return s, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return "", formatCUEError(err)
		}
		return strconv.FormatInt(n, 10), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return "", formatCUEError(err)
		}
		return strconv.FormatBool(b), nil
	default:
		return "", &CompileError{
			Field:   "depends_on.value",
			Message: fmt.Sprintf("value must be a string, int or bool, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optBool(v cue.Value, field string) (*bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return &b, nil
}

func selectorName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// toPoll applies defaults and produces the published shape:
//   - position is the list index
//   - question ids default to q1..qn, choice ids to <qid>_c1..
//   - required defaults to true, operator to equals
//   - allow_anonymous and is_active default to true
func (d pollDef) toPoll(pos token.Pos) (*ir.Poll, error) {
	poll := &ir.Poll{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		CreatorID:      d.CreatorID,
		AllowAnonymous: boolOr(d.AllowAnonymous, true),
		IsActive:       boolOr(d.IsActive, true),
		Questions:      make([]ir.Question, 0, len(d.Questions)),
	}

	if d.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, d.ExpiresAt)
		if err != nil {
			return nil, &CompileError{
				Field:   "expires_at",
				Message: fmt.Sprintf("expires_at must be RFC 3339: %v", err),
				Pos:     pos,
			}
		}
		t = t.UTC()
		poll.ExpiresAt = &t
	}

	for i, qd := range d.Questions {
		q := ir.Question{
			ID:         qd.ID,
			Position:   i,
			Text:       qd.Text,
			Type:       ir.QuestionType(qd.Type),
			IsRequired: boolOr(qd.Required, true),
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		for j, cd := range qd.Choices {
			c := ir.Choice{ID: cd.ID, Text: cd.Text}
			if c.ID == "" {
				c.ID = fmt.Sprintf("%s_c%d", q.ID, j+1)
			}
			q.Choices = append(q.Choices, c)
		}
		if qd.DependsOn != nil {
			op := ir.Operator(qd.DependsOn.Operator)
			if op == "" {
				op = ir.OpEquals
			}
			q.DependsOn = &ir.DependsOn{
				QuestionID: qd.DependsOn.QuestionID,
				Operator:   op,
				Value:      qd.DependsOn.Value,
			}
		}
		poll.Questions = append(poll.Questions, q)
	}

	return poll, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
