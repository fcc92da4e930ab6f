package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roach88/branchpoll/internal/compiler"
	"github.com/roach88/branchpoll/internal/engine"
	"github.com/roach88/branchpoll/internal/ir"
	"github.com/roach88/branchpoll/internal/service"
	"github.com/roach88/branchpoll/internal/store"
)

// maxDefinitionBytes bounds a poll definition sent to POST /api/polls.
const maxDefinitionBytes = 1 << 20

type pollSummary struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	CreatorID      string  `json:"creator_id,omitempty"`
	IsActive       bool    `json:"is_active"`
	AllowAnonymous bool    `json:"allow_anonymous"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
	Questions      int     `json:"questions"`
}

type answersRequest struct {
	Answers ir.Answers `json:"answers"`
}

type submitRequest struct {
	Answers   ir.Answers `json:"answers"`
	SessionID string     `json:"session_id"`
}

type submitResponse struct {
	SubmissionID string `json:"submission_id"`
	SessionID    string `json:"session_id,omitempty"`
	Seq          int64  `json:"seq"`
}

type choiceView struct {
	ChoiceID string  `json:"choice_id"`
	Text     string  `json:"text"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

type resultView struct {
	QuestionID     string          `json:"question_id"`
	QuestionType   ir.QuestionType `json:"question_type"`
	QuestionText   string          `json:"question_text"`
	TotalResponses int             `json:"total_responses"`
	Tally          []choiceView    `json:"tally,omitempty"`
	Samples        []string        `json:"samples,omitempty"`
}

func (h *handler) healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": ir.Version})
}

func (h *handler) listPolls(c *gin.Context) {
	polls, err := h.polls.ListPolls(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]pollSummary, len(polls))
	for i, p := range polls {
		out[i] = pollSummary{
			ID:             p.ID,
			Title:          p.Title,
			Description:    p.Description,
			CreatorID:      p.CreatorID,
			IsActive:       p.IsActive,
			AllowAnonymous: p.AllowAnonymous,
			Questions:      len(p.Questions),
		}
		if p.ExpiresAt != nil {
			ts := p.ExpiresAt.Format(time.RFC3339)
			out[i].ExpiresAt = &ts
		}
	}
	c.JSON(http.StatusOK, gin.H{"polls": out})
}

// createPoll publishes a poll sent in the authoring shape. Only
// authenticated users may create polls; the caller becomes the creator.
func (h *handler) createPoll(c *gin.Context) {
	creator := userID(c)
	if creator == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required to create polls"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxDefinitionBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	poll, err := compiler.ParsePollDefinition(body, uuid.NewString())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	poll.CreatorID = creator

	if err := h.polls.Publish(c.Request.Context(), poll); err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("poll created", "poll", poll.ID, "creator", creator)
	c.JSON(http.StatusCreated, poll)
}

func (h *handler) getPoll(c *gin.Context) {
	poll, err := h.polls.GetPoll(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

func (h *handler) activeQuestions(c *gin.Context) {
	var req answersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Answers == nil {
		req.Answers = ir.Answers{}
	}

	questions, err := h.polls.GetActiveQuestions(c.Request.Context(), c.Param("id"), req.Answers)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (h *handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Session ids come from the client, so anonymous callers share a bucket
	// per IP.
	participant := ir.ParticipantRef{UserID: userID(c), SessionID: req.SessionID}
	key := "ip:" + c.ClientIP()
	if participant.UserID != "" {
		key = "user:" + participant.UserID
	}
	if !h.limiter.Allow(key) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many submissions, try again later"})
		return
	}

	sub, err := h.polls.SubmitAnswers(c.Request.Context(), c.Param("id"), participant, req.Answers)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submitResponse{
		SubmissionID: sub.ID,
		SessionID:    sub.Participant.SessionID,
		Seq:          sub.Seq,
	})
}

func (h *handler) results(c *gin.Context) {
	pollID := c.Param("id")
	results, err := h.polls.GetResults(c.Request.Context(), pollID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	views := make([]resultView, len(results))
	for i, r := range results {
		v := resultView{
			QuestionID:     r.QuestionID,
			QuestionType:   r.QuestionType,
			QuestionText:   r.QuestionText,
			TotalResponses: r.TotalResponses,
			Samples:        r.Samples,
		}
		for _, cc := range r.Tally {
			v.Tally = append(v.Tally, choiceView{
				ChoiceID: cc.ChoiceID,
				Text:     cc.Text,
				Count:    cc.Count,
				Percent:  r.Percent(cc.Count),
			})
		}
		views[i] = v
	}
	c.JSON(http.StatusOK, gin.H{"poll_id": pollID, "results": views})
}

// writeError maps service errors to status codes.
func (h *handler) writeError(c *gin.Context, err error) {
	var ve *engine.ValidationError
	var ipe *service.InvalidPollError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &ipe):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll definition", "errors": ipe.Errors})
	case errors.Is(err, store.ErrPollExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       ve.Message,
			"kind":        ve.Kind,
			"question_id": ve.QuestionID,
			"choice_id":   ve.ChoiceID,
		})
	case errors.Is(err, service.ErrAnonymousNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPollClosed), errors.Is(err, service.ErrPollExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case engine.IsConfigurationError(err):
		h.logger.Error("poll configuration error", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
