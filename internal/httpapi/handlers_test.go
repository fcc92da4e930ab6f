package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/branchpoll/internal/compiler"
	"github.com/roach88/branchpoll/internal/ir"
	"github.com/roach88/branchpoll/internal/service"
	"github.com/roach88/branchpoll/internal/store"
	"github.com/roach88/branchpoll/internal/testutil"
)

const testSecret = "test-secret"

func setupRouter(t *testing.T, cfg Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(context.Background(), st,
		service.WithClock(testutil.NewDeterministicClock()),
		service.WithSessionGenerator(testutil.NewSequentialSessionGenerator("")),
		service.WithNow(testutil.FrozenNow(testutil.Epoch)),
		service.WithLogger(logger),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Publish(ctx, compiler.NewBuilder("car", "Cars").
		Question("q1", "Do you own a car?", ir.SingleChoice, "Yes", "No").
		Question("q2", "What brand?", ir.FreeText).
		DependsOn("q1", ir.OpEquals, "Yes").
		MustBuild()))
	require.NoError(t, svc.Publish(ctx, compiler.NewBuilder("members", "Members only").
		AllowAnonymous(false).
		Question("q1", "Name?", ir.FreeText).
		MustBuild()))
	require.NoError(t, svc.Publish(ctx, compiler.NewBuilder("closed", "Closed").
		Active(false).
		Question("q1", "Name?", ir.FreeText).
		MustBuild()))

	cfg.Logger = logger
	return NewRouter(svc, st, cfg)
}

func do(t *testing.T, r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func signToken(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestHealthz(t *testing.T) {
	r := setupRouter(t, Config{})
	w := do(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, ir.Version, body["version"])
}

func TestGetPoll(t *testing.T) {
	r := setupRouter(t, Config{})

	w := do(t, r, http.MethodGet, "/api/polls/car", "")
	require.Equal(t, http.StatusOK, w.Code)
	var poll ir.Poll
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &poll))
	assert.Equal(t, "Cars", poll.Title)
	assert.Len(t, poll.Questions, 2)

	w = do(t, r, http.MethodGet, "/api/polls/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActiveQuestions(t *testing.T) {
	r := setupRouter(t, Config{})

	w := do(t, r, http.MethodPost, "/api/polls/car/active", `{"answers": {}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["questions"], 1)

	w = do(t, r, http.MethodPost, "/api/polls/car/active", `{"answers": {"q1": {"choice_id": "q1_c1"}}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["questions"], 2)

	w = do(t, r, http.MethodPost, "/api/polls/car/active", `{"answers": {"q1": 7}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAndResults(t *testing.T) {
	r := setupRouter(t, Config{})

	w := do(t, r, http.MethodPost, "/api/polls/car/submissions",
		`{"answers": {"q1": {"choice_id": "q1_c1"}, "q2": {"text": "Toyota"}}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "session-001", body["session_id"])
	assert.NotEmpty(t, body["submission_id"])

	w = do(t, r, http.MethodPost, "/api/polls/car/submissions",
		`{"answers": {"q1": {"choice_id": "q1_c2"}}, "session_id": "mine"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "mine", decode(t, w)["session_id"])

	w = do(t, r, http.MethodGet, "/api/polls/car/results", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PollID  string       `json:"poll_id"`
		Results []resultView `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "car", resp.PollID)
	assert.Equal(t, 2, resp.Results[0].TotalResponses)
	assert.Equal(t, []choiceView{
		{ChoiceID: "q1_c1", Text: "Yes", Count: 1, Percent: 50},
		{ChoiceID: "q1_c2", Text: "No", Count: 1, Percent: 50},
	}, resp.Results[0].Tally)
	assert.Equal(t, []string{"Toyota"}, resp.Results[1].Samples)
}

func TestSubmit_ErrorStatus(t *testing.T) {
	r := setupRouter(t, Config{})

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantKind string
	}{
		{"missing required", "/api/polls/car/submissions", `{"answers": {}}`, http.StatusBadRequest, "MISSING_REQUIRED"},
		{"invalid choice", "/api/polls/car/submissions", `{"answers": {"q1": {"choice_id": "zzz"}}}`, http.StatusBadRequest, "INVALID_CHOICE"},
		{"malformed body", "/api/polls/car/submissions", `{"answers": `, http.StatusBadRequest, ""},
		{"unknown poll", "/api/polls/nope/submissions", `{"answers": {}}`, http.StatusNotFound, ""},
		{"anonymous not allowed", "/api/polls/members/submissions", `{"answers": {"q1": {"text": "x"}}}`, http.StatusForbidden, ""},
		{"closed", "/api/polls/closed/submissions", `{"answers": {"q1": {"text": "x"}}}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, decode(t, w)["kind"])
			}
		})
	}
}

func TestAuth_BearerTokenIdentifiesUser(t *testing.T) {
	r := setupRouter(t, Config{JWTSecret: testSecret})
	token := signToken(t, testSecret, "alice", time.Now().Add(time.Hour))

	w := do(t, r, http.MethodPost, "/api/polls/members/submissions",
		`{"answers": {"q1": {"text": "Alice"}}}`, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	_, hasSession := decode(t, w)["session_id"]
	assert.False(t, hasSession)
}

func TestAuth_InvalidTokens(t *testing.T) {
	r := setupRouter(t, Config{JWTSecret: testSecret})

	tests := map[string]string{
		"wrong secret": signToken(t, "other", "alice", time.Now().Add(time.Hour)),
		"expired":      signToken(t, testSecret, "alice", time.Now().Add(-time.Hour)),
		"no subject":   signToken(t, testSecret, "", time.Now().Add(time.Hour)),
		"garbage":      "not-a-jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			w := do(t, r, http.MethodGet, "/api/polls/car", "", "Authorization", "Bearer "+token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuth_IgnoredWithoutSecret(t *testing.T) {
	r := setupRouter(t, Config{})

	w := do(t, r, http.MethodGet, "/api/polls/car", "", "Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmit_RateLimited(t *testing.T) {
	r := setupRouter(t, Config{JWTSecret: testSecret, SubmitRate: 0.001, SubmitBurst: 2})
	body := `{"answers": {"q1": {"choice_id": "q1_c2"}}, "session_id": "s1"}`

	for i := 0; i < 2; i++ {
		w := do(t, r, http.MethodPost, "/api/polls/car/submissions", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := do(t, r, http.MethodPost, "/api/polls/car/submissions", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// An authenticated user has its own bucket.
	token := signToken(t, testSecret, "alice", time.Now().Add(time.Hour))
	w = do(t, r, http.MethodPost, "/api/polls/car/submissions",
		`{"answers": {"q1": {"choice_id": "q1_c2"}}}`, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSubmit_RateLimitIgnoresSessionRotation(t *testing.T) {
	r := setupRouter(t, Config{SubmitRate: 0.001, SubmitBurst: 2})

	codes := make([]int, 4)
	for i := range codes {
		body := fmt.Sprintf(`{"answers": {"q1": {"choice_id": "q1_c2"}}, "session_id": "rotating-%d"}`, i)
		codes[i] = do(t, r, http.MethodPost, "/api/polls/car/submissions", body).Code
	}
	assert.Equal(t, []int{
		http.StatusCreated, http.StatusCreated,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestSubmit_RateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	r := setupRouter(t, Config{SubmitRate: 0.001, SubmitBurst: 1})
	body := `{"answers": {"q1": {"choice_id": "q1_c2"}}}`

	w := do(t, r, http.MethodPost, "/api/polls/car/submissions", body, "X-Forwarded-For", "203.0.113.1")
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, r, http.MethodPost, "/api/polls/car/submissions", body, "X-Forwarded-For", "203.0.113.2")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestListPolls(t *testing.T) {
	r := setupRouter(t, Config{})

	w := do(t, r, http.MethodGet, "/api/polls", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Polls []pollSummary `json:"polls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Polls, 3)
	assert.Equal(t, []string{"car", "closed", "members"},
		[]string{resp.Polls[0].ID, resp.Polls[1].ID, resp.Polls[2].ID})
	assert.Equal(t, 2, resp.Polls[0].Questions)
	assert.False(t, resp.Polls[1].IsActive)
	assert.False(t, resp.Polls[2].AllowAnonymous)
}

func TestCreatePoll(t *testing.T) {
	r := setupRouter(t, Config{JWTSecret: testSecret})
	auth := []string{"Authorization", "Bearer " + signToken(t, testSecret, "alice", time.Now().Add(time.Hour))}
	pets := `{"id": "pets", "title": "Pets", "creator_id": "mallory", "questions": [
		{"text": "Do you have a pet?", "type": "single_choice", "choices": ["Yes", "No"]},
		{"text": "Its name?", "type": "text", "depends_on": {"question_id": "q1", "value": "Yes"}}
	]}`

	w := do(t, r, http.MethodPost, "/api/polls", pets)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "anonymous callers cannot create polls")

	w = do(t, r, http.MethodPost, "/api/polls", pets, auth...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created ir.Poll
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "pets", created.ID)
	assert.Equal(t, "alice", created.CreatorID)
	assert.Equal(t, "q1_c1", created.Questions[0].Choices[0].ID)

	w = do(t, r, http.MethodGet, "/api/polls/pets", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode(t, w)["creator_id"])

	w = do(t, r, http.MethodPost, "/api/polls/pets/active", `{"answers": {"q1": {"choice_id": "q1_c1"}}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["questions"], 2)
}

func TestCreatePoll_GeneratesID(t *testing.T) {
	r := setupRouter(t, Config{JWTSecret: testSecret})
	auth := []string{"Authorization", "Bearer " + signToken(t, testSecret, "alice", time.Now().Add(time.Hour))}

	w := do(t, r, http.MethodPost, "/api/polls",
		`{"title": "Lunch", "questions": [{"text": "Where?", "type": "text"}]}`, auth...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, _ := decode(t, w)["id"].(string)
	require.NotEmpty(t, id)

	w = do(t, r, http.MethodGet, "/api/polls/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePoll_Errors(t *testing.T) {
	r := setupRouter(t, Config{JWTSecret: testSecret})
	auth := []string{"Authorization", "Bearer " + signToken(t, testSecret, "alice", time.Now().Add(time.Hour))}

	w := do(t, r, http.MethodPost, "/api/polls", `{"title": "", "questions": []}`, auth...)
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs, ok := decode(t, w)["errors"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, errs)
	assert.Equal(t, compiler.ErrPollTitleEmpty, errs[0].(map[string]any)["code"])

	w = do(t, r, http.MethodPost, "/api/polls", `{"title": "x", "unknown": 1}`, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/polls",
		`{"id": "car", "title": "Not cars", "questions": [{"text": "Q", "type": "text"}]}`, auth...)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResults_ClosedPollRefused(t *testing.T) {
	r := setupRouter(t, Config{})
	w := do(t, r, http.MethodGet, "/api/polls/closed/results", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "poll is closed")
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("bearer abc"))
	assert.Equal(t, "", extractBearerToken("Basic abc"))
	assert.Equal(t, "", extractBearerToken(""))
}
