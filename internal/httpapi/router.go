package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/roach88/branchpoll/internal/ir"
)

// Polls is the service surface the handlers call. Implemented by
// *service.Service.
type Polls interface {
	ListPolls(ctx context.Context) ([]ir.Poll, error)
	Publish(ctx context.Context, p ir.Poll) error
	GetPoll(ctx context.Context, pollID string) (ir.Poll, error)
	GetActiveQuestions(ctx context.Context, pollID string, partial ir.Answers) ([]ir.Question, error)
	SubmitAnswers(ctx context.Context, pollID string, participant ir.ParticipantRef, answers ir.Answers) (ir.Submission, error)
	GetResults(ctx context.Context, pollID string) ([]ir.QuestionResult, error)
}

// HealthChecker reports whether the backing store is reachable.
// Implemented by *store.Store.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Config configures the router.
type Config struct {
	// JWTSecret enables bearer authentication. Empty means every request is
	// anonymous and Authorization headers are ignored.
	JWTSecret string

	// SubmitRate and SubmitBurst bound submissions per participant.
	// A zero SubmitRate disables limiting.
	SubmitRate  rate.Limit
	SubmitBurst int

	// AllowOrigins for CORS. Empty means "*".
	AllowOrigins []string

	// TrustedProxies may set X-Forwarded-For. Empty means none, so the
	// client IP is always the peer address.
	TrustedProxies []string

	Logger *slog.Logger
}

// handler holds the dependencies shared by all routes.
type handler struct {
	polls   Polls
	health  HealthChecker
	limiter *participantLimiter
	logger  *slog.Logger
}

// NewRouter builds the gin engine with CORS, request logging, recovery,
// optional authentication and the poll routes.
func NewRouter(polls Polls, health HealthChecker, cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		polls:   polls,
		health:  health,
		limiter: newParticipantLimiter(cfg.SubmitRate, cfg.SubmitBurst),
		logger:  logger,
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("ignoring trusted proxies", "proxies", cfg.TrustedProxies, "error", err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), requestLogger(logger))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/healthz", h.healthz)

	api := router.Group("/api")
	api.Use(authenticate([]byte(cfg.JWTSecret)))
	{
		polls := api.Group("/polls")
		polls.GET("", h.listPolls)
		polls.POST("", h.createPoll)
		polls.GET("/:id", h.getPoll)
		polls.POST("/:id/active", h.activeQuestions)
		polls.POST("/:id/submissions", h.submit)
		polls.GET("/:id/results", h.results)
	}

	return router
}

// requestLogger logs one structured line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
