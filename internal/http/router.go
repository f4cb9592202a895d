// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// identity, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/config"
	"github.com/tbourn/go-cfp-voting/internal/docs"
	"github.com/tbourn/go-cfp-voting/internal/domain"
	"github.com/tbourn/go-cfp-voting/internal/http/handlers"
	"github.com/tbourn/go-cfp-voting/internal/http/middleware"
	"github.com/tbourn/go-cfp-voting/internal/mail"
	"github.com/tbourn/go-cfp-voting/internal/repo"
	"github.com/tbourn/go-cfp-voting/internal/services"
)

// voteRepoShim adapts the repository free functions to the services.VoteRepo
// interface expected by the VotingService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type voteRepoShim struct{}

func (voteRepoShim) GetCategory(ctx context.Context, db *gorm.DB, conferenceID, id uint) (*domain.Category, error) {
	return repo.GetCategory(ctx, db, conferenceID, id)
}

func (voteRepoShim) ListCategoryProgress(ctx context.Context, db *gorm.DB, conferenceID uint, userID string) ([]repo.CategoryProgress, error) {
	return repo.ListCategoryProgress(ctx, db, conferenceID, userID)
}

func (voteRepoShim) FindPendingVote(ctx context.Context, db *gorm.DB, userID string, categoryID uint) (*domain.Vote, error) {
	return repo.FindPendingVote(ctx, db, userID, categoryID)
}

func (voteRepoShim) EligibleTalks(ctx context.Context, db *gorm.DB, userID string, categoryID uint) ([]repo.Candidate, error) {
	return repo.EligibleTalks(ctx, db, userID, categoryID)
}

func (voteRepoShim) HasSkippedVotes(ctx context.Context, db *gorm.DB, userID string, categoryID uint) (bool, error) {
	return repo.HasSkippedVotes(ctx, db, userID, categoryID)
}

func (voteRepoShim) ClearSkipped(ctx context.Context, db *gorm.DB, userID string, categoryID *uint) (int64, error) {
	return repo.ClearSkipped(ctx, db, userID, categoryID)
}

func (voteRepoShim) CreateVote(ctx context.Context, db *gorm.DB, userID string, talkID uint) (*domain.Vote, error) {
	return repo.CreateVote(ctx, db, userID, talkID)
}

func (voteRepoShim) GetVoteByPublicID(ctx context.Context, db *gorm.DB, publicID, userID string) (*domain.Vote, error) {
	return repo.GetVoteByPublicID(ctx, db, publicID, userID)
}

func (voteRepoShim) UpdateVoteDecision(ctx context.Context, db *gorm.DB, v *domain.Vote) error {
	return repo.UpdateVoteDecision(ctx, db, v)
}

func (voteRepoShim) CountVotes(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountVotes(ctx, db, userID)
}

func (voteRepoShim) ListVotesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Vote, error) {
	return repo.ListVotesPage(ctx, db, userID, offset, limit)
}

func (voteRepoShim) VotesStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.VotesStats(ctx, db, userID)
}

// statsRepoShim proxies the talk aggregate queries.
type statsRepoShim struct{}

func (statsRepoShim) ListTalkStats(ctx context.Context, db *gorm.DB, conferenceID uint) ([]repo.TalkStats, error) {
	return repo.ListTalkStats(ctx, db, conferenceID)
}

func (statsRepoShim) TalkVoteStats(ctx context.Context, db *gorm.DB, talkIDs ...uint) ([]repo.TalkStats, error) {
	return repo.TalkVoteStats(ctx, db, talkIDs...)
}

// conductRepoShim proxies the talk and conduct report functions.
type conductRepoShim struct{}

func (conductRepoShim) GetTalk(ctx context.Context, db *gorm.DB, id uint) (*domain.Talk, error) {
	return repo.GetTalk(ctx, db, id)
}

func (conductRepoShim) CreateConductReport(ctx context.Context, db *gorm.DB, talkID uint, userID *string, text string) (*domain.ConductReport, error) {
	return repo.CreateConductReport(ctx, db, talkID, userID, text)
}

func (conductRepoShim) GetConductReport(ctx context.Context, db *gorm.DB, id uint) (*domain.ConductReport, error) {
	return repo.GetConductReport(ctx, db, id)
}

// idempotencyStore backs handlers.IdempotencyStore with the idempotency table.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// replay adapts the table to middleware.IdempotencyLookup. A missing or
// expired record is not an error.
func (s idempotencyStore) replay(ctx context.Context, userID, scope, key string, now time.Time) (*middleware.Replay, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, repo.IdemKey{UserID: userID, Scope: scope, Key: key}, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, nil
}

func (s idempotencyStore) Save(ctx context.Context, userID, scope, key, resourceID string, status int) error {
	_, err := repo.SaveIdempotency(ctx, s.db, repo.IdemKey{UserID: userID, Scope: scope, Key: key}, resourceID, status, s.ttl)
	return err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), identity,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the versioned public API under /api/v*.
// conferenceID is the conference every request votes for; notifier delivers
// conduct report mails.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter and gzip
//  6. Metrics
//  7. Auth: resolve the caller before anything keyed by user
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, conferenceID uint, notifier mail.Notifier, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Identity (bearer token, or X-User-ID without a secret)
	r.Use(middleware.Auth(middleware.AuthOptions{Secret: []byte(cfg.Auth.JWTSecret)}))

	// 8) Idempotency validation (before rate limiting)
	idem := idempotencyStore{db: db, ttl: cfg.IdempotencyTTL}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.replay))

	// 9) Token-bucket rate limiter per user/IP; selection reserves talks so it
	// gets its own, tighter bucket.
	rl := middleware.NewRateLimiter(
		middleware.RatePolicy{RPS: cfg.RateRPS, Burst: cfg.RateBurst},
		middleware.KeyByUserOrIP(),
	).Route(
		joinPath(apiBase, "/vote/categories/:id/next"),
		middleware.RatePolicy{RPS: cfg.RateSelectRPS, Burst: cfg.RateSelectBurst},
	)
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Location", handlers.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		// The session cookie needs credentials on an allowlisted origin.
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStore:         false,
		EnablePolicy:    true,
		PrivatePrefixes: []string{joinPath(apiBase, "/vote")},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/notifier
	gate := services.NewGate()
	voteSvc := services.NewVotingService(db, voteRepoShim{}, gate)
	if cfg.Voting.SelectMaxAttempts > 0 {
		voteSvc.MaxAttempts = cfg.Voting.SelectMaxAttempts
	}
	statsSvc := services.NewStatsService(db, statsRepoShim{})
	conductSvc := services.NewConductService(db, conductRepoShim{}, notifier, cfg.Voting.ReportMaxRunes)

	h := handlers.New(voteSvc, statsSvc, conductSvc, idem)
	h.BasePath = apiBase

	// Public API
	api := groupWithPrefix(r, apiBase)
	api.Use(middleware.ConferenceContext(func(ctx context.Context) (*domain.Conference, error) {
		return repo.GetConference(ctx, db, conferenceID)
	}))
	{
		// Voting
		vote := api.Group("/vote", middleware.RequireUser())
		vote.GET("/categories", h.ListCategories)
		vote.POST("/categories/:id/next", h.NextTalk)
		vote.GET("/cast/:public_id", h.GetBallot)
		vote.POST("/cast/:public_id", h.CastVote)
		vote.POST("/clear-skipped", h.ClearSkipped)
		vote.GET("/summary", h.Summary)

		api.GET("/conference", h.ConferenceStatus)

		// Conduct
		api.POST("/talks/:id/conduct-reports", middleware.RequireUser(), h.ReportConduct)

		// Organizers
		admin := api.Group("/admin", middleware.RequireOrganizer())
		admin.GET("/talks/stats", h.TalkStats)
		admin.GET("/talks/:id/stats", h.TalkStat)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath appends p to the API base, treating "/" (or empty) as root.
func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
