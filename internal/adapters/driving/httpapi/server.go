// Package httpapi exposes the tutor over HTTP for web frontends.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driving"
	"github.com/brightpath-ai/mathtutor/internal/logger"
	"github.com/brightpath-ai/mathtutor/internal/ratelimit"
)

// prunePeriod is how often idle rate-limit buckets are evicted.
const prunePeriod = 5 * time.Minute

// Server wires the query pipeline to a gin router.
type Server struct {
	engine    *gin.Engine
	tutor     driving.TutorService
	index     driven.VectorIndex
	limiter   *ratelimit.Limiter
	startedAt time.Time
}

// Options configures the HTTP surface.
type Options struct {
	// RequestsPerMinute is the per-client rate limit. Zero disables limiting.
	RequestsPerMinute int

	// AllowedOrigins is the CORS allow-list. Empty allows any origin, which
	// suits local development.
	AllowedOrigins []string
}

// NewServer builds a configured router around the tutor service. The index is
// only consulted for the health endpoint.
func NewServer(tutor driving.TutorService, index driven.VectorIndex, opts Options) *Server {
	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		tutor:     tutor,
		index:     index,
		startedAt: time.Now(),
	}
	if opts.RequestsPerMinute > 0 {
		s.limiter = ratelimit.NewPerMinute(opts.RequestsPerMinute)
	}

	corsCfg := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-Request-Id")
	engine.Use(cors.New(corsCfg))

	engine.Use(requestID())
	engine.GET("/healthz", s.handleHealth)
	engine.POST("/chat", s.rateLimited(), s.handleChat)

	return s
}

// Handler returns the router for mounting or testing.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	if s.limiter != nil {
		go s.pruneLoop(ctx)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(prunePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.limiter.Prune(); removed > 0 {
				logger.Debug("Pruned %d idle rate-limit clients", removed)
			}
		}
	}
}

// requestID gives every request a stable ID, echoed in the response header
// and carried in the gin context for handlers, and writes one access log
// line per request.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("request_id", rid)
		c.Writer.Header().Set("X-Request-Id", rid)

		start := time.Now()
		c.Next()
		logger.Debug("[req] id=%s method=%s path=%s status=%d latency=%s",
			rid, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// rateLimited rejects over-limit clients immediately with 429 and a
// Retry-After hint. It never queues.
func (s *Server) rateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if s.limiter.Allow(key) {
			c.Next()
			return
		}
		retryAfter := s.limiter.RetryAfter(key)
		seconds := int(retryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		status, kind, msg := classifyError(domain.ErrRateLimited)
		c.AbortWithStatusJSON(status, errorResponse(kind, msg))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	chunks := 0
	if s.index != nil {
		if n, err := s.index.Count(c.Request.Context()); err == nil {
			chunks = n
		}
	}
	c.JSON(http.StatusOK, healthResponse{
		Status:         "healthy",
		Timestamp:      time.Now().UTC(),
		UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
		IndexedChunks:  chunks,
		ServiceVersion: Version,
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(
			"invalid_input", "Request body must be JSON with a \"message\" field."))
		return
	}

	start := time.Now()
	answer, err := s.tutor.Ask(c.Request.Context(), req.Message)
	if err != nil {
		status, kind, msg := classifyError(err)
		c.JSON(status, errorResponse(kind, msg))
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Answer:         answer.Text,
		UsedContext:    answer.UsedContext,
		Sources:        answer.Sources,
		ProcessingTime: time.Since(start).Seconds(),
		RequestID:      c.GetString("request_id"),
		Success:        true,
	})
}

// classifyError maps pipeline errors to HTTP status codes. Internal detail
// stays in the logs; clients get a stable type and a safe message.
func classifyError(err error) (status int, kind, message string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited",
			"Too many requests. Please slow down."
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		logger.Error("Embedding backend unavailable: %v", err)
		return http.StatusServiceUnavailable, "embedding_unavailable",
			"The tutor is temporarily unavailable. Please try again shortly."
	case errors.Is(err, domain.ErrGenerationUnavailable):
		logger.Error("Generation backend unavailable: %v", err)
		return http.StatusServiceUnavailable, "generation_unavailable",
			"The tutor is temporarily unavailable. Please try again shortly."
	default:
		logger.Error("Unhandled pipeline error: %v", err)
		return http.StatusInternalServerError, "internal",
			"Something went wrong. Please try again."
	}
}
