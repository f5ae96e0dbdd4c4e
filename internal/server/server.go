package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/openfleet/internal/document"
	"github.com/openfleet/internal/logging"
	"github.com/openfleet/internal/review"
)

// Options configures a review server.
type Options struct {
	Host string
	// Port 0 binds an available port; Start returns the resolved URL.
	Port int
	// PollIntervalMs is handed to the client page.
	PollIntervalMs int
	// AuditDir, when set, receives one append-only log per review.
	AuditDir string
	Logger   zerolog.Logger
}

// reviewSession ties one loaded document to its review state.
type reviewSession struct {
	docs  *document.Store
	store *review.Store
	audit *logging.AuditLog
}

// Server serves the review UI and its JSON API. It holds everything in
// memory; process lifetime is review lifetime.
type Server struct {
	echo *echo.Echo
	opts Options
	log  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*reviewSession
}

// NewServer creates a review server with routes and middleware wired.
func NewServer(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if opts.PollIntervalMs <= 0 {
		opts.PollIntervalMs = 5000
	}

	s := &Server{
		echo:     e,
		opts:     opts,
		log:      opts.Logger,
		sessions: make(map[string]*reviewSession),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(50))))
	e.Use(s.requestLogger())

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	s.echo.POST("/api/reviews", s.createReview)
	s.echo.GET("/api/reviews/:id", s.getReview)
	s.echo.GET("/api/reviews/:id/document", s.getDocument)
	s.echo.GET("/api/reviews/:id/threads", s.listThreads)
	s.echo.POST("/api/reviews/:id/threads", s.createThread)
	s.echo.POST("/api/reviews/:id/threads/:tid/replies", s.addReply)
	s.echo.PATCH("/api/reviews/:id/threads/:tid", s.patchThread)
	s.echo.POST("/api/reviews/:id/submit", s.submitReview)

	s.echo.GET("/review/:id", s.reviewPage)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			s.log.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Msg("request")
			return err
		}
	}
}

// CreateReview loads the document at path and registers a new review
// in pending state. Nothing is persisted if the load fails.
func (s *Server) CreateReview(documentPath, title string) (review.Review, error) {
	doc, err := document.Load(documentPath)
	if err != nil {
		return review.Review{}, err
	}

	store := review.NewStore(documentPath, title)
	rev := store.Review()

	var audit *logging.AuditLog
	if s.opts.AuditDir != "" {
		audit, err = logging.OpenAudit(s.opts.AuditDir, rev.ID)
		if err != nil {
			// Auditing is best-effort; the review proceeds without it.
			s.log.Warn().Err(err).Msg("Failed to open review audit log")
		} else {
			audit.Event("Review opened for %s (%d lines)", documentPath, doc.LineCount())
		}
	}

	s.mu.Lock()
	s.sessions[rev.ID] = &reviewSession{
		docs:  document.NewStore(doc),
		store: store,
		audit: audit,
	}
	s.mu.Unlock()

	s.log.Info().Str("review_id", rev.ID).Str("document", documentPath).Msg("Review created")
	return rev, nil
}

func (s *Server) session(reviewID string) *reviewSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[reviewID]
}

// Handler exposes the underlying handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start binds the listener and serves in the background, returning the
// base URL. The caller owns process lifetime and shutdown.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port))
	if err != nil {
		return "", fmt.Errorf("failed to bind listener: %w", err)
	}

	s.echo.Listener = ln

	go func() {
		if err := s.echo.Start(""); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Review server stopped unexpectedly")
		}
	}()

	url := fmt.Sprintf("http://%s", ln.Addr().String())
	s.log.Info().Str("url", url).Msg("Review server listening")
	return url, nil
}

// Shutdown gracefully stops the server and closes audit logs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, sess := range s.sessions {
		sess.audit.Close()
	}
	s.mu.RUnlock()

	return s.echo.Shutdown(ctx)
}
