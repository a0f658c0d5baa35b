// Package server provides the HTTP surface of the service: the trigger
// webhook that drives generation and the management API for users, slots and
// publication history.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/pressroom/internal/config"
	"github.com/jonathan/pressroom/internal/db"
	"github.com/jonathan/pressroom/internal/governor"
	"github.com/jonathan/pressroom/internal/idempotency"
	"github.com/jonathan/pressroom/internal/ledger"
	"github.com/jonathan/pressroom/internal/publish"
	"github.com/jonathan/pressroom/internal/server/ratelimit"
	"github.com/jonathan/pressroom/internal/trigger"
	"github.com/jonathan/pressroom/internal/types"
)

// Store is the database surface the server dispatches to. *db.DB satisfies it.
type Store interface {
	GetSlot(ctx context.Context, slotID uuid.UUID) (*types.ContentSlot, error)
	ListSlots(ctx context.Context, userID uuid.UUID) ([]types.ContentSlot, error)
	CreateSlot(ctx context.Context, slot *types.ContentSlot) (uuid.UUID, error)
	ListPublications(ctx context.Context, slotID uuid.UUID, limit int) ([]types.PublicationRecord, error)
	ListRecentPublications(ctx context.Context, slotID uuid.UUID, contentType types.ContentType, since time.Time) ([]types.PublicationRecord, error)
	CreatePublication(ctx context.Context, rec *types.PublicationRecord) error

	CreateUser(ctx context.Context, name, email, passwordHash string) (*db.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*db.UserRecord, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*db.UserRecord, error)

	ClaimCheckpointForRefund(ctx context.Context, jobID uuid.UUID) (bool, error)
	ResolveCheckpoint(ctx context.Context, jobID uuid.UUID, status string) error
	ListStaleRunningCheckpoints(ctx context.Context, olderThan time.Time) ([]db.JobCheckpoint, error)
}

// JobRunner runs a generation job through the pipeline. Satisfied by
// *pipeline.Orchestrator.
type JobRunner interface {
	Run(ctx context.Context, job *types.GenerationJob) error
}

// PublishCoordinator fans a finished job out to its platforms. Satisfied by
// *publish.Coordinator.
type PublishCoordinator interface {
	Publish(ctx context.Context, job *types.GenerationJob) (*publish.Outcome, error)
}

// Dependencies bundles the collaborators the server wires handlers to.
type Dependencies struct {
	Store        Store
	Gate         *idempotency.Gate
	Governor     *governor.Governor
	Ledger       *ledger.Ledger
	Receiver     *trigger.Receiver
	Orchestrator JobRunner
	Coordinator  PublishCoordinator
	JWT          *JWTService
	Passwords    *config.PasswordConfig
	Limiter      *ratelimit.Limiter
	Log          *logrus.Logger
}

// Server is the HTTP server for the trigger webhook and management API.
type Server struct {
	cfg  *config.Config
	deps Dependencies
	log  *logrus.Logger

	httpServer *http.Server
}

// NewServer creates a Server from its configuration and dependencies.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{cfg: cfg, deps: deps, log: deps.Log}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // the trigger handler runs the full job inline
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler builds the routed handler with middleware applied. Exposed for
// tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /webhooks/trigger", s.handleTrigger)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.Handle("GET /users/me", s.requireAuth(s.handleMe))
	mux.Handle("POST /users/me/credit", s.requireAuth(s.handleCredit))
	mux.Handle("GET /slots", s.requireAuth(s.handleListSlots))
	mux.Handle("POST /slots", s.requireAuth(s.handleCreateSlot))
	mux.Handle("GET /slots/{id}", s.requireAuth(s.handleGetSlot))
	mux.Handle("GET /slots/{id}/publications", s.requireAuth(s.handleListPublications))

	return s.withLogging(s.withRateLimit(mux))
}

// Start runs the server until the context is cancelled or a termination
// signal arrives, then drains: admission stops, in-flight jobs get the grace
// window, and whatever remains is force-aborted (their handlers refund).
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case sig := <-sigCh:
		s.log.WithField("signal", sig.String()).Info("shutdown signal received")
	}

	aborted := s.deps.Governor.Shutdown(s.cfg.ShutdownGrace)
	if aborted > 0 {
		s.log.WithField("aborted", aborted).Warn("jobs aborted during drain, refunds issued by their handlers")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"in_flight": s.deps.Governor.InFlight(),
		"draining":  s.deps.Governor.Draining(),
	})
}

// contextKey is a typed context key to avoid collisions.
type contextKey string

const userIDKey contextKey = "userID"

// requireAuth validates the bearer token and stores the user id in the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Fields(r.Header.Get("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			s.errorResponse(w, &UnauthorizedError{Message: "missing bearer token"})
			return
		}
		claims, err := s.deps.JWT.ValidateToken(parts[1])
		if err != nil {
			s.errorResponse(w, &UnauthorizedError{Message: "invalid token"})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next(w, r.WithContext(ctx))
	})
}

// authedUser extracts the authenticated user id set by requireAuth.
func authedUser(r *http.Request) (uuid.UUID, error) {
	userID, ok := r.Context().Value(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("user id not found in request context")
	}
	return userID, nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, info := s.deps.Limiter.Allow(clientIP(r), r.URL.Path, r.Method)
		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())+1))
			s.jsonResponse(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithField("error", err.Error()).Error("failed to encode response")
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.WithField("error", err.Error()).Error("internal error")
		s.jsonResponse(w, status, map[string]string{"error": "internal server error"})
		return
	}
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
