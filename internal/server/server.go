// Package server exposes a local HydroData tree through the point data API
// consumed by the remote client: a PIN login that issues bearer tokens and
// the point data and site metadata endpoints.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/rtm0/pointdata"
	"github.com/rtm0/pointdata/internal/catalog"
	"github.com/rtm0/pointdata/internal/network"
	"github.com/rtm0/pointdata/internal/params"
	"github.com/rtm0/pointdata/internal/remote"
)

// Backend answers point data and site metadata requests.
type Backend interface {
	GetData(ctx context.Context, req pointdata.Request) (*pointdata.Result, error)
	GetSites(ctx context.Context, req pointdata.Request) ([]pointdata.Site, error)
}

// Config holds the server settings.
type Config struct {
	PINs           map[string]string // email -> PIN
	TokenTTL       time.Duration
	RequestTimeout time.Duration
}

// Server serves the point data API.
type Server struct {
	logger  *slog.Logger
	data    Backend
	pins    map[string]string
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	tokens map[string]session
}

type session struct {
	email   string
	expires time.Time
}

// New creates a server answering data requests with data.
func New(logger *slog.Logger, data Backend, cfg Config) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	pins := make(map[string]string, len(cfg.PINs))
	for email, pin := range cfg.PINs {
		if email != "" && pin != "" {
			pins[email] = pin
		}
	}
	return &Server{
		logger:  logger,
		data:    data,
		pins:    pins,
		ttl:     cfg.TokenTTL,
		timeout: cfg.RequestTimeout,
		now:     time.Now,
		tokens:  make(map[string]session),
	}
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)
	r.Get("/api/api_pins", s.handlePins)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/api/point-data-app", s.handlePointData)
		r.Get("/api/point-metadata-app", s.handlePointMetadata)
	})
	return r
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("point data API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"requestId", middleware.GetReqID(r.Context()),
			"in", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePins exchanges a registered email/PIN pair for a bearer token.
func (s *Server) handlePins(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	pin := r.URL.Query().Get("pin")
	want, ok := s.pins[email]
	if !ok || subtle.ConstantTimeCompare([]byte(pin), []byte(want)) != 1 {
		writeError(w, http.StatusUnauthorized, "unknown email or PIN")
		return
	}

	token := uuid.NewString()
	expires := s.now().Add(s.ttl).UTC().Truncate(time.Second)

	s.mu.Lock()
	for t, sess := range s.tokens {
		if s.now().After(sess.expires) {
			delete(s.tokens, t)
		}
	}
	s.tokens[token] = session{email: email, expires: expires}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, remote.Token{
		Email:    email,
		Expires:  expires.Format(remote.ExpiresLayout),
		JWTToken: token,
		UserID:   email,
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		s.mu.Lock()
		sess, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok || s.now().After(sess.expires) {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePointData(w http.ResponseWriter, r *http.Request) {
	req, err := params.Decode(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.data.GetData(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handlePointMetadata answers the sites matching a request without reading
// observations.
func (s *Server) handlePointMetadata(w http.ResponseWriter, r *http.Request) {
	req, err := params.Decode(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sites, err := s.data.GetSites(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sites)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "query", r.URL.RawQuery, "err", err)
	}
	writeError(w, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, params.ErrInvalid),
		errors.Is(err, catalog.ErrUnsupported),
		errors.Is(err, network.ErrUnknown):
		return http.StatusBadRequest
	case errors.Is(err, pointdata.ErrNoSites):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
