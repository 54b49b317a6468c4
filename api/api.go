// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/comitia/governance"
)

// ServerConfig holds the API server settings.
type ServerConfig struct {
	ListenAddress string
	// Clock is used for state queries without an explicit time
	Clock governance.Clock
	// MaxRequestsPerIP limits concurrent requests per client. Zero
	// disables the limit.
	MaxRequestsPerIP int
}

// Server is the governance REST API server.
type Server struct {
	config     ServerConfig
	logger     *slog.Logger
	engine     Governance
	httpServer *http.Server
	limiter    *ipLimiter
	listenAddr net.Addr
	mu         sync.Mutex
}

// New creates a new API server instance.
func New(
	cfg ServerConfig,
	engine Governance,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.Clock == nil {
		cfg.Clock = governance.SystemClock{}
	}
	s := &Server{
		config: cfg,
		logger: logger,
		engine: engine,
	}
	if cfg.MaxRequestsPerIP > 0 {
		s.limiter = newIPLimiter(cfg.MaxRequestsPerIP)
	}
	return s
}

// Handler returns the request router
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v0/rule", s.handleRule)
	mux.HandleFunc(
		"GET /api/v0/requirements/{selector}",
		s.handleRequirement,
	)
	mux.HandleFunc("GET /api/v0/quaestors", s.handleQuaestors)
	mux.HandleFunc("GET /api/v0/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/v0/sessions/{id}", s.handleSession)
	mux.HandleFunc(
		"GET /api/v0/sessions/{id}/state",
		s.handleSessionState,
	)
	mux.HandleFunc("GET /api/v0/proposals/{id}", s.handleProposal)
	mux.HandleFunc(
		"GET /api/v0/proposals/{id}/approved",
		s.handleApproved,
	)
	mux.HandleFunc("GET /api/v0/observations", s.handleObservations)
	mux.HandleFunc("POST /api/v0/proposals", s.handleDefineProposal)
	mux.HandleFunc(
		"POST /api/v0/proposals/{id}/cancel",
		s.handleCancelProposal,
	)
	mux.HandleFunc(
		"POST /api/v0/proposals/{id}/execute",
		s.handleExecute,
	)
	mux.HandleFunc("POST /api/v0/votes", s.handleVote)
	mux.HandleFunc("POST /api/v0/votes/secret", s.handleVoteSecret)
	mux.HandleFunc("POST /api/v0/votes/reveal", s.handleReveal)
	mux.HandleFunc("POST /api/v0/hash", s.handleHash)
	if s.limiter != nil {
		return s.limiter.middleware(mux)
	}
	return mux
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start(
	ctx context.Context,
) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	// Bind first so that port conflicts are reported to the caller
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	s.mu.Lock()
	s.listenAddr = ln.Addr()
	s.mu.Unlock()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()

	s.logger.Info(
		"API listener started on " + ln.Addr().String(),
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		srv := s.httpServer
		s.httpServer = nil
		s.mu.Unlock()

		if srv != nil {
			s.logger.Debug(
				"context cancelled, shutting down API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error(
					"failed to shutdown API server on context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Addr returns the address the server listens on, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(
	ctx context.Context,
) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv != nil {
		s.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}
