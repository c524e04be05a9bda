// Package api provides the HTTP front door of the outage bot.
//
// # Endpoints
//
//   - POST /api/v1/commands - Run a chat command and return the reply
//   - GET  /api/v1/outages - Outage history and streak statistics
//   - GET  /api/v1/health - Process and store health
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/pilot-net/outage-counter/internal/command"
	"github.com/pilot-net/outage-counter/internal/config"
	"github.com/pilot-net/outage-counter/internal/metrics"
	"github.com/pilot-net/outage-counter/internal/tracker"
	"github.com/pilot-net/outage-counter/pkg/types"
)

// Server is the HTTP API server.
type Server struct {
	dispatcher       *command.Dispatcher
	tracker          *tracker.Tracker
	metricsCollector *metrics.Collector
	limiter          *userLimiter
	logger           *slog.Logger
	mux              *http.ServeMux
	handler          http.Handler
}

// NewServer creates a new API server.
func NewServer(
	dispatcher *command.Dispatcher,
	tr *tracker.Tracker,
	metricsCollector *metrics.Collector,
	rl config.RateLimitConfig,
	logger *slog.Logger,
) *Server {
	s := &Server{
		dispatcher:       dispatcher,
		tracker:          tr,
		metricsCollector: metricsCollector,
		limiter:          newUserLimiter(rl.CommandsPerMinute, rl.Burst),
		logger:           logger.With("component", "api"),
		mux:              http.NewServeMux(),
	}
	s.registerRoutes()
	s.handler = s.requestID(s.logRequests(s.mux))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/commands", s.handleCommand)
	s.mux.HandleFunc("GET /api/v1/outages", s.handleOutages)
}

// =============================================================================
// HEALTH
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.metricsCollector == nil {
		s.writeError(w, http.StatusServiceUnavailable, "metrics collector not initialized")
		return
	}

	health := s.metricsCollector.GetHealth(r.Context())
	status := http.StatusOK
	if health.Status == types.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req types.CommandRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	user := req.User
	if user == "" {
		user = clientIP(r)
	}
	if !s.limiter.Allow(user) {
		s.logger.Warn("command rate limited", "user", user, "request_id", requestIDFrom(r.Context()))
		s.writeError(w, http.StatusTooManyRequests, "slow down, too many commands")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.StoreOperationTimeout)
	defer cancel()

	reply, err := s.dispatcher.Handle(ctx, req.Text)
	switch {
	case errors.Is(err, command.ErrUnknownCommand):
		s.writeJSON(w, http.StatusNotFound, types.CommandResponse{
			Reply: "Sorry, I don't know that one.\n" + command.HelpText(),
		})
		return
	case errors.Is(err, tracker.ErrStoreUnavailable):
		s.logger.Error("command failed", "text", req.Text, "user", user, "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "outage store unavailable")
		return
	case err != nil:
		s.logger.Error("command failed", "text", req.Text, "user", user, "error", err)
		s.writeError(w, http.StatusInternalServerError, "command failed")
		return
	}

	s.logger.Info("command handled", "user", user, "channel", req.Channel, "text", req.Text)
	s.writeJSON(w, http.StatusOK, types.CommandResponse{Reply: reply})
}

// =============================================================================
// OUTAGES
// =============================================================================

func (s *Server) handleOutages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.StoreOperationTimeout)
	defer cancel()

	summary, err := s.tracker.Summary(ctx)
	if err != nil {
		s.logger.Error("failed to build outage summary", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "outage store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, config.MaxCommandBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// clientIP returns the remote host without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
