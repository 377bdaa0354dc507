// Package server exposes the recording controller over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/darkace1998/crash-video-recorder/internal/capture"
	"github.com/darkace1998/crash-video-recorder/internal/metrics"
	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

// Controller is the subset of capture.Controller the server drives.
type Controller interface {
	Status() capture.Status
	Start(cfg models.RecordingConfig) error
	CaptureAndAttachVideo() string
}

// Server handles HTTP API requests
type Server struct {
	controller Controller
	addr       string
	apiKey     string
	server     *http.Server
	metrics    *metrics.Metrics
	log        *utils.ComponentLogger
}

// New creates a new HTTP server instance
func New(controller Controller, settings models.ServerSettings, m *metrics.Metrics) *Server {
	s := &Server{
		controller: controller,
		addr:       settings.Listen,
		apiKey:     settings.APIKey,
		metrics:    m,
		log:        utils.NewComponentLogger("server"),
	}
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Probes skip correlation IDs
	mux.HandleFunc("/healthz", s.HealthzLive)
	mux.Handle("/metrics", s.metrics.Handler())

	mux.HandleFunc("/api/status", s.correlationMiddleware(s.instrument("/api/status", s.GetStatus)))
	mux.HandleFunc("/api/capture", s.correlationMiddleware(s.instrument("/api/capture", s.authMiddleware(s.Capture))))

	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info("HTTP server starting", "addr", s.addr, "metrics_endpoint", "/metrics")
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// HealthzLive handles the liveness probe endpoint (/healthz)
func (s *Server) HealthzLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// GetStatus returns the controller snapshot.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.Status())
}

// CaptureResponse is the body returned by /api/capture.
type CaptureResponse struct {
	VideoPath string `json:"video_path"`
	Restarted bool   `json:"restarted"`
	Error     string `json:"error,omitempty"`
}

// Capture finalizes the active session and attaches the video to the reporter.
// With restart=true a new session is started with the same configuration.
func (s *Server) Capture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	restart := false
	if v := r.URL.Query().Get("restart"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "Invalid restart parameter", http.StatusBadRequest)
			return
		}
		restart = parsed
	}

	log := s.log.WithContext(r.Context())

	before := s.controller.Status()
	if before.State != capture.StateRecording.String() {
		writeJSON(w, http.StatusConflict, CaptureResponse{Error: "no active recording"})
		return
	}

	path := s.controller.CaptureAndAttachVideo()
	resp := CaptureResponse{VideoPath: path}
	status := http.StatusOK
	if path == "" {
		resp.Error = "capture failed"
		status = http.StatusInternalServerError
	}

	if restart && before.Config != nil {
		if err := s.controller.Start(*before.Config); err != nil {
			log.Error("Failed to restart recording after capture", "error", err)
			if resp.Error == "" {
				resp.Error = "restart failed: " + err.Error()
			}
		} else {
			resp.Restarted = true
		}
	}

	log.Info("Capture requested over HTTP", "video_path", path, "restarted", resp.Restarted)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.log.Warn("Missing Authorization header", "path", r.URL.Path, "ip", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(authHeader), []byte("Bearer "+s.apiKey)) != 1 {
			s.log.Warn("Invalid API key", "path", r.URL.Path, "ip", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid API key", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// correlationMiddleware adds a correlation ID to each request for tracing
func (s *Server) correlationMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = utils.GenerateCorrelationID()
		}

		w.Header().Set("X-Correlation-ID", correlationID)

		ctx := utils.ContextWithCorrelationID(r.Context(), correlationID)
		next(w, r.WithContext(ctx))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency per endpoint.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		s.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(sw.status), time.Since(start).Seconds())
	}
}
