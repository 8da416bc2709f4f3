package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/chat-sentry/internal/core"
	"github.com/mikey/chat-sentry/internal/dispatch"
	"github.com/mikey/chat-sentry/internal/flagging"
	"github.com/mikey/chat-sentry/internal/scraper"
	"github.com/mikey/chat-sentry/internal/session"
	"go.uber.org/zap"
)

// Server is the operational HTTP surface over the automation pipeline.
// Internal diagnostics are logged, never returned to callers.
type Server struct {
	manager    *session.Manager
	scraper    *scraper.Scraper
	pipeline   *flagging.Pipeline
	dispatcher *dispatch.Dispatcher
	store      core.FlagStore
	logger     *zap.Logger
	listenAddr string
	server     *http.Server
}

// NewServer creates the operational surface
func NewServer(
	manager *session.Manager,
	scr *scraper.Scraper,
	pipeline *flagging.Pipeline,
	dispatcher *dispatch.Dispatcher,
	store core.FlagStore,
	logger *zap.Logger,
	listenAddr string,
) *Server {
	return &Server{
		manager:    manager,
		scraper:    scr,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
		listenAddr: listenAddr,
	}
}

// Handler returns the route mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/session/qr", s.handleSessionQR)
	mux.HandleFunc("/session/watchdog", s.handleWatchdog)
	mux.HandleFunc("/send", s.handleSend)
	mux.HandleFunc("/scrape", s.handleScrape)
	mux.HandleFunc("/flagged", s.handleFlagged)
	mux.HandleFunc("/flagged/", s.handleFlaggedByID)
	mux.HandleFunc("/recommended-times", s.handleRecommendedTimes)
	return mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	s.logger.Info("Operational surface starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// ─── DTOs ───

type qrResponse struct {
	QR       string `json:"qr,omitempty"`
	Restored bool   `json:"restored,omitempty"`
}

type sendRequest struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

type watchdogRequest struct {
	Seconds int `json:"seconds"`
}

type scrapeRequest struct {
	Contacts []string `json:"contacts"`
	Limit    int      `json:"limit,omitempty"`
}

type scrapeResponse struct {
	Scraped int                   `json:"scraped"`
	Flagged int                   `json:"flagged"`
	History []core.FlaggedMessage `json:"history"`
}

// ─── Handlers ───

// handleSessionQR begins a session and returns the scannable authentication
// payload, or reports that a persisted blob restored the session silently.
// Authentication continues in the background after the payload is returned.
func (s *Server) handleSessionQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	qrCh := make(chan string, 1)
	doneCh := make(chan error, 1)

	go func() {
		_, err := s.manager.Begin(context.Background(), func(payload string) {
			qrCh <- payload
		})
		doneCh <- err
	}()

	select {
	case payload := <-qrCh:
		writeJSON(w, http.StatusOK, qrResponse{QR: payload})
	case err := <-doneCh:
		switch {
		case err == nil:
			// Silent restore: no scan needed
			writeJSON(w, http.StatusOK, qrResponse{Restored: true})
		case errors.Is(err, core.ErrAlreadyActive):
			fail(w, http.StatusConflict)
		case errors.Is(err, core.ErrAuthTimeout):
			fail(w, http.StatusGatewayTimeout)
		default:
			s.logger.Error("Failed to begin session", zap.Error(err))
			fail(w, http.StatusBadGateway)
		}
	case <-r.Context().Done():
		fail(w, http.StatusGatewayTimeout)
	}
}

// handleWatchdog arms a fire-and-forget timer that force-ends the session
func (s *Server) handleWatchdog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req watchdogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seconds <= 0 {
		fail(w, http.StatusBadRequest)
		return
	}

	go func() {
		time.Sleep(time.Duration(req.Seconds) * time.Second)
		s.logger.Info("Watchdog expired, ending session", zap.Int("seconds", req.Seconds))
		s.manager.EndActive()
	}()

	w.WriteHeader(http.StatusAccepted)
}

// handleSend dispatches one message; the session is torn down afterward
// regardless of outcome
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Text == "" {
		fail(w, http.StatusBadRequest)
		return
	}

	if err := s.dispatcher.Send(r.Context(), req.Phone, req.Text); err != nil {
		// Callers get a generic failure; diagnostics stay in the log
		s.logger.Error("Dispatch failed", zap.Error(err))
		fail(w, http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleScrape runs a full scrape → flag → merge pass
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Contacts) == 0 {
		fail(w, http.StatusBadRequest)
		return
	}

	handle, err := s.manager.Begin(r.Context(), nil)
	if err != nil {
		if errors.Is(err, core.ErrAlreadyActive) {
			fail(w, http.StatusConflict)
			return
		}
		s.logger.Error("Failed to begin session for scrape", zap.Error(err))
		fail(w, http.StatusBadGateway)
		return
	}
	defer s.manager.End(handle)

	scraped := s.scraper.ScrapeContacts(r.Context(), handle.Driver(), req.Contacts, req.Limit)

	flagged, err := s.pipeline.Flag(r.Context(), scraped)
	if err != nil {
		// Classification failures are contained: the batch yields zero flags
		s.logger.Warn("Flagging batch failed closed", zap.Error(err))
		flagged = nil
	}

	history, err := s.store.MergeFlagged(r.Context(), flagged)
	if err != nil {
		s.logger.Error("Failed to merge flagged messages", zap.Error(err))
		fail(w, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, scrapeResponse{
		Scraped: len(scraped),
		Flagged: len(flagged),
		History: history,
	})
}

// handleFlagged lists the stored history
func (s *Server) handleFlagged(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	history, err := s.store.ListFlagged(r.Context())
	if err != nil {
		s.logger.Error("Failed to list flagged messages", zap.Error(err))
		fail(w, http.StatusBadGateway)
		return
	}
	if history == nil {
		history = []core.FlaggedMessage{}
	}
	writeJSON(w, http.StatusOK, history)
}

// handleFlaggedByID deletes one record by identifier
func (s *Server) handleFlaggedByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/flagged/")
	if id == "" {
		fail(w, http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteFlagged(r.Context(), id); err != nil {
		s.logger.Error("Failed to delete flagged message", zap.Error(err))
		fail(w, http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecommendedTimes reads or wholesale-replaces the per-contact mapping
func (s *Server) handleRecommendedTimes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		times, err := s.store.RecommendedTimes(r.Context())
		if err != nil {
			s.logger.Error("Failed to read recommended times", zap.Error(err))
			fail(w, http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, times)
	case http.MethodPut:
		var times map[string]string
		if err := json.NewDecoder(r.Body).Decode(&times); err != nil {
			fail(w, http.StatusBadRequest)
			return
		}
		if err := s.store.SaveRecommendedTimes(r.Context(), times); err != nil {
			s.logger.Error("Failed to save recommended times", zap.Error(err))
			fail(w, http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// ─── Helpers ───

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int) {
	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

func methodNotAllowed(w http.ResponseWriter) {
	fail(w, http.StatusMethodNotAllowed)
}
