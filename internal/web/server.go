// Package web serves the read-only status endpoints. Feed and rule
// management lives in the external dashboard; this surface only reports
// poll bookkeeping.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cjwillin/rss-watcher/internal/storage"
)

const recentAlertLimit = 25

// Server exposes /health and /status.
type Server struct {
	store storage.Storage
	log   *slog.Logger
}

// NewServer creates a status server over the given store.
func NewServer(store storage.Storage, log *slog.Logger) *Server {
	return &Server{store: store, log: log}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type statusResponse struct {
	LastPollAt          string `json:"last_poll_at"`
	LastAlertAt         string `json:"last_alert_at"`
	PollIntervalSeconds string `json:"poll_interval_seconds"`
	RecentAlerts        int    `json:"recent_alerts"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lastPoll, err := s.store.GetSetting(ctx, "last_poll_at", "")
	if err != nil {
		s.fail(w, "read last_poll_at", err)
		return
	}
	lastAlert, err := s.store.GetSetting(ctx, "last_alert_at", "")
	if err != nil {
		s.fail(w, "read last_alert_at", err)
		return
	}
	interval, err := s.store.GetSetting(ctx, "poll_interval_seconds", "300")
	if err != nil {
		s.fail(w, "read poll_interval_seconds", err)
		return
	}
	alerts, err := s.store.ListRecentAlerts(ctx, recentAlertLimit)
	if err != nil {
		s.fail(w, "list recent alerts", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		LastPollAt:          lastPoll,
		LastAlertAt:         lastAlert,
		PollIntervalSeconds: interval,
		RecentAlerts:        len(alerts),
	})
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
