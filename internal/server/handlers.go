package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hetulpatel/crossarb/internal/collectors"
)

const (
	defaultLimit = 200
	maxLimit     = 1000
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"detail":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// parseLimit reads ?limit=N, defaulting to 200 and capping at 1000.
func parseLimit(r *http.Request) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "crossarb-api"})
}

// GET /events/{venue}?limit=N
func (s *Server) handleEvents(venue collectors.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := venue.Fetch(r.Context(), collectors.FetchOptions{Limit: parseLimit(r)})
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if events == nil {
			events = []collectors.Event{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// GET /cache/stats
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.cache.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DELETE /cache
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
