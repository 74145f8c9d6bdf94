// Package api serves read-only JSON views over a stats document.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/revstat/internal/adapters/repository"
	"github.com/okian/revstat/internal/domain/types"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	LeaderboardDependencies
	RankDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

const defaultMaxLimit = 100

// Server wires HTTP routes for the inspector.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// leaderboard size; zero or less falls back to 100.
func NewServer(deps Dependencies, maxLimit int) *Server {
	if maxLimit <= 0 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeStoreError maps store sentinels to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrInvalidMetric),
		errors.Is(err, repository.ErrInvalidSheet),
		errors.Is(err, repository.ErrInvalidPeriod),
		errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parseQuery reads the window and sheet selectors shared by /leaderboard and
// /rank. producer and release are required.
func parseQuery(r *http.Request) (repository.Query, error) {
	v := r.URL.Query()
	q := repository.Query{
		Producer: v.Get("producer"),
		Release:  v.Get("release"),
		Sheet:    v.Get("sheet"),
		By:       v.Get("by"),
		Per:      v.Get("per"),
	}
	if q.Producer == "" || q.Release == "" {
		return q, wrapBadRequest("producer and release are required")
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, wrapBadRequest("limit must be a positive integer")
		}
		q.Limit = n
	}
	return q, nil
}
