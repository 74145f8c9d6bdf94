package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/revstat/internal/adapters/repository"
	"github.com/okian/revstat/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	TopN(ctx context.Context, q repository.Query) (types.Ranking, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles
// GET /leaderboard?producer=P&release=R&sheet=S&by=M&limit=N requests.
// A missing limit returns up to the configured maximum.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if q.Limit == 0 {
		q.Limit = h.maxLimit
	}
	if q.Limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded",
			fmt.Errorf("%w: %d > %d", ErrLimitExceeded, q.Limit, h.maxLimit))
		return
	}
	entries, err := h.deps.TopN(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
