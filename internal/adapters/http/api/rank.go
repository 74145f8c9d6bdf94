package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/revstat/internal/adapters/repository"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Rank(ctx context.Context, q repository.Query, key string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{key}?producer=P&release=R requests. The
// key is an identity key or an organization name.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	key, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/rank/"))
	if err != nil || key == "" || strings.Contains(key, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", wrapBadRequest("invalid key"))
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entry, err := h.deps.Rank(r.Context(), q, key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
