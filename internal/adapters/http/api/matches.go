package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// MatchesHandler serves the match catalog and match selection.
type MatchesHandler struct {
	deps Dependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps Dependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleMatches handles GET /matches requests.
func (h *MatchesHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	matches, err := h.deps.Matches(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// selectMatchRequest is the body for POST /match.
type selectMatchRequest struct {
	MatchID string `json:"match_id"`
}

// HandleSelectMatch handles POST /match and GET /match requests. GET
// reports the currently selected match.
func (h *MatchesHandler) HandleSelectMatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		matchID, ok := h.deps.ActiveMatch()
		writeJSON(w, http.StatusOK, map[string]any{
			"match_id": matchID,
			"selected": ok,
		})
	case http.MethodPost:
		var req selectMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: invalid body", ErrBadRequest))
			return
		}
		if strings.TrimSpace(req.MatchID) == "" {
			writeError(w, fmt.Errorf("%w: missing match_id", ErrBadRequest))
			return
		}
		if err := h.deps.SelectMatch(r.Context(), req.MatchID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}
