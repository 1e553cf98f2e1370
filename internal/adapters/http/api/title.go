package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/NimnaKs/CG-COMPOSER/internal/domain/model"
)

// TitleHandler drives the shared common overlay title.
type TitleHandler struct {
	deps Dependencies
}

// NewTitleHandler creates a new title handler.
func NewTitleHandler(deps Dependencies) *TitleHandler {
	return &TitleHandler{deps: deps}
}

// titleRequest is the body for POST /title.
type titleRequest struct {
	Channel string `json:"channel"`
	Title   string `json:"title"`
}

// HandlePostTitle handles POST /title requests.
func (h *TitleHandler) HandlePostTitle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid body", ErrBadRequest))
		return
	}
	channel, err := model.ParseChannel(req.Channel)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.deps.SetCommonTitle(r.Context(), channel, req.Title); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
