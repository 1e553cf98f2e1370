package api

import (
	"net/http"

	"github.com/NimnaKs/CG-COMPOSER/internal/domain/model"
)

// StateHandler serves the per-channel control snapshot.
type StateHandler struct {
	deps Dependencies
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps Dependencies) *StateHandler {
	return &StateHandler{deps: deps}
}

// HandleGetState handles GET /state?channel=preview[&refresh=true].
// Without refresh the cached snapshot is returned; with refresh every
// control document is re-read first.
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	channel, err := model.ParseChannel(r.URL.Query().Get("channel"))
	if err != nil {
		writeError(w, err)
		return
	}

	var snapshot map[string]model.ControlDocument
	if r.URL.Query().Get("refresh") == "true" {
		snapshot, err = h.deps.RefreshState(r.Context(), channel)
		if err != nil {
			writeError(w, err)
			return
		}
	} else {
		snapshot = h.deps.State(channel)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channel": channel,
		"cues":    snapshot,
	})
}
