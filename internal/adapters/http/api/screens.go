package api

import (
	"net/http"

	"github.com/NimnaKs/CG-COMPOSER/internal/domain/model"
)

// ScreensHandler serves the display endpoint URLs for both channels.
type ScreensHandler struct {
	deps Dependencies
}

// NewScreensHandler creates a new screens handler.
func NewScreensHandler(deps Dependencies) *ScreensHandler {
	return &ScreensHandler{deps: deps}
}

// HandleGetScreens handles GET /screens requests.
func (h *ScreensHandler) HandleGetScreens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	preview, err := h.deps.DisplayURL(model.ChannelPreview)
	if err != nil {
		writeError(w, err)
		return
	}
	live, err := h.deps.DisplayURL(model.ChannelLive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"preview": preview,
		"live":    live,
	})
}
