package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/NimnaKs/CG-COMPOSER/internal/domain/cue"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/model"
)

// ToggleHandler handles cue toggle requests.
type ToggleHandler struct {
	deps Dependencies
}

// NewToggleHandler creates a new toggle handler.
func NewToggleHandler(deps Dependencies) *ToggleHandler {
	return &ToggleHandler{deps: deps}
}

// toggleRequest is the body for POST /toggle.
type toggleRequest struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

func (r toggleRequest) validate() error {
	if strings.TrimSpace(r.Action) == "" {
		return fmt.Errorf("%w: missing action", ErrBadRequest)
	}
	if strings.TrimSpace(r.Channel) == "" {
		return fmt.Errorf("%w: missing channel", ErrBadRequest)
	}
	return nil
}

// HandlePostToggle handles POST /toggle requests.
func (h *ToggleHandler) HandlePostToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid body", ErrBadRequest))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}
	channel, err := model.ParseChannel(req.Channel)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.deps.Toggle(r.Context(), cue.Parse(req.Action), channel); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
