package api

import (
	"fmt"
	"net/http"
	"strings"
)

// AlertsHandler serves the operator alert queue.
type AlertsHandler struct {
	deps Dependencies
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps Dependencies) *AlertsHandler {
	return &AlertsHandler{deps: deps}
}

// HandleGetAlerts handles GET /alerts requests.
func (h *AlertsHandler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": h.deps.Alerts()})
}

// HandleDismissAlert handles DELETE /alerts/{id} requests. Both
// completing and dismissing an alert remove it from the queue.
func (h *AlertsHandler) HandleDismissAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/alerts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, fmt.Errorf("%w: missing alert id", ErrBadRequest))
		return
	}
	if !h.deps.DismissAlert(id) {
		writeError(w, fmt.Errorf("%w: alert %s", ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
