// Package api declares HTTP contracts and route registration helpers
// for the composer control surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NimnaKs/CG-COMPOSER/internal/app"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/alert"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/cue"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Toggle(ctx context.Context, action cue.Action, channel model.Channel) error
	SetCommonTitle(ctx context.Context, channel model.Channel, title string) error

	SelectMatch(ctx context.Context, matchID string) error
	ActiveMatch() (string, bool)
	Matches(ctx context.Context) ([]model.Match, error)

	State(channel model.Channel) map[string]model.ControlDocument
	RefreshState(ctx context.Context, channel model.Channel) (map[string]model.ControlDocument, error)
	History(ctx context.Context) ([]model.HistoryEntry, error)

	Alerts() []alert.Alert
	DismissAlert(id string) bool

	DisplayURL(channel model.Channel) (string, error)
}

// StatsProvider exposes service statistics for the stats endpoint.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the composer API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	toggleHandler  *ToggleHandler
	titleHandler   *TitleHandler
	stateHandler   *StateHandler
	historyHandler *HistoryHandler
	matchesHandler *MatchesHandler
	alertsHandler  *AlertsHandler
	screensHandler *ScreensHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		toggleHandler:  NewToggleHandler(deps),
		titleHandler:   NewTitleHandler(deps),
		stateHandler:   NewStateHandler(deps),
		historyHandler: NewHistoryHandler(deps),
		matchesHandler: NewMatchesHandler(deps),
		alertsHandler:  NewAlertsHandler(deps),
		screensHandler: NewScreensHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/toggle", MetricsMiddleware(s.toggleHandler.HandlePostToggle, "toggle"))
	mux.HandleFunc("/title", MetricsMiddleware(s.titleHandler.HandlePostTitle, "title"))
	mux.HandleFunc("/state", MetricsMiddleware(s.stateHandler.HandleGetState, "state"))
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.HandleFunc("/matches", MetricsMiddleware(s.matchesHandler.HandleMatches, "matches"))
	mux.HandleFunc("/match", MetricsMiddleware(s.matchesHandler.HandleSelectMatch, "match"))
	mux.HandleFunc("/alerts", MetricsMiddleware(s.alertsHandler.HandleGetAlerts, "alerts"))
	mux.HandleFunc("/alerts/", MetricsMiddleware(s.alertsHandler.HandleDismissAlert, "alerts"))
	mux.HandleFunc("/screens", MetricsMiddleware(s.screensHandler.HandleGetScreens, "screens"))
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, cue.ErrUnknownCue),
		errors.Is(err, model.ErrUnknownChannel),
		errors.Is(err, app.ErrTitleRequired),
		errors.Is(err, ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrNoActiveMatch):
		status = http.StatusConflict
	case errors.Is(err, app.ErrMatchNotFound), errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrNotStarted):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
