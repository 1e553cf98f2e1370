// Package app provides the composer service that implements the
// dependencies required by the HTTP API: cue toggling, channel state,
// action history, match selection, and operator alerts.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NimnaKs/CG-COMPOSER/internal/adapters/repository"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/alert"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/cue"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/model"
	"github.com/NimnaKs/CG-COMPOSER/pkg/logger"
	"github.com/NimnaKs/CG-COMPOSER/pkg/metrics"
)

// Default configuration constants.
const (
	defaultHistoryLimit    = 20
	defaultAlertCapacity   = 5
	defaultMatchCollection = "demo-matches"
	historyCollection      = "history"
)

// sourceAdapter adapts repository.Store to the alert.Source interface.
type sourceAdapter struct {
	store repository.Store
}

func (a *sourceAdapter) Subscribe(ctx context.Context, collection, key string, onChange func(map[string]any), onError func(error)) (alert.Cancelable, error) {
	return a.store.Subscribe(ctx, collection, key, func(doc repository.Document) {
		onChange(doc)
	}, onError)
}

// Service implements the composer control operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	registry *cue.Registry
	allow    cue.AllowList
	engine   *alert.Engine
	alerts   *alert.Queue

	// Configuration
	historyLimit    int
	alertCapacity   int
	matchCollection string
	baseURL         string
	previewPath     string
	livePath        string

	// State
	started bool
	matchID string
	state   map[model.Channel]map[string]model.ControlDocument
	history []model.HistoryEntry

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing document store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRegistry sets the cue registry.
func WithRegistry(registry *cue.Registry) Option {
	return func(s *Service) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithAllowList sets the action allow-list used for alerts.
func WithAllowList(allow cue.AllowList) Option {
	return func(s *Service) {
		s.allow = allow
	}
}

// WithHistoryLimit bounds the history view query.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithAlertCapacity bounds the operator alert queue.
func WithAlertCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.alertCapacity = capacity
		}
	}
}

// WithMatchCollection sets the collection holding match records.
func WithMatchCollection(collection string) Option {
	return func(s *Service) {
		if collection != "" {
			s.matchCollection = collection
		}
	}
}

// WithDisplayEndpoints configures the preview/live display URL template.
func WithDisplayEndpoints(baseURL, previewPath, livePath string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
		s.previewPath = previewPath
		s.livePath = livePath
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		historyLimit:    defaultHistoryLimit,
		alertCapacity:   defaultAlertCapacity,
		matchCollection: defaultMatchCollection,
		state:           make(map[model.Channel]map[string]model.ControlDocument),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("composer")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory document store")
	}
	if s.registry == nil {
		s.registry = cue.NewRegistry()
	}

	s.alerts = alert.NewQueue(alert.WithCapacity(s.alertCapacity))
	s.engine = alert.NewEngine(
		&sourceAdapter{store: s.store},
		s.allow,
		s.onAlertEvent,
		alert.WithCollection(s.matchCollection),
		alert.WithErrorHandler(s.onAlertError),
		alert.WithEngineLogger(s.logger.Named("alerts")),
	)

	s.started = true
	s.logger.Info(ctx, "composer service started",
		logger.Int("historyLimit", s.historyLimit),
		logger.Int("alertCapacity", s.alertCapacity),
		logger.Int("allowListSize", s.allow.Len()),
	)
	return nil
}

// Stop detaches the alert subscription and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.engine.Detach()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "store close failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "composer service stopped")
}

// onAlertEvent runs on the store's delivery goroutine for every
// accepted action event.
func (s *Service) onAlertEvent(a cue.Action) {
	message := a.String()
	if c, err := s.registry.Resolve(a); err == nil {
		message = fmt.Sprintf("%s (%s)", c.Label, a)
	}
	al := s.alerts.Push(message)
	s.logger.Debug(context.Background(), "alert enqueued",
		logger.String("id", al.ID),
		logger.String("message", al.Message),
	)
}

func (s *Service) onAlertError(err error) {
	s.logger.Error(context.Background(), "alert stream lost; reselect the match to reattach", logger.Error(err))
}

// SelectMatch makes matchID the active match: it validates the record
// exists, moves the alert subscription over, and refreshes the channel
// state caches and the history view.
func (s *Service) SelectMatch(ctx context.Context, matchID string) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	if _, err := s.store.Get(ctx, s.matchCollection, matchID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
		}
		return fmt.Errorf("read match %s: %w", matchID, err)
	}

	s.mu.Lock()
	s.matchID = matchID
	s.history = nil
	s.mu.Unlock()

	if err := s.engine.Attach(ctx, matchID); err != nil {
		return err
	}

	for _, ch := range model.Channels() {
		if _, err := s.RefreshState(ctx, ch); err != nil {
			s.logger.Warn(ctx, "state refresh failed on match change",
				logger.String("channel", ch.String()), logger.Error(err))
		}
	}
	if _, err := s.History(ctx); err != nil {
		s.logger.Warn(ctx, "history refresh failed on match change", logger.Error(err))
	}

	s.logger.Info(ctx, "match selected", logger.String("matchId", matchID))
	return nil
}

// ActiveMatch returns the currently selected match id, if any.
func (s *Service) ActiveMatch() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchID, s.matchID != ""
}

// Matches lists the match catalog.
func (s *Service) Matches(ctx context.Context) ([]model.Match, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx, s.matchCollection)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	matches := make([]model.Match, 0, len(records))
	for _, r := range records {
		matches = append(matches, model.MatchFromDocument(r.Key, r.Fields))
	}
	return matches, nil
}

// Toggle flips the control flag of the cue identified by action on the
// given channel and fans the change out to the match ticker, the
// sticker record, and the action history. The writes are ordered but
// not transactional: a failure after the control write leaves the
// control flag ahead of the other records until the next successful
// toggle of the same cue.
func (s *Service) Toggle(ctx context.Context, action cue.Action, channel model.Channel) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	start := time.Now()
	err := s.toggle(ctx, action, channel)
	metrics.RecordToggleLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordToggle(channel.String(), "error")
		return err
	}
	metrics.RecordToggle(channel.String(), "ok")
	return nil
}

func (s *Service) toggle(ctx context.Context, action cue.Action, channel model.Channel) error {
	c, err := s.registry.Resolve(action)
	if err != nil {
		return err
	}
	matchID, ok := s.ActiveMatch()
	if !ok {
		return ErrNoActiveMatch
	}

	current, err := s.store.Get(ctx, channel.String(), c.DocKey)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("read control %s/%s: %w", channel, c.DocKey, err)
	}
	ctrl := model.ControlFromDocument(current)
	newControl := !ctrl.Control
	now := time.Now().UTC()

	// Control flag first: display overlays read it before ticker and
	// sticker, so later readers see a flag at least as new as those.
	fields := repository.Document{
		"control":     newControl,
		"lastUpdated": model.Timestamp(now),
	}
	if ctrl.Title != "" {
		// Upsert replaces the whole document; carry the title forward.
		fields["title"] = ctrl.Title
	}
	if err := s.store.Upsert(ctx, channel.String(), c.DocKey, fields); err != nil {
		return fmt.Errorf("write control %s/%s: %w", channel, c.DocKey, err)
	}

	if _, err := s.store.Get(ctx, s.matchCollection, matchID); err != nil {
		// The control flag above is already committed; the ticker,
		// sticker, and history stay behind until the next successful
		// toggle of this cue.
		metrics.RecordPartialFailure()
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error(ctx, "match record missing mid-toggle; records out of sync",
				logger.String("matchId", matchID),
				logger.String("cue", c.DocKey),
				logger.String("channel", channel.String()),
			)
			return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
		}
		return fmt.Errorf("read match %s: %w", matchID, err)
	}

	var ticker any = ""
	if newControl {
		ticker = action.Payload()
	}
	if err := s.store.Update(ctx, s.matchCollection, matchID, repository.Document{
		channel.TickerField(): ticker,
		"lastUpdated":         model.Timestamp(now),
	}); err != nil {
		metrics.RecordPartialFailure()
		return fmt.Errorf("write ticker %s: %w", matchID, err)
	}

	if err := s.store.Upsert(ctx, channel.StickerCollection(), matchID, repository.Document{
		"type":        action.Payload(),
		"active":      newControl,
		"lastUpdated": model.Timestamp(now),
	}); err != nil {
		metrics.RecordPartialFailure()
		return fmt.Errorf("write sticker %s: %w", matchID, err)
	}

	// History records the rendering value when one is active, the raw
	// identifier otherwise. Append is best-effort: a dropped entry must
	// not block the operator's next action.
	historyAction := any(action.Payload())
	if newControl {
		historyAction = ticker
	}
	if err := s.store.Append(ctx, historyCollection, repository.Document{
		"action":    historyAction,
		"mode":      channel.String(),
		"timestamp": model.Timestamp(now),
		"matchId":   matchID,
	}); err != nil {
		metrics.RecordHistoryAppendError()
		s.logger.Warn(ctx, "history append failed", logger.Error(err))
	}

	// Cache refreshes are scheduled off the caller's critical path.
	go s.refreshAfterToggle(channel)

	s.logger.Info(ctx, "cue toggled",
		logger.String("cue", c.DocKey),
		logger.String("channel", channel.String()),
		logger.Bool("control", newControl),
		logger.String("matchId", matchID),
	)
	return nil
}

// refreshAfterToggle re-reads the channel state and history view after
// a toggle. Failures are logged only; stale caches are corrected by the
// next successful refresh.
func (s *Service) refreshAfterToggle(channel model.Channel) {
	ctx := context.Background()
	if _, err := s.RefreshState(ctx, channel); err != nil {
		metrics.RecordCacheRefreshError()
		s.logger.Warn(ctx, "state refresh failed after toggle",
			logger.String("channel", channel.String()), logger.Error(err))
	}
	if _, err := s.History(ctx); err != nil {
		s.logger.Warn(ctx, "history refresh failed after toggle", logger.Error(err))
	}
}

// SetCommonTitle drives the shared "common" overlay: activating it
// writes the title to the common document of both channels but flips
// control only on the invoked channel; when the invoked channel is
// already active the overlay is simply switched off.
func (s *Service) SetCommonTitle(ctx context.Context, channel model.Channel, title string) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	c, err := s.registry.Resolve(cue.Symbol("COMMON"))
	if err != nil {
		return err
	}

	current, err := s.store.Get(ctx, channel.String(), c.DocKey)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("read control %s/%s: %w", channel, c.DocKey, err)
	}
	ctrl := model.ControlFromDocument(current)
	now := model.Timestamp(time.Now().UTC())

	if ctrl.Control {
		if err := s.store.Upsert(ctx, channel.String(), c.DocKey, repository.Document{
			"control":     false,
			"title":       ctrl.Title,
			"lastUpdated": now,
		}); err != nil {
			return fmt.Errorf("write control %s/%s: %w", channel, c.DocKey, err)
		}
		go s.refreshAfterToggle(channel)
		return nil
	}

	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}

	if err := s.store.Upsert(ctx, channel.String(), c.DocKey, repository.Document{
		"control":     true,
		"title":       title,
		"lastUpdated": now,
	}); err != nil {
		return fmt.Errorf("write control %s/%s: %w", channel, c.DocKey, err)
	}

	// The opposite channel keeps its own control flag.
	other := channel.Other()
	otherDoc, err := s.store.Get(ctx, other.String(), c.DocKey)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("read control %s/%s: %w", other, c.DocKey, err)
	}
	otherCtrl := model.ControlFromDocument(otherDoc)
	if err := s.store.Upsert(ctx, other.String(), c.DocKey, repository.Document{
		"control":     otherCtrl.Control,
		"title":       title,
		"lastUpdated": now,
	}); err != nil {
		return fmt.Errorf("write control %s/%s: %w", other, c.DocKey, err)
	}

	go func() {
		s.refreshAfterToggle(channel)
		s.refreshAfterToggle(other)
	}()
	return nil
}

// RefreshState re-reads every registered cue's control document for the
// channel and replaces the cached snapshot. Missing documents are
// omitted, which renders as inactive.
func (s *Service) RefreshState(ctx context.Context, channel model.Channel) (map[string]model.ControlDocument, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	snapshot := make(map[string]model.ControlDocument)
	for _, c := range s.registry.Cues() {
		doc, err := s.store.Get(ctx, channel.String(), c.DocKey)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read control %s/%s: %w", channel, c.DocKey, err)
		}
		snapshot[c.DocKey] = model.ControlFromDocument(doc)
	}

	s.mu.Lock()
	s.state[channel] = snapshot
	s.mu.Unlock()

	metrics.RecordCacheRefresh(channel.String())
	return copyState(snapshot), nil
}

// State returns the cached control snapshot for the channel. It is a
// point-in-time view, not a live one.
func (s *Service) State(channel model.Channel) map[string]model.ControlDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.state[channel])
}

// History returns the most recent actions for the active match, newest
// first, bounded by the configured limit. The underlying log is
// unbounded; the bound is applied at read time.
func (s *Service) History(ctx context.Context) ([]model.HistoryEntry, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	matchID, ok := s.ActiveMatch()
	if !ok {
		return nil, ErrNoActiveMatch
	}
	docs, err := s.store.QueryByField(ctx, historyCollection, "matchId", matchID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	entries := make([]model.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, model.HistoryFromDocument(doc))
	}

	s.mu.Lock()
	s.history = entries
	s.mu.Unlock()

	return entries, nil
}

// Alerts returns the queued operator alerts, newest first.
func (s *Service) Alerts() []alert.Alert {
	if s.alerts == nil {
		return nil
	}
	return s.alerts.Snapshot()
}

// DismissAlert removes an alert by id.
func (s *Service) DismissAlert(id string) bool {
	if s.alerts == nil {
		return false
	}
	return s.alerts.Dismiss(id)
}

// DisplayURL builds the display endpoint for the channel and the active
// match.
func (s *Service) DisplayURL(channel model.Channel) (string, error) {
	matchID, ok := s.ActiveMatch()
	if !ok {
		return "", ErrNoActiveMatch
	}
	path := s.previewPath
	if channel == model.ChannelLive {
		path = s.livePath
	}
	return s.baseURL + path + matchID, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"historyLimit":  s.historyLimit,
		"alertCapacity": s.alertCapacity,
	}
	if s.matchID != "" {
		stats["matchId"] = s.matchID
	}
	if s.alerts != nil {
		stats["alertCount"] = s.alerts.Len()
	}
	if s.engine != nil {
		_, attached := s.engine.Attached()
		stats["subscriptionAttached"] = attached
	}
	for ch, snapshot := range s.state {
		active := 0
		for _, d := range snapshot {
			if d.Control {
				active++
			}
		}
		stats["activeCues_"+ch.String()] = active
	}
	return stats
}

func (s *Service) ensureStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func copyState(in map[string]model.ControlDocument) map[string]model.ControlDocument {
	out := make(map[string]model.ControlDocument, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
