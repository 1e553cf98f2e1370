package alert

import (
	"context"
	"fmt"
	"sync"

	"github.com/NimnaKs/CG-COMPOSER/internal/domain/cue"
	"github.com/NimnaKs/CG-COMPOSER/pkg/logger"
	"github.com/NimnaKs/CG-COMPOSER/pkg/metrics"
)

// Cancelable is a handle on an active document listener.
type Cancelable interface {
	Cancel()
}

// Source provides push-based change notifications for a single
// document. The document store adapter satisfies this through a thin
// wrapper in the application layer.
type Source interface {
	Subscribe(ctx context.Context, collection, key string, onChange func(map[string]any), onError func(error)) (Cancelable, error)
}

// Engine watches one match record at a time and forwards allow-listed
// last_action events to the registered callback. At most one
// subscription is live at any moment: attaching to a new match cancels
// the previous listener, which is the only duplicate-delivery guard in
// the system.
type Engine struct {
	source     Source
	allow      cue.AllowList
	collection string
	onEvent    func(cue.Action)
	onError    func(error)
	log        logger.Logger

	mu      sync.Mutex
	sub     Cancelable
	matchID string
}

// NewEngine creates an engine in the detached state. onEvent receives
// every accepted action, including repeats of the same value; duplicate
// suppression is a consumer concern.
func NewEngine(source Source, allow cue.AllowList, onEvent func(cue.Action), opts ...EngineOption) *Engine {
	e := &Engine{
		source:     source,
		allow:      allow,
		collection: "matches",
		onEvent:    onEvent,
		log:        logger.Get().Named("alerts"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attach subscribes to the match record, detaching any prior
// subscription first.
func (e *Engine) Attach(ctx context.Context, matchID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.detachLocked()

	sub, err := e.source.Subscribe(ctx, e.collection, matchID,
		e.handleChange,
		func(err error) { e.handleStreamError(matchID, err) },
	)
	if err != nil {
		return fmt.Errorf("attach %s: %w", matchID, err)
	}
	e.sub = sub
	e.matchID = matchID
	metrics.UpdateSubscriptionActive(true)
	e.log.Info(ctx, "alert subscription attached", logger.String("matchId", matchID))
	return nil
}

// Detach cancels the active listener, if any. Safe to call when
// already detached.
func (e *Engine) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detachLocked()
}

// Attached returns the currently watched match id, if any.
func (e *Engine) Attached() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchID, e.sub != nil
}

func (e *Engine) detachLocked() {
	if e.sub == nil {
		return
	}
	e.sub.Cancel()
	e.sub = nil
	e.matchID = ""
	metrics.UpdateSubscriptionActive(false)
}

// handleChange runs on the source's delivery goroutine. It must not
// take e.mu: a detach may be in flight on another goroutine.
func (e *Engine) handleChange(doc map[string]any) {
	if doc == nil {
		return
	}
	action, ok := cue.FromValue(doc["last_action"])
	if !ok {
		return
	}
	if !e.allow.Contains(action) {
		metrics.RecordAlertFiltered()
		return
	}
	metrics.RecordAlertDelivered()
	if e.onEvent != nil {
		e.onEvent(action)
	}
}

// handleStreamError transitions to detached and surfaces the error to
// the consumer. The engine never reconnects on its own.
func (e *Engine) handleStreamError(matchID string, err error) {
	e.mu.Lock()
	// A newer attach may already own the subscription slot; only a
	// failure of the current match clears it.
	if e.matchID == matchID {
		e.sub = nil
		e.matchID = ""
		metrics.UpdateSubscriptionActive(false)
	}
	e.mu.Unlock()

	metrics.RecordSubscriptionError()
	wrapped := fmt.Errorf("%w: match %s: %v", ErrSubscription, matchID, err)
	e.log.Error(context.Background(), "alert subscription terminated",
		logger.String("matchId", matchID), logger.Error(err))
	if e.onError != nil {
		e.onError(wrapped)
	}
}
