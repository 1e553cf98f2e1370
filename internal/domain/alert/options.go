package alert

import "github.com/NimnaKs/CG-COMPOSER/pkg/logger"

// QueueOption applies a configuration option to a Queue.
type QueueOption func(*Queue)

// WithCapacity sets the maximum number of queued alerts.
func WithCapacity(capacity int) QueueOption {
	return func(q *Queue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// EngineOption applies a configuration option to an Engine.
type EngineOption func(*Engine)

// WithCollection sets the collection holding match records.
func WithCollection(collection string) EngineOption {
	return func(e *Engine) {
		if collection != "" {
			e.collection = collection
		}
	}
}

// WithErrorHandler registers a callback for terminal stream errors.
func WithErrorHandler(onError func(error)) EngineOption {
	return func(e *Engine) {
		e.onError = onError
	}
}

// WithEngineLogger sets a custom logger for the engine.
func WithEngineLogger(log logger.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}
