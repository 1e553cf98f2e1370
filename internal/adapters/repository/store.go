// Package repository defines the document store contract consumed by
// the composer core, plus its in-memory and on-disk implementations.
//
// The store exposes single-document reads and writes, an append-only
// log primitive, and a push-based subscription on one document. No
// cross-document transaction is offered; callers own any multi-record
// ordering concerns.
package repository

import "context"

// Document is a single stored record. Upsert overwrites the whole
// document, so callers must supply every field they intend to persist.
type Document map[string]any

// Record pairs a document with the key it is stored under.
type Record struct {
	Key    string
	Fields Document
}

// Subscription is a handle on a live document listener.
type Subscription interface {
	// Cancel stops delivery. Safe to call more than once.
	Cancel()
}

// Store provides read/write access to documents grouped in collections.
type Store interface {
	// Get returns the document at (collection, key).
	// Returns ErrNotFound when the document is absent.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Upsert creates or overwrites the document at (collection, key).
	Upsert(ctx context.Context, collection, key string, fields Document) error

	// Update merges fields into an existing document.
	// Returns ErrNotFound when the document is absent.
	Update(ctx context.Context, collection, key string, fields Document) error

	// Append adds an entry to an append-only log collection.
	Append(ctx context.Context, logCollection string, fields Document) error

	// QueryByField returns log entries whose field equals value, ordered
	// by their timestamp field descending, bounded to limit.
	QueryByField(ctx context.Context, logCollection, field string, value any, limit int) ([]Document, error)

	// List returns every document in a collection.
	List(ctx context.Context, collection string) ([]Record, error)

	// Subscribe registers a push-based listener on one document. The
	// current document, if any, is delivered first; afterwards onChange
	// fires on every write to the document. onError reports a terminal
	// stream failure, after which no further change is delivered.
	Subscribe(ctx context.Context, collection, key string, onChange func(Document), onError func(error)) (Subscription, error)

	// Close releases the store. Active subscriptions receive ErrClosed
	// through their onError callback.
	Close() error
}

// Clone returns a shallow copy of a document. Stored and delivered
// documents are always cloned so callers cannot alias internal state.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
