package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NimnaKs/CG-COMPOSER/internal/domain/model"
	"github.com/NimnaKs/CG-COMPOSER/pkg/metrics"
)

// MemoryStore implements Store with mutex-guarded maps. Change
// notifications are delivered synchronously from the writing goroutine,
// in emission order per document.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]map[string]Document // collection -> key -> document
	logs   map[string][]Document          // log collection -> entries
	subs   map[string]map[int]*memorySub  // collection/key -> id -> listener
	nextID int
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]Document),
		logs: make(map[string][]Document),
		subs: make(map[string]map[int]*memorySub),
	}
}

type memorySub struct {
	store    *MemoryStore
	target   string
	id       int
	onChange func(Document)
	onError  func(error)
}

func (s *memorySub) Cancel() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if m, ok := s.store.subs[s.target]; ok {
		delete(m, s.id)
		if len(m) == 0 {
			delete(s.store.subs, s.target)
		}
	}
}

func subTarget(collection, key string) string {
	return collection + "/" + key
}

// Get returns the document at (collection, key).
func (m *MemoryStore) Get(ctx context.Context, collection, key string) (Document, error) {
	defer observeOp("get", time.Now())

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	doc, ok := m.docs[collection][key]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, ErrNotFound)
	}
	return Clone(doc), nil
}

// Upsert creates or overwrites the document at (collection, key).
func (m *MemoryStore) Upsert(ctx context.Context, collection, key string, fields Document) error {
	defer observeOp("upsert", time.Now())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]Document)
	}
	doc := Clone(fields)
	m.docs[collection][key] = doc
	listeners := m.listenersLocked(collection, key)
	m.mu.Unlock()

	notifyChange(listeners, doc)
	return nil
}

// Update merges fields into an existing document.
func (m *MemoryStore) Update(ctx context.Context, collection, key string, fields Document) error {
	defer observeOp("update", time.Now())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	doc, ok := m.docs[collection][key]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("update %s/%s: %w", collection, key, ErrNotFound)
	}
	for k, v := range fields {
		doc[k] = v
	}
	snapshot := Clone(doc)
	listeners := m.listenersLocked(collection, key)
	m.mu.Unlock()

	notifyChange(listeners, snapshot)
	return nil
}

// Append adds an entry to an append-only log collection.
func (m *MemoryStore) Append(ctx context.Context, logCollection string, fields Document) error {
	defer observeOp("append", time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.logs[logCollection] = append(m.logs[logCollection], Clone(fields))
	return nil
}

// QueryByField returns matching log entries, newest first, bounded to limit.
func (m *MemoryStore) QueryByField(ctx context.Context, logCollection, field string, value any, limit int) ([]Document, error) {
	defer observeOp("query", time.Now())

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	var out []Document
	for _, doc := range m.logs[logCollection] {
		if doc[field] == value {
			out = append(out, Clone(doc))
		}
	}
	sortByTimestampDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List returns every document in a collection, ordered by key.
func (m *MemoryStore) List(ctx context.Context, collection string) ([]Record, error) {
	defer observeOp("list", time.Now())

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	records := make([]Record, 0, len(m.docs[collection]))
	for key, doc := range m.docs[collection] {
		records = append(records, Record{Key: key, Fields: Clone(doc)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

// Subscribe registers a listener on one document. The current document,
// if present, is delivered before Subscribe returns.
func (m *MemoryStore) Subscribe(ctx context.Context, collection, key string, onChange func(Document), onError func(error)) (Subscription, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	target := subTarget(collection, key)
	m.nextID++
	sub := &memorySub{
		store:    m,
		target:   target,
		id:       m.nextID,
		onChange: onChange,
		onError:  onError,
	}
	if m.subs[target] == nil {
		m.subs[target] = make(map[int]*memorySub)
	}
	m.subs[target][sub.id] = sub
	var initial Document
	if doc, ok := m.docs[collection][key]; ok {
		initial = Clone(doc)
	}
	m.mu.Unlock()

	if initial != nil && onChange != nil {
		onChange(initial)
	}
	return sub, nil
}

// Close releases the store and reports ErrClosed to live listeners.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var listeners []*memorySub
	for _, subs := range m.subs {
		for _, s := range subs {
			listeners = append(listeners, s)
		}
	}
	m.subs = make(map[string]map[int]*memorySub)
	m.mu.Unlock()

	for _, s := range listeners {
		if s.onError != nil {
			s.onError(ErrClosed)
		}
	}
	return nil
}

// listenersLocked snapshots the listeners for one document. Caller must
// hold m.mu; notification happens after the lock is released.
func (m *MemoryStore) listenersLocked(collection, key string) []*memorySub {
	subs := m.subs[subTarget(collection, key)]
	if len(subs) == 0 {
		return nil
	}
	out := make([]*memorySub, 0, len(subs))
	for _, s := range subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func notifyChange(listeners []*memorySub, doc Document) {
	for _, s := range listeners {
		if s.onChange != nil {
			s.onChange(Clone(doc))
		}
	}
}

func sortByTimestampDesc(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return model.ParseTime(docs[i]["timestamp"]).After(model.ParseTime(docs[j]["timestamp"]))
	})
}

func observeOp(op string, start time.Time) {
	metrics.RecordStoreOp(op, float64(time.Since(start).Milliseconds()))
}
