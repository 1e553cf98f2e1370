package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"
)

// keySeparator joins the encoded collection and document key segments.
// It must not appear in the base64url alphabet.
const keySeparator = "."

// DiskStore implements Store on top of diskv, one JSON file per
// document. Subscriptions are served by filesystem notifications on the
// collection directory.
type DiskStore struct {
	d        *diskv.Diskv
	basePath string

	mu     sync.Mutex
	subs   map[*diskSub]struct{}
	closed bool
}

// NewDiskStore creates a store rooted at basePath, creating it when
// missing.
func NewDiskStore(basePath string, opts ...DiskOption) (*DiskStore, error) {
	cfg := diskConfig{cacheSizeMax: 1024 * 1024}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("ensure base path: %w", err)
	}
	return &DiskStore{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      cfg.cacheSizeMax,
		}),
		basePath: basePath,
		subs:     make(map[*diskSub]struct{}),
	}, nil
}

// Get returns the document at (collection, key).
func (s *DiskStore) Get(ctx context.Context, collection, key string) (Document, error) {
	defer observeOp("get", time.Now())

	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	return s.read(toKey(collection, key))
}

// Upsert creates or overwrites the document at (collection, key).
func (s *DiskStore) Upsert(ctx context.Context, collection, key string, fields Document) error {
	defer observeOp("upsert", time.Now())

	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.write(toKey(collection, key), fields)
}

// Update merges fields into an existing document. The read-merge-write
// runs under the store mutex so concurrent updates to the same document
// do not lose fields.
func (s *DiskStore) Update(ctx context.Context, collection, key string, fields Document) error {
	defer observeOp("update", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	doc, err := s.read(toKey(collection, key))
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	return s.write(toKey(collection, key), doc)
}

// Append adds an entry to an append-only log collection under a fresh
// uuid key.
func (s *DiskStore) Append(ctx context.Context, logCollection string, fields Document) error {
	defer observeOp("append", time.Now())

	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.write(toKey(logCollection, uuid.NewString()), fields)
}

// QueryByField returns matching log entries, newest first, bounded to limit.
func (s *DiskStore) QueryByField(ctx context.Context, logCollection, field string, value any, limit int) ([]Document, error) {
	defer observeOp("query", time.Now())

	records, err := s.List(ctx, logCollection)
	if err != nil {
		return nil, err
	}
	var out []Document
	for _, r := range records {
		if fieldEqual(r.Fields[field], value) {
			out = append(out, r.Fields)
		}
	}
	sortByTimestampDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List returns every document in a collection.
func (s *DiskStore) List(ctx context.Context, collection string) ([]Record, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	prefix := encodeSegment(collection) + keySeparator
	var records []Record
	for key := range s.d.KeysPrefix(prefix, ctx.Done()) {
		doc, err := s.read(key)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{Key: docKeyOf(key), Fields: doc})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

// Subscribe watches the document's collection directory through
// fsnotify and delivers a fresh read of the document on every write to
// it. The current document, if any, is delivered first. A burst of
// filesystem events may deliver the same snapshot more than once;
// consumers are expected to tolerate repeats.
func (s *DiskStore) Subscribe(ctx context.Context, collection, key string, onChange func(Document), onError func(error)) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	dir := filepath.Join(s.basePath, encodeSegment(collection))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure collection directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	sub := &diskSub{
		store:   s,
		watcher: watcher,
		done:    make(chan struct{}),
		onError: onError,
	}
	s.subs[sub] = struct{}{}

	fileName := encodeSegment(key)
	storeKey := toKey(collection, key)

	if doc, err := s.read(storeKey); err == nil && onChange != nil {
		onChange(doc)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				sub.Cancel()
				return
			case <-sub.done:
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				sub.closeWith(err)
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Base(evt.Name) != fileName {
					continue
				}
				doc, err := s.read(storeKey)
				if err != nil {
					// Mid-write read; the trailing write event
					// re-delivers the settled document.
					continue
				}
				if onChange != nil {
					onChange(doc)
				}
			}
		}
	}()

	return sub, nil
}

// Close releases the store and cancels live subscriptions with ErrClosed.
func (s *DiskStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := make([]*diskSub, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[*diskSub]struct{})
	s.mu.Unlock()

	for _, sub := range subs {
		sub.closeWith(ErrClosed)
	}
	return nil
}

type diskSub struct {
	store   *DiskStore
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
	onError func(error)
}

func (d *diskSub) Cancel() {
	d.closeWith(nil)
}

func (d *diskSub) closeWith(err error) {
	d.once.Do(func() {
		close(d.done)
		_ = d.watcher.Close()
		d.store.dropSub(d)
		if err != nil && d.onError != nil {
			d.onError(err)
		}
	})
}

func (s *DiskStore) dropSub(sub *diskSub) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

func (s *DiskStore) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *DiskStore) read(key string) (Document, error) {
	raw, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}

func (s *DiskStore) write(key string, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.d.Write(key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// fieldEqual compares a stored value against a query value, tolerating
// the numeric widening JSON decoding applies.
func fieldEqual(stored, query any) bool {
	if stored == query {
		return true
	}
	sf, sok := asFloat(stored)
	qf, qok := asFloat(query)
	return sok && qok && sf == qf
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// encodeSegment makes a collection or key segment filesystem safe. The
// base64url alphabet never contains the key separator.
func encodeSegment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func decodeSegment(s string) string {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(raw)
}

func toKey(collection, key string) string {
	return encodeSegment(collection) + keySeparator + encodeSegment(key)
}

func docKeyOf(storeKey string) string {
	parts := strings.Split(storeKey, keySeparator)
	return decodeSegment(parts[len(parts)-1])
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, keySeparator)
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return strings.Join(append(append([]string{}, pathKey.Path...), pathKey.FileName), keySeparator)
}
