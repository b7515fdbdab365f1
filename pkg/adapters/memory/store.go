// Package memory provides an in-process core.Store, used for dry runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/introspection"

	"github.com/aretw0/furrow/pkg/core"
)

// Store keeps documents in nested maps keyed by collection and ID.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]map[string]core.Record
	now    func() time.Time
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to resolve core.ServerTimestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		docs: make(map[string]map[string]core.Record),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Set(ctx context.Context, collection, id string, rec core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := core.ValidateCollection(collection); err != nil {
		return err
	}
	if err := core.ValidateID(id); err != nil {
		return err
	}
	normalized, err := rec.Normalize()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrConnection
	}
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]core.Record)
	}
	s.docs[collection][id] = normalized.ResolveSentinels(s.now())
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, core.ErrConnection
	}
	rec, ok := s.docs[collection][id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, core.ErrConnection
	}
	return len(s.docs[collection]), nil
}

// Close marks the store as closed. Later calls fail with core.ErrConnection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// IDs returns the sorted document IDs of a collection.
func (s *Store) IDs(collection string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Collections map[string]int `json:"collections"`
	Closed      bool           `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cols := make(map[string]int, len(s.docs))
	for name, docs := range s.docs {
		cols[name] = len(docs)
	}
	return StoreState{Collections: cols, Closed: s.closed}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory"
}

var _ core.Store = (*Store)(nil)
var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
