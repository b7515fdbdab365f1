// Package lifecycle exposes the writer's event stream as a lifecycle.Source.
package lifecycle

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"

	"github.com/aretw0/furrow/pkg/core"
)

// Tally counts the outcomes seen for one collection.
type Tally struct {
	Written int `json:"written"`
	Failed  int `json:"failed"`
}

// SourceState exposes the per-collection tallies for observability.
type SourceState struct {
	Collections map[string]Tally `json:"collections"`
	Forwarded   int              `json:"forwarded"`
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithCollections forwards only events for the named collections.
// Events for other collections are still tallied.
func WithCollections(names ...string) SourceOption {
	return func(s *Source) {
		if len(names) == 0 {
			return
		}
		s.only = make(map[string]bool, len(names))
		for _, n := range names {
			s.only[n] = true
		}
	}
}

// WithoutFailures drops EventFailed. The failure is already returned by Seed.
func WithoutFailures() SourceOption {
	return func(s *Source) {
		s.dropFailed = true
	}
}

// Source turns the core.Event channel fed by the writer into lifecycle events,
// keeping a running tally per collection.
type Source struct {
	events     <-chan core.Event
	out        chan lifecycle.Event
	only       map[string]bool
	dropFailed bool

	mu        sync.RWMutex
	tallies   map[string]Tally
	forwarded int
}

// NewSource creates a lifecycle.Source over the writer's events.
func NewSource(events <-chan core.Event, opts ...SourceOption) *Source {
	s := &Source{
		events:  events,
		out:     make(chan lifecycle.Event),
		tallies: make(map[string]Tally),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Events() <-chan lifecycle.Event {
	return s.out
}

// Start forwards events until ctx is canceled or the input channel closes,
// then closes the output channel.
func (s *Source) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if !s.observe(e) {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}

// observe records e and reports whether it passes the filters.
func (s *Source) observe(e core.Event) bool {
	pass := (s.only == nil || s.only[e.Collection]) && !(s.dropFailed && e.Type == core.EventFailed)

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tallies[e.Collection]
	switch e.Type {
	case core.EventWritten:
		t.Written++
	case core.EventFailed:
		t.Failed++
	}
	s.tallies[e.Collection] = t
	if pass {
		s.forwarded++
	}
	return pass
}

// Collections returns the collections seen so far, sorted.
func (s *Source) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tallies))
	for n := range s.tallies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// State implements introspection.Introspectable.
func (s *Source) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tallies := make(map[string]Tally, len(s.tallies))
	for k, v := range s.tallies {
		tallies[k] = v
	}
	return SourceState{Collections: tallies, Forwarded: s.forwarded}
}

// ComponentType implements introspection.Component.
func (s *Source) ComponentType() string {
	return "write-events"
}

var _ lifecycle.Source = (*Source)(nil)
var _ introspection.Introspectable = (*Source)(nil)
var _ introspection.Component = (*Source)(nil)
