package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Writer performs one-shot bulk writes of records into a collection.
type Writer struct {
	store  Store
	logger *slog.Logger
	events chan<- Event

	mu             sync.RWMutex
	written        int
	failed         int
	lastCollection string
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger used for per-record debug output.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithWriterEvents makes the writer emit an Event after every attempted write.
// Sends block until received or the context is done.
func WithWriterEvents(events chan<- Event) WriterOption {
	return func(w *Writer) {
		w.events = events
	}
}

// NewWriter creates a new Writer on top of store.
func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{store: store}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteAll writes every entry to the collection, in order, one store call per entry.
// It returns the number of records written.
//
// The input is validated before the first write: an empty or duplicate ID, or a
// value the store cannot hold, fails the whole call with ErrValidation and nothing
// is written. After that, writes are independent: a failing entry stops the run and
// is returned as a *WriteError, but records written before it stay written.
func (w *Writer) WriteAll(ctx context.Context, collection string, entries []Entry) (int, error) {
	if err := ValidateCollection(collection); err != nil {
		return 0, err
	}

	normalized := make([]Entry, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if err := ValidateID(e.ID); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		if seen[e.ID] {
			return 0, fmt.Errorf("entry %d: %w: duplicate document ID %q", i, ErrValidation, e.ID)
		}
		seen[e.ID] = true

		rec, err := e.Record.Normalize()
		if err != nil {
			return 0, fmt.Errorf("entry %q: %w", e.ID, err)
		}
		normalized[i] = Entry{ID: e.ID, Record: rec}
	}

	w.mu.Lock()
	w.lastCollection = collection
	w.mu.Unlock()

	count := 0
	for _, e := range normalized {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		if err := w.store.Set(ctx, collection, e.ID, e.Record); err != nil {
			w.record(false)
			w.emit(ctx, EventFailed, collection, e.ID)
			return count, &WriteError{Collection: collection, ID: e.ID, Err: err}
		}

		count++
		w.record(true)
		if w.logger != nil {
			w.logger.Debug("record written", "collection", collection, "id", e.ID, "fields", len(e.Record))
		}
		w.emit(ctx, EventWritten, collection, e.ID)
	}

	return count, nil
}

func (w *Writer) record(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ok {
		w.written++
	} else {
		w.failed++
	}
}

func (w *Writer) emit(ctx context.Context, t EventType, collection, id string) {
	if w.events == nil {
		return
	}
	e := Event{Type: t, Collection: collection, ID: id, Timestamp: time.Now().Unix()}
	select {
	case w.events <- e:
	case <-ctx.Done():
	}
}
