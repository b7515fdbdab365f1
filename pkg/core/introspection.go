package core

import (
	"github.com/aretw0/introspection"
)

// WriterState exposes internal state for observability.
type WriterState struct {
	Written        int    `json:"written"`
	Failed         int    `json:"failed"`
	LastCollection string `json:"last_collection,omitempty"`
	StoreType      string `json:"store_type"`
}

// State implements introspection.Introspectable.
func (w *Writer) State() any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	storeType := "unknown"
	if w.store != nil {
		storeType = "store"
		if comp, ok := w.store.(introspection.Component); ok {
			storeType = comp.ComponentType()
		}
	}

	return WriterState{
		Written:        w.written,
		Failed:         w.failed,
		LastCollection: w.lastCollection,
		StoreType:      storeType,
	}
}

// ComponentType implements introspection.Component.
func (w *Writer) ComponentType() string {
	return "writer"
}

var _ introspection.Introspectable = (*Writer)(nil)
var _ introspection.Component = (*Writer)(nil)
