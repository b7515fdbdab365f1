package fs

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	Versioned bool   `json:"versioned"`
	Writes    int    `json:"writes"`
	Commits   int    `json:"commits"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreState{
		Path:      s.Path,
		Format:    s.ext,
		Versioned: s.config.Versioned,
		Writes:    s.writes,
		Commits:   s.commits,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "fs"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
