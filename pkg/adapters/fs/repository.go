package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/furrow/pkg/core"
	"github.com/aretw0/furrow/pkg/git"
)

// Store implements core.Store on the local filesystem.
// Each collection is a directory under Path and each document is one file named after its ID.
type Store struct {
	Path   string
	git    *git.Client
	config Config

	serializer Serializer
	ext        string

	mu      sync.RWMutex
	writes  int
	commits int
}

// Config holds the configuration for the filesystem store.
type Config struct {
	Path      string
	AutoInit  bool
	Versioned bool   // commit every write to git
	MustExist bool
	Format    string // file extension: ".json" (default), ".yaml" or ".yml"
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewStore creates a new filesystem-backed store. It performs no I/O until Initialize.
func NewStore(config Config) (*Store, error) {
	ext := config.Format
	if ext == "" {
		ext = ".json"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	serializer, ok := DefaultSerializers()[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported document format: %s", ext)
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Store{
		Path:       config.Path,
		git:        git.NewClient(config.Path, ".furrow.lock", config.Logger),
		config:     config,
		serializer: serializer,
		ext:        ext,
	}, nil
}

// Initialize performs the necessary setup for the store (mkdir, git init).
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: store path does not exist: %s", core.ErrConnection, s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: store path is not a directory: %s", core.ErrConnection, s.Path)
		}
	} else {
		if err := os.MkdirAll(s.Path, 0755); err != nil {
			return classify(fmt.Errorf("failed to create store directory: %w", err))
		}
	}

	if err := s.sweep(); err != nil {
		return err
	}

	if !s.config.Versioned {
		return nil
	}

	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}
	if !s.git.IsRepo() {
		if !s.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", s.Path)
		}
		if err := s.git.Init(ctx); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
	}

	return s.ensureIgnore()
}

// sweep removes temp files left in collection directories by interrupted writes.
func (s *Store) sweep() error {
	entries, err := os.ReadDir(s.Path)
	if err != nil {
		return classify(err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		removed, err := removeStaleTemps(filepath.Join(s.Path, e.Name()))
		if err != nil {
			return classify(err)
		}
		if removed > 0 && s.config.Logger != nil {
			s.config.Logger.Warn("removed stale temp files", "collection", e.Name(), "count", removed)
		}
	}
	return nil
}

func (s *Store) ensureIgnore() error {
	ignorePath := filepath.Join(s.Path, ".gitignore")
	ignoreEntry := ".furrow.lock"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == ignoreEntry {
			return nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(ignoreEntry + "\n")
	return err
}

func (s *Store) docPath(collection, id string) (rel, full string, err error) {
	if err := core.ValidateCollection(collection); err != nil {
		return "", "", err
	}
	if err := core.ValidateID(id); err != nil {
		return "", "", err
	}
	if strings.ContainsRune(collection, filepath.Separator) || strings.ContainsRune(id, filepath.Separator) {
		return "", "", fmt.Errorf("%w: path separator in %s/%s", core.ErrValidation, collection, id)
	}
	if collection == "." || collection == ".." || strings.HasPrefix(collection, ".git") {
		return "", "", fmt.Errorf("%w: reserved collection name %q", core.ErrValidation, collection)
	}
	rel = filepath.Join(collection, id+s.ext)
	return rel, filepath.Join(s.Path, rel), nil
}

// Set writes the record atomically, replacing the existing file.
//
// Workflow:
//  1. Validate names and normalize the record.
//  2. Resolve core.ServerTimestamp with the store clock and encode to tagged fields.
//  3. Create the collection directory and write the file atomically.
//  4. (If versioned) 'git add' and 'git commit' under the store lock.
func (s *Store) Set(ctx context.Context, collection, id string, rec core.Record) error {
	rel, full, err := s.docPath(collection, id)
	if err != nil {
		return err
	}

	normalized, err := rec.Normalize()
	if err != nil {
		return err
	}
	fields, err := core.EncodeRecord(normalized.ResolveSentinels(s.config.Now()))
	if err != nil {
		return err
	}
	data, err := s.serializer.Serialize(fields)
	if err != nil {
		return fmt.Errorf("%w: failed to serialize document: %v", core.ErrValidation, err)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return classify(fmt.Errorf("failed to create directories: %w", err))
	}

	if !s.config.Versioned {
		if err := writeFileAtomic(full, data, 0644); err != nil {
			return classify(err)
		}
		s.countWrite(false)
		return nil
	}

	unlock, err := s.git.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	if err := writeFileAtomic(full, data, 0644); err != nil {
		return classify(err)
	}
	if err := s.git.Add(ctx, filepath.ToSlash(rel)); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	if err := s.git.Commit(ctx, fmt.Sprintf("seed(%s): set %s", collection, id)); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	s.countWrite(true)
	return nil
}

func (s *Store) countWrite(committed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if committed {
		s.commits++
	}
}

// Get reads and decodes one document file.
func (s *Store) Get(ctx context.Context, collection, id string) (core.Record, error) {
	_, full, err := s.docPath(collection, id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", core.ErrNotFound, collection, id)
		}
		return nil, classify(err)
	}
	defer f.Close()

	fields, err := s.serializer.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s/%s: %w", collection, id, err)
	}
	return core.DecodeRecord(fields)
}

// Count returns the number of document files in the collection directory.
// Temporary files left by an interrupted atomic write are ignored.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(filepath.Join(s.Path, collection))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, classify(err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), TempFilePrefix) {
			continue
		}
		if filepath.Ext(e.Name()) == s.ext {
			n++
		}
	}
	return n, nil
}

// Close is a no-op: the filesystem store holds no open handles between calls.
func (s *Store) Close() error {
	return nil
}

func classify(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", core.ErrPermission, err)
	}
	return err
}

var _ core.Store = (*Store)(nil)
