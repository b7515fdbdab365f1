// Package firestore implements core.Store on Google Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/aretw0/introspection"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aretw0/furrow/pkg/core"
)

// Config holds the configuration for the Firestore store.
type Config struct {
	// ProjectID of the Firebase project. Empty means detect it from the credentials.
	ProjectID string
	// CredentialsFile is the service account key JSON file, read once at Open.
	CredentialsFile string
	// DatabaseID selects a named database. Empty means "(default)".
	DatabaseID string
	Logger     *slog.Logger
}

// Store writes documents with DocumentRef.Set, which replaces the whole document.
type Store struct {
	client *firestore.Client
	config Config

	mu     sync.RWMutex
	writes int
}

// precision is the resolution of a Firestore timestamp.
const precision = time.Microsecond

// Open authenticates with the credentials file and creates the client.
// The caller must Close the store.
func Open(ctx context.Context, config Config) (*Store, error) {
	if config.CredentialsFile == "" {
		return nil, fmt.Errorf("%w: firestore needs a credentials file", core.ErrAuth)
	}
	if _, err := os.Stat(config.CredentialsFile); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAuth, err)
	}

	projectID := config.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	opts := []option.ClientOption{option.WithCredentialsFile(config.CredentialsFile)}

	var client *firestore.Client
	var err error
	if config.DatabaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, config.DatabaseID, opts...)
	} else {
		client, err = firestore.NewClient(ctx, projectID, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAuth, err)
	}

	if config.Logger != nil {
		config.Logger.Debug("firestore client ready", "project", projectID, "database", config.DatabaseID)
	}

	return &Store{client: client, config: config}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, rec core.Record) error {
	if err := core.ValidateCollection(collection); err != nil {
		return err
	}
	if err := core.ValidateID(id); err != nil {
		return err
	}
	data, err := toFirestore(rec)
	if err != nil {
		return err
	}

	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		return classify(err)
	}
	s.countWrite()
	return nil
}

func (s *Store) countWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
}

func (s *Store) Get(ctx context.Context, collection, id string) (core.Record, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := core.ValidateID(id); err != nil {
		return nil, err
	}
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return fromFirestore(snap.Data())
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return 0, err
	}
	refs, err := s.client.Collection(collection).DocumentRefs(ctx).GetAll()
	if err != nil {
		return 0, classify(err)
	}
	return len(refs), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// toFirestore maps a record onto the values the Firestore client accepts.
// Timestamps are truncated to microseconds, the resolution Firestore stores.
func toFirestore(rec core.Record) (map[string]interface{}, error) {
	normalized, err := rec.Normalize()
	if err != nil {
		return nil, err
	}
	data := make(map[string]interface{}, len(normalized))
	for k, v := range normalized {
		if sv, ok := v.(core.Sentinel); ok {
			if sv != core.ServerTimestamp {
				return nil, fmt.Errorf("%w: field %q: unsupported %s", core.ErrValidation, k, sv)
			}
			data[k] = firestore.ServerTimestamp
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.Truncate(precision)
		}
		data[k] = v
	}
	return data, nil
}

func fromFirestore(data map[string]interface{}) (core.Record, error) {
	rec := make(core.Record, len(data))
	for k, v := range data {
		switch x := v.(type) {
		case time.Time:
			rec[k] = x.UTC()
		case *firestore.DocumentRef:
			rec[k] = x.ID
		default:
			rec[k] = x
		}
	}
	return rec.Normalize()
}

// classify maps gRPC status codes onto the core error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", core.ErrNotFound, err)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", core.ErrConnection, err)
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %v", core.ErrAuth, err)
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %v", core.ErrPermission, err)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	return err
}

// StoreState exposes internal state for observability.
type StoreState struct {
	ProjectID string `json:"project_id"`
	Database  string `json:"database,omitempty"`
	Writes    int    `json:"writes"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{ProjectID: s.config.ProjectID, Database: s.config.DatabaseID, Writes: s.writes}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "firestore"
}

var _ core.Store = (*Store)(nil)
var _ introspection.Introspectable = (*Store)(nil)
