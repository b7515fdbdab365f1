// Package mongo implements core.Store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/aretw0/furrow/pkg/core"
)

const idField = "_id"

// precision is the resolution of a BSON datetime.
const precision = time.Millisecond

// Server error codes mapped onto the core taxonomy.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

// Config holds the configuration for the MongoDB store.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration // connect and ping timeout, default 10s
	Logger   *slog.Logger
	Now      func() time.Time
}

// Store keeps one document per record, with the document identifier as _id.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	config Config

	mu     sync.RWMutex
	writes int
}

// Open connects and pings the server. The caller must Close the store.
func Open(ctx context.Context, config Config) (*Store, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("%w: mongo URI is empty", core.ErrConnection)
	}
	if config.Database == "" {
		config.Database = "furrow"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, classify(err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, classifyPing(err)
	}

	if config.Logger != nil {
		config.Logger.Debug("mongo client ready", "database", config.Database)
	}

	return &Store{client: client, db: client.Database(config.Database), config: config}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, rec core.Record) error {
	if err := core.ValidateCollection(collection); err != nil {
		return err
	}
	if err := core.ValidateID(id); err != nil {
		return err
	}
	doc, err := toBSON(id, rec, s.config.Now())
	if err != nil {
		return err
	}

	_, err = s.db.Collection(collection).ReplaceOne(ctx, bson.M{idField: id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
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
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{idField: id}).Decode(&doc)
	if err != nil {
		return nil, classify(err)
	}
	return fromBSON(doc)
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, classify(err)
	}
	return int(n), nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// toBSON builds the replacement document. A record field named _id is rejected
// because the document identifier owns it. Timestamps are truncated to milliseconds,
// the resolution BSON stores, so a read returns exactly what was written.
func toBSON(id string, rec core.Record, now time.Time) (bson.M, error) {
	normalized, err := rec.Normalize()
	if err != nil {
		return nil, err
	}
	if _, ok := normalized[idField]; ok {
		return nil, fmt.Errorf("%w: field %q is reserved", core.ErrValidation, idField)
	}
	doc := make(bson.M, len(normalized)+1)
	for k, v := range normalized.ResolveSentinels(now) {
		if t, ok := v.(time.Time); ok {
			v = t.Truncate(precision)
		}
		doc[k] = v
	}
	doc[idField] = id
	return doc, nil
}

func fromBSON(doc bson.M) (core.Record, error) {
	rec := make(core.Record, len(doc))
	for k, v := range doc {
		if k == idField {
			continue
		}
		switch x := v.(type) {
		case primitive.DateTime:
			rec[k] = x.Time().UTC()
		case int32:
			rec[k] = int64(x)
		case primitive.Null:
			rec[k] = nil
		default:
			rec[k] = x
		}
	}
	return rec.Normalize()
}

// classify maps driver errors onto the core error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %v", core.ErrNotFound, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		switch {
		case se.HasErrorCode(codeAuthenticationFailed):
			return fmt.Errorf("%w: %v", core.ErrAuth, err)
		case se.HasErrorCode(codeUnauthorized):
			return fmt.Errorf("%w: %v", core.ErrPermission, err)
		}
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: %v", core.ErrConnection, err)
	}
	return err
}

// classifyPing treats every unclassified ping failure as the server being unreachable.
func classifyPing(err error) error {
	c := classify(err)
	if errors.Is(c, core.ErrAuth) || errors.Is(c, core.ErrPermission) {
		return c
	}
	return fmt.Errorf("%w: %v", core.ErrConnection, err)
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Database string `json:"database"`
	Writes   int    `json:"writes"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{Database: s.config.Database, Writes: s.writes}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "mongo"
}

var _ core.Store = (*Store)(nil)
var _ introspection.Introspectable = (*Store)(nil)
