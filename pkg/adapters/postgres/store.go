// Package postgres implements core.Store on a single PostgreSQL jsonb table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretw0/furrow/pkg/core"
)

const schema = `CREATE TABLE IF NOT EXISTS %s (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	written_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);`

// Config holds the configuration for the Postgres store.
type Config struct {
	ConnString string
	Table      string // default "documents"
	Logger     *slog.Logger
	Now        func() time.Time
}

// Store keeps every collection in one table keyed by (collection, id).
// Records are stored in their tagged core.Field form so integers and timestamps survive jsonb.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	config Config

	mu     sync.RWMutex
	writes int
}

// Open connects, pings and ensures the table exists. The caller must Close the store.
func Open(ctx context.Context, config Config) (*Store, error) {
	if config.Table == "" {
		config.Table = "documents"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classifyConnect(err)
	}

	table := pgx.Identifier{config.Table}.Sanitize()
	if _, err := pool.Exec(ctx, fmt.Sprintf(schema, table)); err != nil {
		pool.Close()
		return nil, classify(err)
	}

	if config.Logger != nil {
		config.Logger.Debug("postgres pool ready", "table", config.Table)
	}

	return &Store{pool: pool, table: table, config: config}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, rec core.Record) error {
	if err := core.ValidateCollection(collection); err != nil {
		return err
	}
	if err := core.ValidateID(id); err != nil {
		return err
	}
	data, err := encode(rec, s.config.Now())
	if err != nil {
		return err
	}

	sql := fmt.Sprintf(`INSERT INTO %s (collection, id, data, written_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, written_at = EXCLUDED.written_at`, s.table)

	if _, err := s.pool.Exec(ctx, sql, collection, id, data); err != nil {
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
	sql := fmt.Sprintf(`SELECT data FROM %s WHERE collection = $1 AND id = $2`, s.table)

	var data []byte
	err := s.pool.QueryRow(ctx, sql, collection, id).Scan(&data)
	if err != nil {
		return nil, classify(err)
	}
	return decode(data)
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	sql := fmt.Sprintf(`SELECT count(*) FROM %s WHERE collection = $1`, s.table)

	var n int64
	if err := s.pool.QueryRow(ctx, sql, collection).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return int(n), nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func encode(rec core.Record, now time.Time) ([]byte, error) {
	normalized, err := rec.Normalize()
	if err != nil {
		return nil, err
	}
	fields, err := core.EncodeRecord(normalized.ResolveSentinels(now))
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func decode(data []byte) (core.Record, error) {
	var fields map[string]core.Field
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid stored document: %w", err)
	}
	return core.DecodeRecord(fields)
}

// SQLSTATE classes and codes mapped onto the core taxonomy.
const (
	codeInsufficientPrivilege = "42501"
	codeInvalidPassword       = "28P01"
	codeInvalidAuthorization  = "28000"
	codeInvalidText           = "22P02"
	codeUntranslatableChar    = "22P05"
)

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", core.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInsufficientPrivilege:
			return fmt.Errorf("%w: %v", core.ErrPermission, err)
		case codeInvalidPassword, codeInvalidAuthorization:
			return fmt.Errorf("%w: %v", core.ErrAuth, err)
		case codeInvalidText, codeUntranslatableChar:
			return fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		return err
	}
	if pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", core.ErrConnection, err)
	}
	return err
}

// classifyConnect treats every non-credential ping failure as the server being unreachable.
func classifyConnect(err error) error {
	c := classify(err)
	if errors.Is(c, core.ErrAuth) || errors.Is(c, core.ErrPermission) {
		return c
	}
	return fmt.Errorf("%w: %v", core.ErrConnection, err)
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Table  string `json:"table"`
	Writes int    `json:"writes"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{Table: s.config.Table, Writes: s.writes}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "postgres"
}

var _ core.Store = (*Store)(nil)
var _ introspection.Introspectable = (*Store)(nil)
