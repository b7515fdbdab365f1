package furrow

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/furrow/internal/platform"
	"github.com/aretw0/furrow/pkg/core"
	"github.com/aretw0/furrow/pkg/dataset"
)

// --- Types ---

// Record is a flat document: field name to scalar value.
type Record = core.Record

// Entry pairs a document ID with its record.
type Entry = core.Entry

// Store is the contract every storage adapter implements.
type Store = core.Store

// Batch is a loaded dataset ready to be written.
type Batch = dataset.Batch

// Report summarizes a seeding run.
type Report = platform.Report

// BatchResult reports one seeded dataset.
type BatchResult = platform.BatchResult

// ServerTimestamp asks the store to fill the field with its own write time.
const ServerTimestamp = core.ServerTimestamp

// --- Configuration ---

// Option defines a functional option for configuring a run.
type Option = platform.Option

// WithAdapter selects the store adapter by name: "firestore", "mongo", "postgres", "fs" or "memory".
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithStore allows injecting a custom storage adapter.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithLogger sets the logger for the run.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithEvents receives an event after every attempted write.
func WithEvents(events chan<- core.Event) Option {
	return platform.WithEvents(events)
}

// WithClock sets the clock used for $now directives and client-side server timestamps.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithCredentialsFile sets the service account key file (firestore).
func WithCredentialsFile(path string) Option {
	return platform.WithCredentialsFile(path)
}

// WithProjectID sets the Firebase project (firestore).
func WithProjectID(id string) Option {
	return platform.WithProjectID(id)
}

// WithDatabase names the Firestore database ID or the MongoDB database.
func WithDatabase(name string) Option {
	return platform.WithDatabase(name)
}

// WithTable sets the Postgres table holding the documents.
func WithTable(name string) Option {
	return platform.WithTable(name)
}

// WithVersioning commits every write to git (fs).
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithAutoInit creates the target directory when missing (fs).
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithFormat sets the document file format, ".json" or ".yaml" (fs).
func WithFormat(ext string) Option {
	return platform.WithFormat(ext)
}

// WithTimeout bounds connecting to a remote store (mongo).
func WithTimeout(d time.Duration) Option {
	return platform.WithTimeout(d)
}

// WithDebounce sets how long Watch waits for file events to settle.
func WithDebounce(d time.Duration) Option {
	return platform.WithDebounce(d)
}

// --- Factory ---

// Open acquires a store. The caller must Close it.
func Open(ctx context.Context, uri string, opts ...Option) (core.Store, error) {
	return platform.Open(ctx, uri, opts...)
}

// NewWriter creates a bulk writer over an open store.
func NewWriter(store core.Store, opts ...core.WriterOption) *core.Writer {
	return core.NewWriter(store, opts...)
}

// --- Operations ---

// Load resolves dataset arguments: built-in names, YAML files or directories.
// No arguments selects every built-in dataset.
func Load(args []string, pattern string, opts ...Option) ([]Batch, error) {
	return platform.LoadBatches(args, pattern, opts...)
}

// Seed writes the batches in order, stopping at the first failure.
func Seed(ctx context.Context, store core.Store, batches []Batch, opts ...Option) (Report, error) {
	return platform.Seed(ctx, store, batches, opts...)
}

// Run opens the store, seeds the batches and closes the store.
func Run(ctx context.Context, uri string, batches []Batch, opts ...Option) (Report, error) {
	return platform.Run(ctx, uri, batches, opts...)
}

// Watch re-seeds datasets under dir as they change, until ctx is canceled.
func Watch(ctx context.Context, store core.Store, dir, pattern string, opts ...Option) error {
	return platform.Watch(ctx, store, dir, pattern, opts...)
}

// Builtins lists the datasets shipped with the binary.
func Builtins() []string {
	return dataset.Builtins()
}
