package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/furrow/pkg/core"
)

// DefaultAdapter is the store used when none is named: the Firestore project the
// seeding scripts were written for.
const DefaultAdapter = "firestore"

// options holds the internal configuration for a seeding run.
type options struct {
	store   core.Store
	logger  *slog.Logger
	adapter string
	events  chan<- core.Event
	now     func() time.Time
	config  map[string]interface{}
}

// Option defines a functional option for configuring a run.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: DefaultAdapter,
		now:     time.Now,
		config:  make(map[string]interface{}),
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithAdapter selects the store adapter by name: "firestore", "mongo", "postgres", "fs" or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		if name != "" {
			o.adapter = name
		}
	}
}

// WithStore injects an already opened store. Open returns it as is.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithLogger sets the logger for the run.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEvents receives an Event after every attempted write.
func WithEvents(events chan<- core.Event) Option {
	return func(o *options) {
		o.events = events
	}
}

// WithClock sets the clock used for $now directives and for stores that resolve
// server timestamps on the client side.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCredentialsFile sets the service account key file (firestore).
func WithCredentialsFile(path string) Option {
	return func(o *options) {
		o.config["credentials_file"] = path
	}
}

// WithProjectID sets the Firebase project when the uri does not carry it (firestore).
func WithProjectID(id string) Option {
	return func(o *options) {
		o.config["project_id"] = id
	}
}

// WithDatabase names the database: the Firestore database ID or the MongoDB database.
func WithDatabase(name string) Option {
	return func(o *options) {
		o.config["database"] = name
	}
}

// WithTable sets the Postgres table holding the documents.
func WithTable(name string) Option {
	return func(o *options) {
		o.config["table"] = name
	}
}

// WithVersioning commits every write to git (fs).
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["versioned"] = enabled
	}
}

// WithAutoInit creates the directory and git repository when missing (fs).
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithFormat sets the document file format, ".json" or ".yaml" (fs).
func WithFormat(ext string) Option {
	return func(o *options) {
		o.config["format"] = ext
	}
}

// WithTimeout bounds connecting to a remote store (mongo).
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.config["timeout"] = d
	}
}

// WithDebounce sets how long Watch waits for a burst of file events to settle.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.config["debounce"] = d
	}
}
