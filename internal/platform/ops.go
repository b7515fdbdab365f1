package platform

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"strings"
	"time"

	"github.com/aretw0/furrow/pkg/adapters/firestore"
	"github.com/aretw0/furrow/pkg/adapters/fs"
	"github.com/aretw0/furrow/pkg/adapters/memory"
	"github.com/aretw0/furrow/pkg/adapters/mongo"
	"github.com/aretw0/furrow/pkg/adapters/postgres"
	"github.com/aretw0/furrow/pkg/core"
	"github.com/aretw0/furrow/pkg/dataset"
)

// Open acquires the store named by the adapter option.
// The 'uri' argument is adapter-specific: the Firebase project ID for 'firestore',
// a connection string for 'mongo' and 'postgres', a directory for 'fs'.
//
// The caller owns the returned store and must Close it.
func Open(ctx context.Context, uri string, opts ...Option) (core.Store, error) {
	o := applyOptions(opts)

	if o.store != nil {
		return o.store, nil
	}

	credentials, _ := o.config["credentials_file"].(string)
	database, _ := o.config["database"].(string)

	switch o.adapter {
	case "firestore":
		project := uri
		if project == "" {
			project, _ = o.config["project_id"].(string)
		}
		return firestore.Open(ctx, firestore.Config{
			ProjectID:       project,
			CredentialsFile: credentials,
			DatabaseID:      database,
			Logger:          o.logger,
		})
	case "mongo":
		timeout, _ := o.config["timeout"].(time.Duration)
		return mongo.Open(ctx, mongo.Config{
			URI:      uri,
			Database: database,
			Timeout:  timeout,
			Logger:   o.logger,
			Now:      o.now,
		})
	case "postgres":
		table, _ := o.config["table"].(string)
		return postgres.Open(ctx, postgres.Config{
			ConnString: uri,
			Table:      table,
			Logger:     o.logger,
			Now:        o.now,
		})
	case "fs":
		return openFS(ctx, uri, o)
	case "memory":
		return memory.NewStore(memory.WithClock(o.now)), nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// openFS handles the initialization logic for the filesystem adapter.
func openFS(ctx context.Context, path string, o *options) (core.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: fs adapter needs a directory", core.ErrConnection)
	}
	versioned, _ := o.config["versioned"].(bool)
	autoInit := true
	if v, ok := o.config["auto_init"].(bool); ok {
		autoInit = v
	}
	format, _ := o.config["format"].(string)

	store, err := fs.NewStore(fs.Config{
		Path:      path,
		AutoInit:  autoInit,
		Versioned: versioned,
		MustExist: !autoInit,
		Format:    format,
		Logger:    o.logger,
		Now:       o.now,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// BatchResult reports one seeded dataset.
type BatchResult struct {
	Name       string
	Collection string
	Written    int
}

// Report summarizes a seeding run.
type Report struct {
	Batches []BatchResult
}

// Total returns the number of records written across all batches.
func (r Report) Total() int {
	n := 0
	for _, b := range r.Batches {
		n += b.Written
	}
	return n
}

// Seed writes each batch in order through a core.Writer.
// It stops at the first failing batch. The report includes that batch with
// the records written before the failure.
func Seed(ctx context.Context, store core.Store, batches []dataset.Batch, opts ...Option) (Report, error) {
	o := applyOptions(opts)

	var writerOpts []core.WriterOption
	if o.logger != nil {
		writerOpts = append(writerOpts, core.WithWriterLogger(o.logger))
	}
	if o.events != nil {
		writerOpts = append(writerOpts, core.WithWriterEvents(o.events))
	}
	w := core.NewWriter(store, writerOpts...)

	var report Report
	for _, b := range batches {
		n, err := w.WriteAll(ctx, b.Collection, b.Entries)
		report.Batches = append(report.Batches, BatchResult{Name: b.Name, Collection: b.Collection, Written: n})
		if err != nil {
			if o.logger != nil {
				o.logger.Error("batch failed", "dataset", b.Name, "collection", b.Collection, "written", n, "error", err)
			}
			return report, fmt.Errorf("dataset %s: %w", b.Name, err)
		}
		if o.logger != nil {
			o.logger.Info("batch seeded", "dataset", b.Name, "collection", b.Collection, "written", n)
		}
	}

	return report, nil
}

// Run opens the store, seeds the batches and closes the store before returning.
func Run(ctx context.Context, uri string, batches []dataset.Batch, opts ...Option) (report Report, err error) {
	store, err := Open(ctx, uri, opts...)
	if err != nil {
		return Report{}, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close store: %w", cerr))
		}
	}()

	return Seed(ctx, store, batches, opts...)
}

// LoadBatches resolves dataset arguments: a built-in name, a YAML file, or a
// directory whose files matching pattern are loaded. No arguments means every built-in.
func LoadBatches(args []string, pattern string, opts ...Option) ([]dataset.Batch, error) {
	o := applyOptions(opts)
	loadOpts := []dataset.Option{dataset.WithClock(o.now)}

	if len(args) == 0 {
		args = dataset.Builtins()
	}

	var batches []dataset.Batch
	for _, arg := range args {
		loaded, err := loadArg(arg, pattern, loadOpts)
		if err != nil {
			return nil, err
		}
		batches = append(batches, loaded...)
	}
	return batches, nil
}

func loadArg(arg, pattern string, opts []dataset.Option) ([]dataset.Batch, error) {
	info, err := os.Stat(arg)
	if err != nil {
		if !errors.Is(err, iofs.ErrNotExist) || strings.ContainsAny(arg, `/\.`) {
			return nil, fmt.Errorf("failed to read dataset %s: %w", arg, err)
		}
		b, err := dataset.Builtin(arg, opts...)
		if err != nil {
			return nil, err
		}
		return []dataset.Batch{b}, nil
	}

	if !info.IsDir() {
		b, err := dataset.LoadFile(arg, opts...)
		if err != nil {
			return nil, err
		}
		return []dataset.Batch{b}, nil
	}

	paths, err := dataset.Match(arg, pattern)
	if err != nil {
		return nil, err
	}
	return dataset.LoadAll(paths, opts...)
}
