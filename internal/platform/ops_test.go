package platform_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/furrow/internal/platform"
	"github.com/aretw0/furrow/pkg/adapters/memory"
	"github.com/aretw0/furrow/pkg/core"
	"github.com/aretw0/furrow/pkg/dataset"
)

var fixedNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// failingStore rejects writes to a single ID.
type failingStore struct {
	*memory.Store
	failID string
}

func (s *failingStore) Set(ctx context.Context, collection, id string, rec core.Record) error {
	if id == s.failID {
		return core.ErrPermission
	}
	return s.Store.Set(ctx, collection, id, rec)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := platform.Open(ctx, "", platform.WithAdapter("memory"))
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &memory.Store{}, store)
	})

	t.Run("injected store", func(t *testing.T) {
		mem := memory.NewStore()
		store, err := platform.Open(ctx, "ignored", platform.WithStore(mem))
		require.NoError(t, err)
		assert.Same(t, mem, store)
	})

	t.Run("fs", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "seeds")
		store, err := platform.Open(ctx, dir, platform.WithAdapter("fs"), platform.WithFormat(".yaml"))
		require.NoError(t, err)
		defer store.Close()

		require.NoError(t, store.Set(ctx, "Department Table", "1", core.Record{"name": "IT"}))
		_, err = os.Stat(filepath.Join(dir, "Department Table", "1.yaml"))
		assert.NoError(t, err)
	})

	t.Run("fs without auto init", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "missing")
		_, err := platform.Open(ctx, dir, platform.WithAdapter("fs"), platform.WithAutoInit(false))
		assert.ErrorIs(t, err, core.ErrConnection)
	})

	t.Run("firestore without credentials", func(t *testing.T) {
		_, err := platform.Open(ctx, "demo-project")
		assert.ErrorIs(t, err, core.ErrAuth)
	})

	t.Run("firestore with missing credentials file", func(t *testing.T) {
		_, err := platform.Open(ctx, "", platform.WithProjectID("demo-project"),
			platform.WithCredentialsFile(filepath.Join(t.TempDir(), "key.json")))
		assert.ErrorIs(t, err, core.ErrAuth)
	})

	t.Run("unknown adapter", func(t *testing.T) {
		_, err := platform.Open(ctx, "", platform.WithAdapter("couch"))
		assert.Error(t, err)
	})
}

func TestSeed_Builtins(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithClock(clock))

	batches, err := platform.LoadBatches(nil, "", platform.WithClock(clock))
	require.NoError(t, err)
	require.Len(t, batches, 2)

	report, err := platform.Seed(ctx, store, batches)
	require.NoError(t, err)
	assert.Equal(t, 79, report.Total())
	assert.Equal(t, []platform.BatchResult{
		{Name: "departments", Collection: "Department Table", Written: 78},
		{Name: "sample-event", Collection: "Event Table", Written: 1},
	}, report.Batches)

	rec, err := store.Get(ctx, "Event Table", "test_event_0011")
	require.NoError(t, err)
	assert.Equal(t, fixedNow, rec["created_at"])
	assert.Equal(t, int64(5), rec["likes"])

	// Reseeding overwrites in place.
	_, err = platform.Seed(ctx, store, batches)
	require.NoError(t, err)
	n, err := store.Count(ctx, "Department Table")
	require.NoError(t, err)
	assert.Equal(t, 78, n)
}

func TestSeed_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.NewStore(), failID: "3"}
	events := make(chan core.Event, 200)

	batches, err := platform.LoadBatches([]string{"departments", "sample-event"}, "", platform.WithClock(clock))
	require.NoError(t, err)

	report, err := platform.Seed(ctx, store, batches, platform.WithEvents(events))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPermission)

	var werr *core.WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, "3", werr.ID)

	require.Len(t, report.Batches, 1)
	assert.Equal(t, 2, report.Batches[0].Written)

	n, err := store.Count(ctx, "Event Table")
	require.NoError(t, err)
	assert.Zero(t, n, "later batches must not run")

	close(events)
	var written, failed int
	for e := range events {
		switch e.Type {
		case core.EventWritten:
			written++
		case core.EventFailed:
			failed++
		}
	}
	assert.Equal(t, 2, written)
	assert.Equal(t, 1, failed)
}

func TestRun_ClosesStore(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()

	batches, err := platform.LoadBatches([]string{"sample-event"}, "")
	require.NoError(t, err)

	report, err := platform.Run(ctx, "", batches, platform.WithStore(mem))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total())

	_, err = mem.Count(ctx, "Event Table")
	assert.ErrorIs(t, err, core.ErrConnection)
}

func TestLoadBatches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "venues.yaml"),
		[]byte("collection: Venue Table\nrecords:\n  - name: Main Hall\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "more"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "more", "rooms.yml"),
		[]byte("collection: Room Table\nrecords:\n  - name: A1\n  - name: A2\n"), 0644))

	t.Run("file", func(t *testing.T) {
		batches, err := platform.LoadBatches([]string{filepath.Join(dir, "venues.yaml")}, "")
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "Venue Table", batches[0].Collection)
	})

	t.Run("directory", func(t *testing.T) {
		batches, err := platform.LoadBatches([]string{dir}, "")
		require.NoError(t, err)
		require.Len(t, batches, 2)
		assert.Equal(t, "Room Table", batches[0].Collection)
	})

	t.Run("directory with glob", func(t *testing.T) {
		batches, err := platform.LoadBatches([]string{dir}, "*.yaml")
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "venues", batches[0].Name)
	})

	t.Run("unknown builtin", func(t *testing.T) {
		_, err := platform.LoadBatches([]string{"professors"}, "")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := platform.LoadBatches([]string{filepath.Join(dir, "nope.yaml")}, "")
		assert.Error(t, err)
	})
}

func TestSeed_Empty(t *testing.T) {
	store := memory.NewStore()
	report, err := platform.Seed(context.Background(), store, []dataset.Batch{{Name: "none", Collection: "C"}})
	require.NoError(t, err)
	assert.Zero(t, report.Total())
}
