package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/furrow/internal/platform"
	"github.com/aretw0/furrow/pkg/adapters/memory"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"),
		[]byte("collection: Venue Table\nids: field\nrecords:\n  - {id: v1, name: Main Hall}\n"), 0644))

	done := make(chan error, 1)
	go func() {
		done <- platform.Watch(ctx, store, dir, "", platform.WithDebounce(20*time.Millisecond))
	}()

	count := func() int {
		n, _ := store.Count(context.Background(), "Venue Table")
		return n
	}

	require.Eventually(t, func() bool { return count() == 1 }, 2*time.Second, 10*time.Millisecond,
		"existing datasets are seeded on start")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"),
		[]byte("collection: Venue Table\nids: field\nrecords:\n  - {id: v2, name: Annex}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	require.Eventually(t, func() bool { return count() == 2 }, 2*time.Second, 10*time.Millisecond,
		"new dataset is seeded")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
