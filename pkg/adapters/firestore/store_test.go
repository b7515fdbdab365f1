package firestore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aretw0/furrow/pkg/core"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		code codes.Code
		want error
	}{
		{codes.Unavailable, core.ErrConnection},
		{codes.DeadlineExceeded, core.ErrConnection},
		{codes.Unauthenticated, core.ErrAuth},
		{codes.PermissionDenied, core.ErrPermission},
		{codes.InvalidArgument, core.ErrValidation},
		{codes.NotFound, core.ErrNotFound},
	}
	for _, c := range cases {
		t.Run(c.code.String(), func(t *testing.T) {
			err := classify(status.Error(c.code, "boom"))
			assert.True(t, errors.Is(err, c.want), "got %v", err)
		})
	}

	plain := errors.New("other")
	assert.Equal(t, plain, classify(plain))
	assert.True(t, errors.Is(classify(context.Canceled), context.Canceled))
}

func TestToFirestore(t *testing.T) {
	data, err := toFirestore(core.Record{
		"created_at": core.ServerTimestamp,
		"likes":      5,
		"name":       "Test Event11",
	})
	require.NoError(t, err)
	assert.Equal(t, firestore.ServerTimestamp, data["created_at"])
	assert.Equal(t, int64(5), data["likes"])

	_, err = toFirestore(core.Record{"bad": []int{1}})
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestFromFirestore(t *testing.T) {
	loc := time.FixedZone("IST", 19800)
	rec, err := fromFirestore(map[string]interface{}{
		"created_at": time.Date(2025, 4, 10, 20, 15, 41, 0, loc),
		"likes":      int64(5),
	})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, rec["created_at"].(time.Time).Location())
	assert.Equal(t, int64(5), rec["likes"])
}

func TestOpen_MissingCredentials(t *testing.T) {
	_, err := Open(context.Background(), Config{ProjectID: "p"})
	assert.True(t, errors.Is(err, core.ErrAuth))

	_, err = Open(context.Background(), Config{ProjectID: "p", CredentialsFile: filepath.Join(t.TempDir(), "missing.json")})
	assert.True(t, errors.Is(err, core.ErrAuth))
}

func TestToFirestore_TruncatesToMicrosecond(t *testing.T) {
	start := time.Date(2025, 4, 11, 9, 0, 0, 123456789, time.UTC)
	data, err := toFirestore(core.Record{"start_timestamp": start})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 11, 9, 0, 0, 123456000, time.UTC), data["start_timestamp"])

	rec, err := fromFirestore(data)
	require.NoError(t, err)
	again, err := toFirestore(rec)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestStore_RejectsInvalidNames(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	_, err := s.Get(ctx, "Event Table/x", "1")
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)

	_, err = s.Get(ctx, "Event Table", "")
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)

	_, err = s.Count(ctx, "")
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)

	err = s.Set(ctx, "Event Table", "a/b", core.Record{})
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)
}

func TestState_ConcurrentWrites(t *testing.T) {
	s := &Store{config: Config{ProjectID: "p"}}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.countWrite() }()
		go func() { defer wg.Done(); _ = s.State() }()
	}
	wg.Wait()
	assert.Equal(t, 50, s.State().(StoreState).Writes)
}
