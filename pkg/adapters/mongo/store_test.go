package mongo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aretw0/furrow/pkg/core"
)

func TestClassify(t *testing.T) {
	assert.True(t, errors.Is(classify(mongo.ErrNoDocuments), core.ErrNotFound))
	assert.True(t, errors.Is(classify(mongo.CommandError{Code: codeUnauthorized, Message: "not authorized"}), core.ErrPermission))
	assert.True(t, errors.Is(classify(mongo.CommandError{Code: codeAuthenticationFailed, Message: "auth failed"}), core.ErrAuth))
	assert.True(t, errors.Is(classify(mongo.ErrClientDisconnected), core.ErrConnection))

	other := errors.New("boom")
	assert.Equal(t, other, classify(other))
	assert.True(t, errors.Is(classifyPing(other), core.ErrConnection))
}

func TestToBSON(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	doc, err := toBSON("test_event_0011", core.Record{"created_at": core.ServerTimestamp, "likes": 5}, now)
	require.NoError(t, err)
	assert.Equal(t, "test_event_0011", doc["_id"])
	assert.Equal(t, now, doc["created_at"])
	assert.Equal(t, int64(5), doc["likes"])

	_, err = toBSON("x", core.Record{"_id": "y"}, now)
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestFromBSON(t *testing.T) {
	when := time.Date(2025, 4, 10, 20, 15, 41, 0, time.UTC)
	rec, err := fromBSON(map[string]interface{}{
		"_id":        "1",
		"name":       "IT - Information Technology",
		"created_at": primitive.NewDateTimeFromTime(when),
		"likes":      int32(5),
	})
	require.NoError(t, err)
	assert.Equal(t, core.Record{
		"name":       "IT - Information Technology",
		"created_at": when,
		"likes":      int64(5),
	}, rec)
}

func TestOpen_EmptyURI(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.True(t, errors.Is(err, core.ErrConnection))
}

func TestBSONRoundTrip_TruncatesToMillisecond(t *testing.T) {
	start := time.Date(2025, 4, 11, 9, 0, 0, 123456789, time.UTC)
	now := time.Date(2025, 4, 10, 9, 0, 0, 987654321, time.UTC)
	rec := core.Record{
		"name":            "Test Event11",
		"likes":           int64(5),
		"start_timestamp": start,
		"created_at":      core.ServerTimestamp,
	}

	doc, err := toBSON("test_event_0011", rec, now)
	require.NoError(t, err)
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var stored bson.M
	require.NoError(t, bson.Unmarshal(raw, &stored))

	got, err := fromBSON(stored)
	require.NoError(t, err)
	assert.Equal(t, core.Record{
		"name":            "Test Event11",
		"likes":           int64(5),
		"start_timestamp": time.Date(2025, 4, 11, 9, 0, 0, 123000000, time.UTC),
		"created_at":      time.Date(2025, 4, 10, 9, 0, 0, 987000000, time.UTC),
	}, got)

	// A value already at store precision reads back unchanged.
	again, err := toBSON("test_event_0011", got, now)
	require.NoError(t, err)
	raw, err = bson.Marshal(again)
	require.NoError(t, err)
	stored = nil
	require.NoError(t, bson.Unmarshal(raw, &stored))
	got2, err := fromBSON(stored)
	require.NoError(t, err)
	assert.Equal(t, got, got2)
}

func TestState_ConcurrentWrites(t *testing.T) {
	s := &Store{config: Config{Database: "furrow"}}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.countWrite() }()
		go func() { defer wg.Done(); _ = s.State() }()
	}
	wg.Wait()
	assert.Equal(t, 50, s.State().(StoreState).Writes)
}
