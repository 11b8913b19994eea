package record

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srahin000/bumblebee-smart-speaker/artifact"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	return store
}

func TestStore_SaveAndLoadArtifacts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	first := artifact.ConversationArtifact{
		ID: "a1", SessionID: "s1", Timestamp: base,
		Transcription: "hi", Response: "hello",
	}
	second := artifact.ConversationArtifact{
		ID: "a2", SessionID: "s1", Timestamp: base.Add(time.Minute),
		Transcription: "bye", Response: "see you",
	}

	require.NoError(t, store.SaveArtifact(ctx, second))
	require.NoError(t, store.SaveArtifact(ctx, first))

	recs, err := store.RecordsForSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Oldest first regardless of insertion order.
	assert.Equal(t, "a1", recs[0].ID)
	assert.Equal(t, "a2", recs[1].ID)

	other, err := store.RecordsForSession(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_AddDailyScoreAccumulates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	score, err := store.AddDailyScore(ctx, "2025-06-01", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, DailyScore{Date: "2025-06-01", Incorrect: 2, Total: 5}, score)

	score, err = store.AddDailyScore(ctx, "2025-06-01", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, DailyScore{Date: "2025-06-01", Incorrect: 3, Total: 9}, score)

	_, err = store.AddDailyScore(ctx, "2025-05-30", 0, 3)
	require.NoError(t, err)

	scores, err := store.Scores(ctx)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	// Ordered by date.
	assert.Equal(t, "2025-05-30", scores[0].Date)
	assert.Equal(t, "2025-06-01", scores[1].Date)
}

func TestStore_ProfileRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.Info)

	require.NoError(t, store.SaveProfile(ctx, "likes dinosaurs, has a dog named Rex"))

	p, err = store.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "likes dinosaurs, has a dog named Rex", p.Info)
	assert.False(t, p.LastUpdated.IsZero())

	// Saving again replaces rather than duplicates.
	require.NoError(t, store.SaveProfile(ctx, "likes dinosaurs, has a dog named Rex, age 6"))
	p, err = store.Profile(ctx)
	require.NoError(t, err)
	assert.Contains(t, p.Info, "age 6")
}
