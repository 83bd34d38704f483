package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_RecordAndRecent(t *testing.T) {
	t.Parallel()

	store, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	first := &MatchRecord{
		RoomID:   "R1",
		GameType: "uno",
		Winner:   "Alice",
		Players: []MatchPlayer{
			{AnchorID: "a1", Username: "Alice", Score: 510, IsWinner: true},
			{AnchorID: "a2", Username: "Bob", Score: 80},
		},
	}
	require.NoError(t, store.RecordMatch(ctx, first))
	assert.Positive(t, first.ID)

	require.NoError(t, store.RecordMatch(ctx, &MatchRecord{RoomID: "R2", GameType: "take6", Players: []MatchPlayer{}}))

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "R2", records[0].RoomID, "最新的在前")
	assert.Equal(t, first.Players, records[1].Players)
	assert.Equal(t, "Alice", records[1].Winner)
	assert.False(t, records[1].PlayedAt.IsZero())

	records, err = store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestHistoryStore_Nil(t *testing.T) {
	t.Parallel()

	var store *HistoryStore
	assert.NoError(t, store.RecordMatch(context.Background(), &MatchRecord{}))
	records, err := store.Recent(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, store.Close())
}
