package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannysoft/mesa-client/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestViewedFlags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("absent means never viewed", func(t *testing.T) {
		viewed, err := s.IsViewed(ctx, 1, "returned_incidents")
		require.NoError(t, err)
		assert.False(t, viewed)
	})

	t.Run("set then read", func(t *testing.T) {
		require.NoError(t, s.SetViewed(ctx, 1, "returned_incidents"))

		viewed, err := s.IsViewed(ctx, 1, "returned_incidents")
		require.NoError(t, err)
		assert.True(t, viewed)
	})

	t.Run("scoped per user and feature", func(t *testing.T) {
		viewed, err := s.IsViewed(ctx, 2, "returned_incidents")
		require.NoError(t, err)
		assert.False(t, viewed)

		viewed, err = s.IsViewed(ctx, 1, "other_feature")
		require.NoError(t, err)
		assert.False(t, viewed)
	})

	t.Run("set twice is idempotent", func(t *testing.T) {
		require.NoError(t, s.SetViewed(ctx, 1, "returned_incidents"))

		viewed, err := s.IsViewed(ctx, 1, "returned_incidents")
		require.NoError(t, err)
		assert.True(t, viewed)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, s.ClearViewed(ctx, 1, "returned_incidents"))

		viewed, err := s.IsViewed(ctx, 1, "returned_incidents")
		require.NoError(t, err)
		assert.False(t, viewed)
	})
}

func TestMergeMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := model.Message{
		ID:         42,
		FromUserID: 7,
		ToUserID:   1,
		Body:       "hola",
		CreatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	t.Run("first merge is new", func(t *testing.T) {
		inserted, err := s.MergeMessage(ctx, 7, msg)
		require.NoError(t, err)
		assert.True(t, inserted)
	})

	t.Run("duplicate delivery is not new", func(t *testing.T) {
		inserted, err := s.MergeMessage(ctx, 7, msg)
		require.NoError(t, err)
		assert.False(t, inserted)

		messages, err := s.MessagesWith(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, messages, 1)
	})

	t.Run("last writer wins on conflict", func(t *testing.T) {
		updated := msg
		updated.Body = "hola otra vez"

		inserted, err := s.MergeMessage(ctx, 7, updated)
		require.NoError(t, err)
		assert.False(t, inserted)

		messages, err := s.MessagesWith(ctx, 7)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "hola otra vez", messages[0].Body)
	})
}

func TestMessagesWithOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Insert out of creation order, as push and reload can race.
	history := []model.Message{
		{ID: 3, FromUserID: 7, ToUserID: 1, Body: "tercero", CreatedAt: base.Add(2 * time.Minute)},
		{ID: 1, FromUserID: 1, ToUserID: 7, Body: "primero", CreatedAt: base},
		{ID: 2, FromUserID: 7, ToUserID: 1, Body: "segundo", CreatedAt: base.Add(time.Minute)},
	}
	require.NoError(t, s.MergeMessages(ctx, 7, history))

	messages, err := s.MessagesWith(ctx, 7)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "primero", messages[0].Body)
	assert.Equal(t, "segundo", messages[1].Body)
	assert.Equal(t, "tercero", messages[2].Body)
}

func TestMessagesScopedByCounterpart(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := s.MergeMessage(ctx, 7, model.Message{ID: 1, FromUserID: 7, ToUserID: 1, Body: "a", CreatedAt: now})
	require.NoError(t, err)
	_, err = s.MergeMessage(ctx, 9, model.Message{ID: 2, FromUserID: 9, ToUserID: 1, Body: "b", CreatedAt: now})
	require.NoError(t, err)

	messages, err := s.MessagesWith(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Equal(t, "a", messages[0].Body)
}
