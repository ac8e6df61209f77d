package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memtwin/memtwin/internal/models"
)

func TestConsolidationStatusTriggers(t *testing.T) {
	ctx := context.Background()

	t.Run("quiet project does not trigger", func(t *testing.T) {
		store := newFakeStore()
		for i := 0; i < 5; i++ {
			_, err := store.CreateEpisode(ctx, testEpisode("proj-a", "episode"))
			require.NoError(t, err)
		}
		svc := NewStatusService(store, store, newTestIndex(t), 10, 20)

		status, err := svc.ConsolidationStatus(ctx, "proj-a")
		require.NoError(t, err)
		assert.Equal(t, 5, status.TotalEpisodes)
		assert.Equal(t, 0, status.HotEpisodes)
		assert.Equal(t, 5, status.EstimatedUnconsolidated)
		assert.False(t, status.ShouldConsolidate)
	})

	t.Run("hot episode triggers on access threshold", func(t *testing.T) {
		store := newFakeStore()
		hot := testEpisode("proj-a", "popular episode")
		hot.AccessCount = 12
		_, err := store.CreateEpisode(ctx, hot)
		require.NoError(t, err)
		svc := NewStatusService(store, store, newTestIndex(t), 10, 20)

		status, err := svc.ConsolidationStatus(ctx, "proj-a")
		require.NoError(t, err)
		assert.Equal(t, 12, status.MaxAccessCount)
		assert.Equal(t, 1, status.HotEpisodes)
		assert.True(t, status.ShouldConsolidate)
	})

	t.Run("backlog triggers on unconsolidated threshold", func(t *testing.T) {
		store := newFakeStore()
		for i := 0; i < 25; i++ {
			_, err := store.CreateEpisode(ctx, testEpisode("proj-a", "episode"))
			require.NoError(t, err)
		}
		svc := NewStatusService(store, store, newTestIndex(t), 10, 20)

		status, err := svc.ConsolidationStatus(ctx, "proj-a")
		require.NoError(t, err)
		assert.Equal(t, 25, status.EstimatedUnconsolidated)
		assert.True(t, status.ShouldConsolidate)
	})

	t.Run("meta coverage shrinks the estimate", func(t *testing.T) {
		store := newFakeStore()
		for i := 0; i < 25; i++ {
			_, err := store.CreateEpisode(ctx, testEpisode("proj-a", "episode"))
			require.NoError(t, err)
		}
		meta := newTestMetaMemory("proj-a", 0)
		meta.EpisodeCount = 10
		_, err := store.CreateMetaMemory(ctx, meta)
		require.NoError(t, err)
		svc := NewStatusService(store, store, newTestIndex(t), 10, 20)

		status, err := svc.ConsolidationStatus(ctx, "proj-a")
		require.NoError(t, err)
		assert.Equal(t, 15, status.EstimatedUnconsolidated)
		assert.False(t, status.ShouldConsolidate)
	})

	t.Run("overlapping clusters clamp to zero", func(t *testing.T) {
		store := newFakeStore()
		_, err := store.CreateEpisode(ctx, testEpisode("proj-a", "episode"))
		require.NoError(t, err)
		meta := newTestMetaMemory("proj-a", 0)
		meta.EpisodeCount = 10
		_, err = store.CreateMetaMemory(ctx, meta)
		require.NoError(t, err)
		svc := NewStatusService(store, store, newTestIndex(t), 10, 20)

		status, err := svc.ConsolidationStatus(ctx, "proj-a")
		require.NoError(t, err)
		assert.Equal(t, 0, status.EstimatedUnconsolidated)
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	idx := newTestIndex(t)
	embedder := newFakeEmbedder()
	episodes := NewEpisodeService(store, idx, embedder, nil)

	bugfix := testEpisode("proj-a", "a bug fix")
	_, err := episodes.Store(ctx, bugfix)
	require.NoError(t, err)

	decision := testEpisode("proj-a", "a decision")
	decision.EpisodeType = models.TypeDecision
	decision.SourceAssistant = "other-assistant"
	_, err = episodes.Store(ctx, decision)
	require.NoError(t, err)

	svc := NewStatusService(store, store, idx, 10, 20)
	stats, err := svc.Stats(ctx, "proj-a")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalEpisodes)
	assert.Equal(t, 1, stats.ByType[models.TypeBugFix])
	assert.Equal(t, 1, stats.ByType[models.TypeDecision])
	assert.Equal(t, 1, stats.ByAssistant["test-assistant"])
	assert.Equal(t, 1, stats.ByAssistant["other-assistant"])
	assert.Equal(t, 2, stats.IndexedCount)
}
