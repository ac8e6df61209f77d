package service

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memtwin/memtwin/internal/metrics"
	"github.com/memtwin/memtwin/internal/models"
	"github.com/memtwin/memtwin/internal/vectorindex"
)

func newTestIndex(t *testing.T) *vectorindex.Index {
	t.Helper()
	idx, err := vectorindex.New("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return idx
}

func testEpisode(project, task string) *models.Episode {
	ep := models.NewEpisode()
	ep.Task = task
	ep.Context = "working on the retry layer of the websocket client"
	ep.ReasoningTrace.RawThinking = "considered exponential backoff against fixed intervals"
	ep.Solution = "added exponential backoff with a 30s cap"
	ep.SolutionSummary = "exponential backoff for reconnects"
	ep.EpisodeType = models.TypeBugFix
	ep.ProjectName = project
	ep.SourceAssistant = "test-assistant"
	ep.Tags = []string{"websocket", "retry"}
	return &ep
}

// unitVector returns an n-dim unit vector pointing along axis.
func unitVector(n, axis int) []float32 {
	v := make([]float32, n)
	v[axis] = 1
	return v
}

// tiltedVector returns a unit vector leaning away from axis 0 by tilt.
func tiltedVector(tilt float64) []float32 {
	norm := math.Sqrt(1 + tilt*tilt)
	return []float32{float32(1 / norm), float32(tilt / norm), 0, 0}
}

func TestStoreAndGetEpisode(t *testing.T) {
	store := newFakeStore()
	idx := newTestIndex(t)
	embedder := newFakeEmbedder()
	svc := NewEpisodeService(store, idx, embedder, metrics.NewCollector())

	ep := testEpisode("proj-a", "fix reconnect storm")
	embedder.vectors[ep.CanonicalText()] = unitVector(4, 0)

	stored, err := svc.Store(context.Background(), ep)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, ep.ID, stored.ID)

	indexed, err := idx.HasEpisode(context.Background(), ep.ID)
	require.NoError(t, err)
	assert.True(t, indexed)

	got, err := svc.Get(context.Background(), ep.ID)
	require.NoError(t, err)
	assert.Equal(t, ep.Task, got.Task)
	assert.Equal(t, ep.Context, got.Context)
	assert.Equal(t, ep.Solution, got.Solution)
	assert.Equal(t, ep.Tags, got.Tags)
	assert.Equal(t, 1.0, got.ImportanceScore)
}

func TestGetEpisodeNotFound(t *testing.T) {
	svc := NewEpisodeService(newFakeStore(), newTestIndex(t), newFakeEmbedder(), nil)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreEpisodeValidation(t *testing.T) {
	svc := NewEpisodeService(newFakeStore(), newTestIndex(t), newFakeEmbedder(), nil)

	tests := []struct {
		name   string
		mutate func(*models.Episode)
	}{
		{"missing task", func(ep *models.Episode) { ep.Task = "  " }},
		{"missing context", func(ep *models.Episode) { ep.Context = "" }},
		{"missing solution", func(ep *models.Episode) { ep.Solution = "" }},
		{"unknown type", func(ep *models.Episode) { ep.EpisodeType = "poem" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := testEpisode("proj-a", "task")
			tt.mutate(ep)
			_, err := svc.Store(context.Background(), ep)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestStoreSurvivesIndexFailure(t *testing.T) {
	store := newFakeStore()
	idx := newTestIndex(t)
	embedder := newFakeEmbedder()
	broken := failingIndex{VectorIndex: idx}
	svc := NewEpisodeService(store, broken, embedder, metrics.NewCollector())

	ep := testEpisode("proj-a", "survive index outage")
	embedder.vectors[ep.CanonicalText()] = unitVector(4, 0)

	stored, err := svc.Store(context.Background(), ep)
	require.NoError(t, err)
	require.NotNil(t, stored)

	// Metadata store has the episode, the index does not.
	got, err := svc.Get(context.Background(), ep.ID)
	require.NoError(t, err)
	assert.Equal(t, ep.Task, got.Task)

	indexed, err := idx.HasEpisode(context.Background(), ep.ID)
	require.NoError(t, err)
	assert.False(t, indexed)

	// Reconcile against the healthy index repairs the gap.
	collector := metrics.NewCollector()
	rec := NewReconcileService(store, idx, embedder, collector)
	report, err := rec.Reconcile(context.Background(), "proj-a", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, 0, report.Failed)

	indexed, err = idx.HasEpisode(context.Background(), ep.ID)
	require.NoError(t, err)
	assert.True(t, indexed)

	snap := collector.Snapshot()
	assert.Equal(t, int64(1), snap.Counters[metrics.CounterIndexRepaired])
}

func TestStoreSurvivesEmbeddingError(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.err = context.DeadlineExceeded
	idx := newTestIndex(t)
	collector := metrics.NewCollector()
	svc := NewEpisodeService(newFakeStore(), idx, embedder, collector)

	ep := testEpisode("proj-a", "task")
	stored, err := svc.Store(context.Background(), ep)
	require.NoError(t, err)

	// The episode persists in the metadata store without index presence.
	got, err := svc.Get(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "task", got.Task)

	has, err := idx.HasEpisode(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.False(t, has)
	assert.Equal(t, int64(1), collector.Snapshot().Counters[metrics.CounterIndexFailures])
}

func TestDeleteEpisodeIdempotent(t *testing.T) {
	store := newFakeStore()
	idx := newTestIndex(t)
	embedder := newFakeEmbedder()
	svc := NewEpisodeService(store, idx, embedder, nil)

	ep := testEpisode("proj-a", "to be deleted")
	embedder.vectors[ep.CanonicalText()] = unitVector(4, 0)
	_, err := svc.Store(context.Background(), ep)
	require.NoError(t, err)

	deleted, err := svc.Delete(context.Background(), ep.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	indexed, err := idx.HasEpisode(context.Background(), ep.ID)
	require.NoError(t, err)
	assert.False(t, indexed)

	deleted, err = svc.Delete(context.Background(), ep.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpdateFlagsMirrorsIndex(t *testing.T) {
	store := newFakeStore()
	idx := newTestIndex(t)
	embedder := newFakeEmbedder()
	svc := NewEpisodeService(store, idx, embedder, nil)

	ep := testEpisode("proj-a", "flagged episode")
	embedder.vectors[ep.CanonicalText()] = unitVector(4, 0)
	_, err := svc.Store(context.Background(), ep)
	require.NoError(t, err)

	critical := true
	updated, err := svc.UpdateFlags(context.Background(), ep.ID, models.FlagUpdates{IsCritical: &critical})
	require.NoError(t, err)
	assert.True(t, updated.IsCritical)

	matches, err := idx.QueryEpisodes(context.Background(), unitVector(4, 0), 1, models.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "true", matches[0].Metadata["critical"])
}

func TestUpdateFlagsNotFound(t *testing.T) {
	svc := NewEpisodeService(newFakeStore(), newTestIndex(t), newFakeEmbedder(), nil)

	critical := true
	_, err := svc.UpdateFlags(context.Background(), uuid.New(), models.FlagUpdates{IsCritical: &critical})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTimelineFilters(t *testing.T) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	svc := NewEpisodeService(store, newTestIndex(t), embedder, nil)

	old := testEpisode("proj-a", "old decision")
	old.EpisodeType = models.TypeDecision
	old.Timestamp = time.Now().Add(-48 * time.Hour)
	recent := testEpisode("proj-a", "recent fix")
	recent.Timestamp = time.Now().Add(-1 * time.Hour)
	for _, ep := range []*models.Episode{old, recent} {
		_, err := svc.Store(context.Background(), ep)
		require.NoError(t, err)
	}

	all, err := svc.Timeline(context.Background(), models.TimelineFilters{Project: "proj-a"}, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, recent.ID, all[0].ID)

	from := time.Now().Add(-24 * time.Hour)
	onlyRecent, err := svc.Timeline(context.Background(), models.TimelineFilters{Project: "proj-a", DateFrom: &from}, 10)
	require.NoError(t, err)
	require.Len(t, onlyRecent, 1)
	assert.Equal(t, recent.ID, onlyRecent[0].ID)
}

func TestListByProject(t *testing.T) {
	store := newFakeStore()
	svc := NewEpisodeService(store, newTestIndex(t), newFakeEmbedder(), nil)

	for i, task := range []string{"first", "second", "third"} {
		ep := testEpisode("p1", task)
		ep.Timestamp = time.Now().Add(time.Duration(-i) * time.Hour)
		_, err := svc.Store(context.Background(), ep)
		require.NoError(t, err)
	}
	other := testEpisode("p2", "elsewhere")
	_, err := svc.Store(context.Background(), other)
	require.NoError(t, err)

	got, err := svc.ListByProject(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Task)
	assert.Equal(t, "third", got[2].Task)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
}
