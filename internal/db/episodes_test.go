package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memtwin/memtwin/internal/models"
)

// testEpisode builds an episode for the given project with sensible content.
func testEpisode(project string) models.Episode {
	ep := models.NewEpisode()
	ep.Task = "Fix flaky reconnect loop"
	ep.Context = "Connection drops under load"
	ep.ReasoningTrace = models.ReasoningTrace{
		RawThinking:     "Backoff was resetting on every attempt",
		DecisionFactors: []string{"retry semantics"},
	}
	ep.Solution = "Move backoff state outside the retry closure"
	ep.SolutionSummary = "Persist backoff state across retries"
	ep.EpisodeType = models.TypeBugFix
	ep.Tags = []string{"retry", "backoff"}
	ep.ProjectName = project
	return ep
}

func uniqueProject(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func TestCreateAndGetEpisode(t *testing.T) {
	ctx := context.Background()
	project := uniqueProject("create_get")

	ep := testEpisode(project)
	created, err := testDB.CreateEpisode(ctx, &ep)
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, ep.ID, created.ID)
	assert.Equal(t, "Fix flaky reconnect loop", created.Task)
	assert.Equal(t, models.TypeBugFix, created.EpisodeType)
	assert.Equal(t, 1.0, created.ImportanceScore)
	assert.Equal(t, 0, created.AccessCount)
	assert.Nil(t, created.LastAccessed)
	assert.True(t, created.Success)

	got, err := testDB.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Task, got.Task)
	assert.Equal(t, created.Tags, got.Tags)
	assert.Equal(t, "Backoff was resetting on every attempt", got.ReasoningTrace.RawThinking)

	// Get non-existent
	missing, err := testDB.GetEpisode(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	deleted, err := testDB.DeleteEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestDeleteEpisodeIdempotent(t *testing.T) {
	ctx := context.Background()

	ep := testEpisode(uniqueProject("delete"))
	_, err := testDB.CreateEpisode(ctx, &ep)
	require.NoError(t, err)

	deleted, err := testDB.DeleteEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Second delete reports nothing removed but does not error
	deleted, err = testDB.DeleteEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpdateEpisodeFlags(t *testing.T) {
	ctx := context.Background()

	ep := testEpisode(uniqueProject("flags"))
	_, err := testDB.CreateEpisode(ctx, &ep)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = testDB.DeleteEpisode(ctx, ep.ID) })

	anti := true
	reason := "approach caused a regression"
	successor := uuid.New()
	importance := 1.5

	updated, err := testDB.UpdateEpisodeFlags(ctx, ep.ID, models.FlagUpdates{
		IsAntipattern:     &anti,
		SupersededBy:      &successor,
		DeprecationReason: &reason,
		ImportanceScore:   &importance,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.True(t, updated.IsAntipattern)
	assert.False(t, updated.IsCritical)
	require.NotNil(t, updated.SupersededBy)
	assert.Equal(t, successor, *updated.SupersededBy)
	require.NotNil(t, updated.DeprecationReason)
	assert.Equal(t, reason, *updated.DeprecationReason)
	assert.Equal(t, 1.5, updated.ImportanceScore)

	// Content fields untouched
	assert.Equal(t, ep.Task, updated.Task)
	assert.Equal(t, ep.Solution, updated.Solution)

	// Empty update is a no-op read
	same, err := testDB.UpdateEpisodeFlags(ctx, ep.ID, models.FlagUpdates{})
	require.NoError(t, err)
	require.NotNil(t, same)
	assert.True(t, same.IsAntipattern)
}

func TestUpdateEpisodeFlagsNotFound(t *testing.T) {
	ctx := context.Background()

	critical := true
	_, err := testDB.UpdateEpisodeFlags(ctx, uuid.New(), models.FlagUpdates{IsCritical: &critical})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEpisodeAccess(t *testing.T) {
	ctx := context.Background()
	project := uniqueProject("access")

	first := testEpisode(project)
	second := testEpisode(project)
	_, err := testDB.CreateEpisode(ctx, &first)
	require.NoError(t, err)
	_, err = testDB.CreateEpisode(ctx, &second)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testDB.DeleteEpisode(ctx, first.ID)
		_, _ = testDB.DeleteEpisode(ctx, second.ID)
	})

	require.NoError(t, testDB.UpdateEpisodeAccess(ctx, first.ID, second.ID))
	require.NoError(t, testDB.UpdateEpisodeAccess(ctx, first.ID))

	got, err := testDB.GetEpisode(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.AccessCount)
	assert.NotNil(t, got.LastAccessed)

	other, err := testDB.GetEpisode(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, 1, other.AccessCount)

	max, err := testDB.MaxAccessCount(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 2, max)

	hot, err := testDB.CountHotEpisodes(ctx, project, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, hot)
}

func TestListRecentEpisodesOrder(t *testing.T) {
	ctx := context.Background()
	project := uniqueProject("recent")

	var ids []uuid.UUID
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		ep := testEpisode(project)
		ep.Timestamp = base.Add(time.Duration(i) * time.Minute)
		ep.Task = fmt.Sprintf("task %d", i)
		_, err := testDB.CreateEpisode(ctx, &ep)
		require.NoError(t, err)
		ids = append(ids, ep.ID)
	}
	t.Cleanup(func() {
		for _, id := range ids {
			_, _ = testDB.DeleteEpisode(ctx, id)
		}
	})

	episodes, err := testDB.ListRecentEpisodes(ctx, project, 10)
	require.NoError(t, err)
	require.Len(t, episodes, 3)

	// Newest first
	assert.Equal(t, "task 2", episodes[0].Task)
	assert.Equal(t, "task 0", episodes[2].Task)

	limited, err := testDB.ListRecentEpisodes(ctx, project, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListTimelineFilters(t *testing.T) {
	ctx := context.Background()
	project := uniqueProject("timeline")

	base := time.Now().UTC().Add(-24 * time.Hour)

	old := testEpisode(project)
	old.Timestamp = base
	old.EpisodeType = models.TypeDecision

	recent := testEpisode(project)
	recent.Timestamp = base.Add(12 * time.Hour)
	recent.EpisodeType = models.TypeBugFix

	_, err := testDB.CreateEpisode(ctx, &old)
	require.NoError(t, err)
	_, err = testDB.CreateEpisode(ctx, &recent)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testDB.DeleteEpisode(ctx, old.ID)
		_, _ = testDB.DeleteEpisode(ctx, recent.ID)
	})

	all, err := testDB.ListTimeline(ctx, models.TimelineFilters{Project: project}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bugFixes, err := testDB.ListTimeline(ctx, models.TimelineFilters{
		Project: project,
		Type:    models.TypeBugFix,
	}, 10)
	require.NoError(t, err)
	require.Len(t, bugFixes, 1)
	assert.Equal(t, recent.ID, bugFixes[0].ID)

	from := base.Add(6 * time.Hour)
	after, err := testDB.ListTimeline(ctx, models.TimelineFilters{
		Project:  project,
		DateFrom: &from,
	}, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, recent.ID, after[0].ID)

	to := base.Add(6 * time.Hour)
	before, err := testDB.ListTimeline(ctx, models.TimelineFilters{
		Project: project,
		DateTo:  &to,
	}, 10)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, old.ID, before[0].ID)
}

func TestCountEpisodesAndStats(t *testing.T) {
	ctx := context.Background()
	project := uniqueProject("stats")

	bugFix := testEpisode(project)
	bugFix.SourceAssistant = "claude"

	decision := testEpisode(project)
	decision.EpisodeType = models.TypeDecision
	decision.SourceAssistant = "claude"

	_, err := testDB.CreateEpisode(ctx, &bugFix)
	require.NoError(t, err)
	_, err = testDB.CreateEpisode(ctx, &decision)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testDB.DeleteEpisode(ctx, bugFix.ID)
		_, _ = testDB.DeleteEpisode(ctx, decision.ID)
	})

	count, err := testDB.CountEpisodes(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	emptyCount, err := testDB.CountEpisodes(ctx, uniqueProject("empty"))
	require.NoError(t, err)
	assert.Equal(t, 0, emptyCount)

	byType, err := testDB.CountEpisodesByType(ctx, project)
	require.NoError(t, err)
	types := map[string]int{}
	for _, tc := range byType {
		types[tc.Type] = tc.Count
	}
	assert.Equal(t, 1, types["bug_fix"])
	assert.Equal(t, 1, types["decision"])

	byAssistant, err := testDB.CountEpisodesByAssistant(ctx, project)
	require.NoError(t, err)
	require.Len(t, byAssistant, 1)
	assert.Equal(t, "claude", byAssistant[0].Assistant)
	assert.Equal(t, 2, byAssistant[0].Count)
}

func TestGetEpisodesByIDs(t *testing.T) {
	ctx := context.Background()
	project := uniqueProject("by_ids")

	first := testEpisode(project)
	second := testEpisode(project)
	_, err := testDB.CreateEpisode(ctx, &first)
	require.NoError(t, err)
	_, err = testDB.CreateEpisode(ctx, &second)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testDB.DeleteEpisode(ctx, first.ID)
		_, _ = testDB.DeleteEpisode(ctx, second.ID)
	})

	// Missing IDs are skipped silently
	episodes, err := testDB.GetEpisodesByIDs(ctx, []uuid.UUID{first.ID, second.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, episodes, 2)

	none, err := testDB.GetEpisodesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateEpisodeDuplicate(t *testing.T) {
	ctx := context.Background()

	ep := testEpisode(uniqueProject("dup"))
	_, err := testDB.CreateEpisode(ctx, &ep)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = testDB.DeleteEpisode(ctx, ep.ID) })

	_, err = testDB.CreateEpisode(ctx, &ep)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}
