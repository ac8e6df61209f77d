// Package db provides SurrealDB query functions for episode and meta-memory
// operations.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/memtwin/memtwin/internal/models"
)

// TypeCount represents an episode type with its count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// AssistantCount represents a source assistant with its episode count.
type AssistantCount struct {
	Assistant string `json:"assistant"`
	Count     int    `json:"count"`
}

// CreateEpisode inserts a new episode record.
// Returns ErrAlreadyExists if an episode with the same ID is already stored.
func (c *Client) CreateEpisode(ctx context.Context, ep *models.Episode) (*models.Episode, error) {
	sql := `CREATE type::record("episode", $id) CONTENT $content`

	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, sql, map[string]any{
		"id":      ep.ID.String(),
		"content": episodeContent(ep),
	})
	if err != nil {
		return nil, fmt.Errorf("create episode: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create episode: no result returned")
	}

	created, err := (*results)[0].Result[0].toModel()
	if err != nil {
		return nil, fmt.Errorf("create episode: %w", err)
	}
	return &created, nil
}

// GetEpisode retrieves an episode by ID.
// Returns nil if not found.
func (c *Client) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, `
		SELECT * FROM type::record("episode", $id)
	`, map[string]any{"id": id.String()})

	if err != nil {
		return nil, fmt.Errorf("get episode: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}

	ep, err := (*results)[0].Result[0].toModel()
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return &ep, nil
}

// GetEpisodesByIDs retrieves multiple episodes at once.
// Episodes that do not exist are simply absent from the result; order follows
// the store, not the input.
func (c *Client) GetEpisodesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Episode, error) {
	if len(ids) == 0 {
		return []models.Episode{}, nil
	}

	recordIDs := make([]surrealmodels.RecordID, len(ids))
	for i, id := range ids {
		recordIDs[i] = surrealmodels.NewRecordID("episode", id.String())
	}

	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, `
		SELECT * FROM episode WHERE id IN $ids
	`, map[string]any{"ids": recordIDs})
	if err != nil {
		return nil, fmt.Errorf("get episodes by ids: %w", wrapQueryError(err))
	}

	return episodeModels(results)
}

// DeleteEpisode deletes an episode by ID.
// Returns false if no episode was deleted (idempotent).
func (c *Client) DeleteEpisode(ctx context.Context, id uuid.UUID) (bool, error) {
	sql := `DELETE type::record("episode", $id) RETURN BEFORE`

	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, sql, map[string]any{
		"id": id.String(),
	})
	if err != nil {
		return false, fmt.Errorf("delete episode: %w", wrapQueryError(err))
	}

	// RETURN BEFORE returns the deleted records
	if results == nil || len(*results) == 0 {
		return false, nil
	}
	return len((*results)[0].Result) > 0, nil
}

// UpdateEpisodeFlags applies the given signal field mutations to an episode.
// Content fields are never touched. Returns ErrNotFound if the episode does
// not exist.
func (c *Client) UpdateEpisodeFlags(ctx context.Context, id uuid.UUID, updates models.FlagUpdates) (*models.Episode, error) {
	if updates.Empty() {
		return c.GetEpisode(ctx, id)
	}

	var sets []string
	vars := map[string]any{"id": id.String()}

	if updates.IsAntipattern != nil {
		sets = append(sets, "is_antipattern = $is_antipattern")
		vars["is_antipattern"] = *updates.IsAntipattern
	}
	if updates.IsCritical != nil {
		sets = append(sets, "is_critical = $is_critical")
		vars["is_critical"] = *updates.IsCritical
	}
	if updates.SupersededBy != nil {
		sets = append(sets, "superseded_by = $superseded_by")
		vars["superseded_by"] = updates.SupersededBy.String()
	}
	if updates.DeprecationReason != nil {
		sets = append(sets, "deprecation_reason = $deprecation_reason")
		vars["deprecation_reason"] = *updates.DeprecationReason
	}
	if updates.ImportanceScore != nil {
		sets = append(sets, "importance_score = $importance_score")
		vars["importance_score"] = *updates.ImportanceScore
	}

	sql := fmt.Sprintf(`
		UPDATE type::record("episode", $id) SET %s RETURN AFTER
	`, strings.Join(sets, ", "))

	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("update episode flags: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("update episode flags: %w", ErrNotFound)
	}

	ep, err := (*results)[0].Result[0].toModel()
	if err != nil {
		return nil, fmt.Errorf("update episode flags: %w", err)
	}
	return &ep, nil
}

// UpdateEpisodeAccess increments access counts and stamps last_accessed for
// the given episodes. The increment happens server-side so concurrent
// searches never lose updates.
func (c *Client) UpdateEpisodeAccess(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	recordIDs := make([]surrealmodels.RecordID, len(ids))
	for i, id := range ids {
		recordIDs[i] = surrealmodels.NewRecordID("episode", id.String())
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE episode SET
			access_count += 1,
			last_accessed = time::now()
		WHERE id IN $ids
	`, map[string]any{"ids": recordIDs})
	if err != nil {
		return fmt.Errorf("update episode access: %w", wrapQueryError(err))
	}
	return nil
}

// ListRecentEpisodes returns the most recent episodes for a project,
// newest first.
func (c *Client) ListRecentEpisodes(ctx context.Context, project string, limit int) ([]models.Episode, error) {
	sql := fmt.Sprintf(`
		SELECT * FROM episode
		WHERE project_name = $project
		ORDER BY timestamp DESC
		LIMIT %d
	`, limit)

	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, sql, map[string]any{
		"project": project,
	})
	if err != nil {
		return nil, fmt.Errorf("list recent episodes: %w", wrapQueryError(err))
	}

	return episodeModels(results)
}

// ListTimeline returns episodes in chronological order (newest first) with
// optional project, type, and date range filtering.
func (c *Client) ListTimeline(ctx context.Context, filters models.TimelineFilters, limit int) ([]models.Episode, error) {
	var clauses []string
	vars := map[string]any{}

	if filters.Project != "" {
		clauses = append(clauses, "project_name = $project")
		vars["project"] = filters.Project
	}
	if filters.Type != "" {
		clauses = append(clauses, "episode_type = $type")
		vars["type"] = string(filters.Type)
	}
	if filters.DateFrom != nil {
		clauses = append(clauses, "timestamp >= $date_from")
		vars["date_from"] = *filters.DateFrom
	}
	if filters.DateTo != nil {
		clauses = append(clauses, "timestamp <= $date_to")
		vars["date_to"] = *filters.DateTo
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = "WHERE " + strings.Join(clauses, " AND ")
	}

	sql := fmt.Sprintf(`
		SELECT * FROM episode %s
		ORDER BY timestamp DESC
		LIMIT %d
	`, whereClause, limit)

	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", wrapQueryError(err))
	}

	return episodeModels(results)
}

// CountEpisodes returns the number of stored episodes, optionally scoped to
// a project.
func (c *Client) CountEpisodes(ctx context.Context, project string) (int, error) {
	whereClause := ""
	vars := map[string]any{}
	if project != "" {
		whereClause = "WHERE project_name = $project"
		vars["project"] = project
	}

	sql := fmt.Sprintf(`SELECT count() AS count FROM episode %s GROUP ALL`, whereClause)

	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("count episodes: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// MaxAccessCount returns the highest access_count among a project's episodes.
// Returns 0 for an empty project.
func (c *Client) MaxAccessCount(ctx context.Context, project string) (int, error) {
	results, err := surrealdb.Query[[]struct {
		Max int `json:"max"`
	}](ctx, c.db, `
		SELECT math::max(access_count) AS max FROM episode
		WHERE project_name = $project
		GROUP ALL
	`, map[string]any{"project": project})
	if err != nil {
		return 0, fmt.Errorf("max access count: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Max, nil
}

// CountHotEpisodes returns the number of episodes at or above the given
// access count threshold.
func (c *Client) CountHotEpisodes(ctx context.Context, project string, threshold int) (int, error) {
	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, `
		SELECT count() AS count FROM episode
		WHERE project_name = $project AND access_count >= $threshold
		GROUP ALL
	`, map[string]any{"project": project, "threshold": threshold})
	if err != nil {
		return 0, fmt.Errorf("count hot episodes: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// CountEpisodesByType returns episode counts grouped by type.
func (c *Client) CountEpisodesByType(ctx context.Context, project string) ([]TypeCount, error) {
	whereClause := ""
	vars := map[string]any{}
	if project != "" {
		whereClause = "WHERE project_name = $project"
		vars["project"] = project
	}

	sql := fmt.Sprintf(`
		SELECT episode_type AS type, count() AS count FROM episode %s
		GROUP BY type ORDER BY count DESC
	`, whereClause)

	results, err := surrealdb.Query[[]TypeCount](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("count episodes by type: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []TypeCount{}, nil
	}
	return (*results)[0].Result, nil
}

// CountEpisodesByAssistant returns episode counts grouped by source assistant.
func (c *Client) CountEpisodesByAssistant(ctx context.Context, project string) ([]AssistantCount, error) {
	whereClause := ""
	vars := map[string]any{}
	if project != "" {
		whereClause = "WHERE project_name = $project"
		vars["project"] = project
	}

	sql := fmt.Sprintf(`
		SELECT source_assistant AS assistant, count() AS count FROM episode %s
		GROUP BY assistant ORDER BY count DESC
	`, whereClause)

	results, err := surrealdb.Query[[]AssistantCount](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("count episodes by assistant: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []AssistantCount{}, nil
	}
	return (*results)[0].Result, nil
}

func episodeModels(results *[]surrealdb.QueryResult[[]episodeRecord]) ([]models.Episode, error) {
	if results == nil || len(*results) == 0 {
		return []models.Episode{}, nil
	}

	records := (*results)[0].Result
	episodes := make([]models.Episode, 0, len(records))
	for i := range records {
		ep, err := records[i].toModel()
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}
