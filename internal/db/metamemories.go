package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/memtwin/memtwin/internal/models"
)

// CreateMetaMemory inserts a consolidated meta-memory record.
func (c *Client) CreateMetaMemory(ctx context.Context, m *models.MetaMemory) (*models.MetaMemory, error) {
	sql := `CREATE type::record("meta_memory", $id) CONTENT $content`

	results, err := surrealdb.Query[[]metaMemoryRecord](ctx, c.db, sql, map[string]any{
		"id":      m.ID.String(),
		"content": metaMemoryContent(m),
	})
	if err != nil {
		return nil, fmt.Errorf("create meta memory: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create meta memory: no result returned")
	}

	created, err := (*results)[0].Result[0].toModel()
	if err != nil {
		return nil, fmt.Errorf("create meta memory: %w", err)
	}
	return &created, nil
}

// GetMetaMemory retrieves a meta-memory by ID.
// Returns nil if not found.
func (c *Client) GetMetaMemory(ctx context.Context, id uuid.UUID) (*models.MetaMemory, error) {
	results, err := surrealdb.Query[[]metaMemoryRecord](ctx, c.db, `
		SELECT * FROM type::record("meta_memory", $id)
	`, map[string]any{"id": id.String()})

	if err != nil {
		return nil, fmt.Errorf("get meta memory: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}

	m, err := (*results)[0].Result[0].toModel()
	if err != nil {
		return nil, fmt.Errorf("get meta memory: %w", err)
	}
	return &m, nil
}

// GetMetaMemoriesByIDs retrieves multiple meta-memories at once.
func (c *Client) GetMetaMemoriesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.MetaMemory, error) {
	if len(ids) == 0 {
		return []models.MetaMemory{}, nil
	}

	recordIDs := make([]surrealmodels.RecordID, len(ids))
	for i, id := range ids {
		recordIDs[i] = surrealmodels.NewRecordID("meta_memory", id.String())
	}

	results, err := surrealdb.Query[[]metaMemoryRecord](ctx, c.db, `
		SELECT * FROM meta_memory WHERE id IN $ids
	`, map[string]any{"ids": recordIDs})
	if err != nil {
		return nil, fmt.Errorf("get meta memories by ids: %w", wrapQueryError(err))
	}

	return metaMemoryModels(results)
}

// ListMetaMemories returns meta-memories for a project, newest first.
func (c *Client) ListMetaMemories(ctx context.Context, project string, limit int) ([]models.MetaMemory, error) {
	sql := fmt.Sprintf(`
		SELECT * FROM meta_memory
		WHERE project_name = $project
		ORDER BY created_at DESC
		LIMIT %d
	`, limit)

	results, err := surrealdb.Query[[]metaMemoryRecord](ctx, c.db, sql, map[string]any{
		"project": project,
	})
	if err != nil {
		return nil, fmt.Errorf("list meta memories: %w", wrapQueryError(err))
	}

	return metaMemoryModels(results)
}

// UpdateMetaMemoryAccess increments access counts and stamps last_accessed
// for the given meta-memories.
func (c *Client) UpdateMetaMemoryAccess(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	recordIDs := make([]surrealmodels.RecordID, len(ids))
	for i, id := range ids {
		recordIDs[i] = surrealmodels.NewRecordID("meta_memory", id.String())
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE meta_memory SET
			access_count += 1,
			last_accessed = time::now()
		WHERE id IN $ids
	`, map[string]any{"ids": recordIDs})
	if err != nil {
		return fmt.Errorf("update meta memory access: %w", wrapQueryError(err))
	}
	return nil
}

// SumMetaEpisodeCounts returns the total number of source episodes claimed by
// a project's meta-memories. Used to estimate how many episodes remain
// unconsolidated.
func (c *Client) SumMetaEpisodeCounts(ctx context.Context, project string) (int, error) {
	results, err := surrealdb.Query[[]struct {
		Total int `json:"total"`
	}](ctx, c.db, `
		SELECT math::sum(episode_count) AS total FROM meta_memory
		WHERE project_name = $project
		GROUP ALL
	`, map[string]any{"project": project})
	if err != nil {
		return 0, fmt.Errorf("sum meta episode counts: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Total, nil
}

// CountMetaMemories returns the number of stored meta-memories, optionally
// scoped to a project.
func (c *Client) CountMetaMemories(ctx context.Context, project string) (int, error) {
	whereClause := ""
	vars := map[string]any{}
	if project != "" {
		whereClause = "WHERE project_name = $project"
		vars["project"] = project
	}

	sql := fmt.Sprintf(`SELECT count() AS count FROM meta_memory %s GROUP ALL`, whereClause)

	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("count meta memories: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

func metaMemoryModels(results *[]surrealdb.QueryResult[[]metaMemoryRecord]) ([]models.MetaMemory, error) {
	if results == nil || len(*results) == 0 {
		return []models.MetaMemory{}, nil
	}

	records := (*results)[0].Result
	memories := make([]models.MetaMemory, 0, len(records))
	for i := range records {
		m, err := records[i].toModel()
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, nil
}
