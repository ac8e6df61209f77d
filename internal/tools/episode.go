package tools

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memtwin/memtwin/internal/config"
	"github.com/memtwin/memtwin/internal/models"
	"github.com/memtwin/memtwin/internal/service"
)

// GetEpisodeInput defines the input schema for the get_episode tool.
type GetEpisodeInput struct {
	ID string `json:"id" jsonschema:"required,Episode UUID"`
}

// NewGetEpisodeHandler creates the get_episode tool handler.
func NewGetEpisodeHandler(deps *Dependencies) mcp.ToolHandlerFor[GetEpisodeInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetEpisodeInput) (
		*mcp.CallToolResult, any, error,
	) {
		id, err := uuid.Parse(input.ID)
		if err != nil {
			return ErrorResult("Invalid episode ID", "Provide a UUID"), nil, nil
		}

		ep, err := deps.Episodes.Get(ctx, id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return ErrorResult("Episode not found", "Search first to find valid episode IDs"), nil, nil
			}
			deps.Logger.Error("get episode failed", "error", err)
			return ErrorResult("Failed to load episode", "Database may be unavailable"), nil, nil
		}

		return JSONResult(ep), nil, nil
	}
}

// DeleteEpisodeInput defines the input schema for the delete_episode tool.
type DeleteEpisodeInput struct {
	ID string `json:"id" jsonschema:"required,Episode UUID"`
}

// DeleteEpisodeResult is the delete_episode tool response.
type DeleteEpisodeResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// NewDeleteEpisodeHandler creates the delete_episode tool handler.
// Deleting an unknown ID succeeds with deleted=false.
func NewDeleteEpisodeHandler(deps *Dependencies) mcp.ToolHandlerFor[DeleteEpisodeInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DeleteEpisodeInput) (
		*mcp.CallToolResult, any, error,
	) {
		id, err := uuid.Parse(input.ID)
		if err != nil {
			return ErrorResult("Invalid episode ID", "Provide a UUID"), nil, nil
		}

		deleted, err := deps.Episodes.Delete(ctx, id)
		if err != nil {
			deps.Logger.Error("delete episode failed", "error", err)
			return ErrorResult("Failed to delete episode", "Database may be unavailable"), nil, nil
		}

		deps.Logger.Info("episode delete handled", "episode_id", id, "deleted", deleted)
		return JSONResult(DeleteEpisodeResult{ID: id.String(), Deleted: deleted}), nil, nil
	}
}

// MarkEpisodeInput defines the input schema for the mark_episode tool.
// Only the provided fields change; omitted fields keep their value.
type MarkEpisodeInput struct {
	ID                string   `json:"id" jsonschema:"required,Episode UUID"`
	IsAntipattern     *bool    `json:"is_antipattern,omitempty" jsonschema:"Mark as an approach that should not be repeated"`
	IsCritical        *bool    `json:"is_critical,omitempty" jsonschema:"Mark as must-know knowledge"`
	SupersededBy      string   `json:"superseded_by,omitempty" jsonschema:"UUID of the episode that replaces this one"`
	DeprecationReason string   `json:"deprecation_reason,omitempty" jsonschema:"Why this episode is deprecated"`
	ImportanceScore   *float64 `json:"importance_score,omitempty" jsonschema:"Manual importance weight, default 1.0"`
}

// NewMarkEpisodeHandler creates the mark_episode tool handler.
func NewMarkEpisodeHandler(deps *Dependencies) mcp.ToolHandlerFor[MarkEpisodeInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input MarkEpisodeInput) (
		*mcp.CallToolResult, any, error,
	) {
		id, err := uuid.Parse(input.ID)
		if err != nil {
			return ErrorResult("Invalid episode ID", "Provide a UUID"), nil, nil
		}

		updates := models.FlagUpdates{
			IsAntipattern:   input.IsAntipattern,
			IsCritical:      input.IsCritical,
			ImportanceScore: input.ImportanceScore,
		}
		if input.SupersededBy != "" {
			successor, err := uuid.Parse(input.SupersededBy)
			if err != nil {
				return ErrorResult("Invalid superseded_by ID", "Provide a UUID"), nil, nil
			}
			updates.SupersededBy = &successor
		}
		if input.DeprecationReason != "" {
			updates.DeprecationReason = &input.DeprecationReason
		}
		if updates.Empty() {
			return ErrorResult("No flag changes provided", "Set at least one of is_antipattern, is_critical, superseded_by, deprecation_reason, importance_score"), nil, nil
		}

		ep, err := deps.Episodes.UpdateFlags(ctx, id, updates)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return ErrorResult("Episode not found", "Search first to find valid episode IDs"), nil, nil
			}
			deps.Logger.Error("mark episode failed", "error", err)
			return ErrorResult("Failed to update episode flags", "Database may be unavailable"), nil, nil
		}

		deps.Logger.Info("episode flags updated", "episode_id", id)
		return JSONResult(ep), nil, nil
	}
}

// TimelineInput defines the input schema for the get_timeline tool.
type TimelineInput struct {
	Project  string `json:"project,omitempty" jsonschema:"Project name filter (auto-detected if omitted)"`
	Type     string `json:"type,omitempty" jsonschema:"Episode type filter"`
	DateFrom string `json:"date_from,omitempty" jsonschema:"RFC 3339 lower bound, inclusive"`
	DateTo   string `json:"date_to,omitempty" jsonschema:"RFC 3339 upper bound, inclusive"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Max results 1-200, default 20"`
}

// TimelineResult is the get_timeline tool response.
type TimelineResult struct {
	Episodes []models.Episode `json:"episodes"`
	Count    int              `json:"count"`
}

// NewTimelineHandler creates the get_timeline tool handler.
// Episodes are returned newest first.
func NewTimelineHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[TimelineInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input TimelineInput) (
		*mcp.CallToolResult, any, error,
	) {
		limit := input.Limit
		if limit <= 0 {
			limit = 20
		}
		if limit > 200 {
			return ErrorResult("limit must be 1-200", "Reduce limit value"), nil, nil
		}
		if input.Type != "" && !models.ValidEpisodeType(models.EpisodeType(input.Type)) {
			return ErrorResult("Unknown episode type "+input.Type, "Use one of: decision, bug_fix, refactor, feature, optimization, learning, experiment"), nil, nil
		}

		filters := models.TimelineFilters{
			Project: DetectProject(input.Project, cfg),
			Type:    models.EpisodeType(input.Type),
		}
		if input.DateFrom != "" {
			from, err := time.Parse(time.RFC3339, input.DateFrom)
			if err != nil {
				return ErrorResult("Invalid date_from", "Use RFC 3339, e.g. 2026-01-02T15:04:05Z"), nil, nil
			}
			filters.DateFrom = &from
		}
		if input.DateTo != "" {
			to, err := time.Parse(time.RFC3339, input.DateTo)
			if err != nil {
				return ErrorResult("Invalid date_to", "Use RFC 3339, e.g. 2026-01-02T15:04:05Z"), nil, nil
			}
			filters.DateTo = &to
		}

		episodes, err := deps.Episodes.Timeline(ctx, filters, limit)
		if err != nil {
			deps.Logger.Error("timeline failed", "error", err)
			return ErrorResult("Failed to load timeline", "Database may be unavailable"), nil, nil
		}

		return JSONResult(TimelineResult{Episodes: episodes, Count: len(episodes)}), nil, nil
	}
}
