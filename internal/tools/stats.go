package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memtwin/memtwin/internal/config"
	"github.com/memtwin/memtwin/internal/metrics"
	"github.com/memtwin/memtwin/internal/models"
)

// StatsInput defines the input schema for the get_statistics tool.
type StatsInput struct {
	Project        string `json:"project,omitempty" jsonschema:"Project to inspect, empty for the whole store"`
	IncludeMetrics bool   `json:"include_metrics,omitempty" jsonschema:"Include server operation timings and counters"`
}

// StatsResult is the get_statistics tool response.
type StatsResult struct {
	Stats   *models.ProjectStats `json:"stats"`
	Metrics *metrics.Snapshot    `json:"metrics,omitempty"`
}

// NewStatsHandler creates the get_statistics tool handler.
// Unlike the other tools this one does not auto-detect a project: an empty
// project means store-wide statistics.
func NewStatsHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (
		*mcp.CallToolResult, any, error,
	) {
		stats, err := deps.Status.Stats(ctx, input.Project)
		if err != nil {
			deps.Logger.Error("statistics failed", "error", err)
			return ErrorResult("Failed to compute statistics", "Database may be unavailable"), nil, nil
		}

		result := StatsResult{Stats: stats}
		if input.IncludeMetrics && deps.Collector != nil {
			snap := deps.Collector.Snapshot()
			result.Metrics = &snap
		}

		return JSONResult(result), nil, nil
	}
}

// ReconcileInput defines the input schema for the reconcile_index tool.
type ReconcileInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project to reconcile (auto-detected if omitted)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Max episodes to check, default 200"`
}

// NewReconcileHandler creates the reconcile_index tool handler.
// Re-embeds and re-indexes episodes the vector index lost.
func NewReconcileHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[ReconcileInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ReconcileInput) (
		*mcp.CallToolResult, any, error,
	) {
		limit := input.Limit
		if limit <= 0 {
			limit = 200
		}

		report, err := deps.Reconcile.Reconcile(ctx, DetectProject(input.Project, cfg), limit)
		if err != nil {
			deps.Logger.Error("reconcile failed", "error", err)
			return ErrorResult("Index reconcile failed", "Check database and embedding provider connectivity"), nil, nil
		}

		return JSONResult(report), nil, nil
	}
}
