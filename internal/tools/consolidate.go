package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memtwin/memtwin/internal/config"
	"github.com/memtwin/memtwin/internal/llm"
)

// ConsolidateInput defines the input schema for the consolidate_memories
// tool.
type ConsolidateInput struct {
	Project        string `json:"project,omitempty" jsonschema:"Project to consolidate (auto-detected if omitted)"`
	MinClusterSize int    `json:"min_cluster_size,omitempty" jsonschema:"Minimum episodes per cluster for this run (default from config)"`
}

// NewConsolidateHandler creates the consolidate_memories tool handler.
// Runs the full cluster-and-synthesize pipeline; episodes are never
// modified, only new meta-memories are created.
func NewConsolidateHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[ConsolidateInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ConsolidateInput) (
		*mcp.CallToolResult, any, error,
	) {
		project := DetectProject(input.Project, cfg)
		if input.MinClusterSize < 0 {
			return ErrorResult("min_cluster_size must be positive", "Omit the field to use the configured default"), nil, nil
		}

		report, err := deps.Consolidator.Run(ctx, project, input.MinClusterSize)
		if err != nil {
			deps.Logger.Error("consolidation failed", "project", project, "error", err)
			if errors.Is(err, llm.ErrFatalAPI) {
				return ErrorResult("LLM provider rejected the request", "Check API credentials and quota, then retry"), nil, nil
			}
			if errors.Is(err, context.DeadlineExceeded) && report != nil {
				// Partial runs keep what they created.
				return JSONResult(report), nil, nil
			}
			return ErrorResult("Consolidation failed", "Check database and LLM connectivity"), nil, nil
		}

		deps.Logger.Info("consolidation completed",
			"project", project,
			"clusters", report.ClustersFound,
			"created", len(report.MetaMemories))
		return JSONResult(report), nil, nil
	}
}

// StatusInput defines the input schema for the consolidation_status tool.
type StatusInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project to inspect (auto-detected if omitted)"`
}

// NewStatusHandler creates the consolidation_status tool handler.
// Read-only: reports whether a consolidation run looks worthwhile.
func NewStatusHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[StatusInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, any, error,
	) {
		status, err := deps.Status.ConsolidationStatus(ctx, DetectProject(input.Project, cfg))
		if err != nil {
			deps.Logger.Error("consolidation status failed", "error", err)
			return ErrorResult("Failed to compute consolidation status", "Database may be unavailable"), nil, nil
		}

		return JSONResult(status), nil, nil
	}
}
