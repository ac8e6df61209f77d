package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memtwin/memtwin/internal/config"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies, cfg *config.Config) {
	// Ping tool - liveness check
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	// Capture tool - structure raw reasoning into a stored episode
	mcp.AddTool(server, &mcp.Tool{
		Name:        "capture_episode",
		Description: "Structure raw reasoning text into an episode and store it with its embedding",
	}, NewCaptureHandler(deps, cfg))

	// Search tool - hybrid semantic + signal-field ranking
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_episodes",
		Description: "Search episodes by semantic similarity combined with importance, access frequency, and curation flags",
	}, NewSearchHandler(deps, cfg))

	// Meta-memory search tool
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_meta_memories",
		Description: "Search consolidated meta-memories (patterns synthesized from episode clusters)",
	}, NewMetaSearchHandler(deps, cfg))

	// Get episode tool - retrieve by ID
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_episode",
		Description: "Retrieve an episode by its UUID with full details",
	}, NewGetEpisodeHandler(deps))

	// Delete episode tool
	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_episode",
		Description: "Delete an episode from the store and the index, idempotent",
	}, NewDeleteEpisodeHandler(deps))

	// Mark episode tool - curation flags
	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_episode",
		Description: "Update curation flags of an episode: antipattern, critical, superseded_by, deprecation reason, importance",
	}, NewMarkEpisodeHandler(deps))

	// Timeline tool - chronological browsing
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_timeline",
		Description: "List episodes newest first, filtered by project, type, and date range",
	}, NewTimelineHandler(deps, cfg))

	// Consolidation tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "consolidate_memories",
		Description: "Cluster related episodes and synthesize them into meta-memories",
	}, NewConsolidateHandler(deps, cfg))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "consolidation_status",
		Description: "Report whether a project has accumulated enough signal to be worth consolidating",
	}, NewStatusHandler(deps, cfg))

	// Statistics and maintenance tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_statistics",
		Description: "Episode counts by type and assistant, index coverage, and optional server metrics",
	}, NewStatsHandler(deps, cfg))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reconcile_index",
		Description: "Repair the vector index by re-embedding episodes it lost",
	}, NewReconcileHandler(deps, cfg))
}
