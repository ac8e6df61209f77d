package tools

import (
	"context"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memtwin/memtwin/internal/config"
	"github.com/memtwin/memtwin/internal/models"
)

// SearchInput defines the input schema for the search_episodes tool.
type SearchInput struct {
	Query   string   `json:"query" jsonschema:"required,The search query text"`
	TopK    int      `json:"top_k,omitempty" jsonschema:"Max results 1-100, default 5"`
	Project string   `json:"project,omitempty" jsonschema:"Project name filter (auto-detected if omitted)"`
	Type    string   `json:"type,omitempty" jsonschema:"Episode type filter (decision, bug_fix, refactor, feature, optimization, learning, experiment)"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Tag filter, episodes must carry all listed tags"`
}

// SearchResult is the search_episodes tool response.
type SearchResult struct {
	Results []models.EpisodeSearchResult `json:"results"`
	Count   int                          `json:"count"`
}

// NewSearchHandler creates the search_episodes tool handler.
// Runs hybrid semantic plus signal-field ranking and reinforces the access
// count of every returned episode.
func NewSearchHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}
		if input.TopK > 100 {
			return ErrorResult("top_k must be 1-100", "Reduce top_k value"), nil, nil
		}
		if input.Type != "" && !models.ValidEpisodeType(models.EpisodeType(input.Type)) {
			return ErrorResult("Unknown episode type "+input.Type, "Use one of: decision, bug_fix, refactor, feature, optimization, learning, experiment"), nil, nil
		}

		filters := models.SearchFilters{
			Project: DetectProject(input.Project, cfg),
			Type:    models.EpisodeType(input.Type),
			Tags:    input.Tags,
		}

		results, err := deps.Search.SearchEpisodes(ctx, input.Query, input.TopK, filters)
		if err != nil {
			deps.Logger.Error("search failed", "error", err)
			return ErrorResult("Search failed", "Check database and embedding provider connectivity"), nil, nil
		}

		deps.Logger.Info("search completed", "query", truncateQuery(input.Query, 30), "results", len(results))

		return JSONResult(SearchResult{Results: results, Count: len(results)}), nil, nil
	}
}

// MetaSearchInput defines the input schema for the search_meta_memories
// tool.
type MetaSearchInput struct {
	Query   string `json:"query" jsonschema:"required,The search query text"`
	TopK    int    `json:"top_k,omitempty" jsonschema:"Max results 1-100, default 5"`
	Project string `json:"project,omitempty" jsonschema:"Project name filter (auto-detected if omitted)"`
}

// MetaSearchResult is the search_meta_memories tool response.
type MetaSearchResult struct {
	Results []models.MetaMemorySearchResult `json:"results"`
	Count   int                             `json:"count"`
}

// NewMetaSearchHandler creates the search_meta_memories tool handler.
func NewMetaSearchHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[MetaSearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input MetaSearchInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}
		if input.TopK > 100 {
			return ErrorResult("top_k must be 1-100", "Reduce top_k value"), nil, nil
		}

		results, err := deps.Search.SearchMetaMemories(ctx, input.Query, input.TopK, DetectProject(input.Project, cfg))
		if err != nil {
			deps.Logger.Error("meta-memory search failed", "error", err)
			return ErrorResult("Meta-memory search failed", "Check database and embedding provider connectivity"), nil, nil
		}

		return JSONResult(MetaSearchResult{Results: results, Count: len(results)}), nil, nil
	}
}

// truncateQuery caps a logged query at n runes, never splitting a multi-byte
// character.
func truncateQuery(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
