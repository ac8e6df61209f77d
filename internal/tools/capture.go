package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memtwin/memtwin/internal/config"
	"github.com/memtwin/memtwin/internal/llm"
	"github.com/memtwin/memtwin/internal/service"
)

// CaptureInput defines the input schema for the capture_episode tool.
type CaptureInput struct {
	RawText     string   `json:"raw_text" jsonschema:"required,The raw reasoning text to structure and store"`
	UserPrompt  string   `json:"user_prompt,omitempty" jsonschema:"The user request that triggered the reasoning"`
	CodeChanges string   `json:"code_changes,omitempty" jsonschema:"Diff or description of code changes made"`
	Project     string   `json:"project,omitempty" jsonschema:"Project name (auto-detected if omitted)"`
	Assistant   string   `json:"assistant,omitempty" jsonschema:"Name of the assistant that produced the reasoning"`
	Tags        []string `json:"tags,omitempty" jsonschema:"Extra tags merged into the structured episode"`
}

// NewCaptureHandler creates the capture_episode tool handler.
// Structures raw reasoning text into an episode via the LLM and stores it.
func NewCaptureHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[CaptureInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CaptureInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.RawText == "" {
			return ErrorResult("Raw text cannot be empty", "Provide the reasoning text to capture"), nil, nil
		}

		ep, err := deps.Capture.Capture(ctx, service.CaptureRequest{
			RawText:     input.RawText,
			UserPrompt:  input.UserPrompt,
			CodeChanges: input.CodeChanges,
			Project:     DetectProject(input.Project, cfg),
			Assistant:   input.Assistant,
			Tags:        input.Tags,
		})
		if err != nil {
			deps.Logger.Error("capture failed", "error", err)
			switch {
			case errors.Is(err, llm.ErrMalformedResponse):
				return ErrorResult("The structuring model returned malformed output", "Retry, or simplify the raw text"), nil, nil
			case errors.Is(err, llm.ErrFatalAPI):
				return ErrorResult("LLM provider rejected the request", "Check API credentials and quota"), nil, nil
			default:
				return ErrorResult("Failed to capture episode", "Check database and LLM connectivity"), nil, nil
			}
		}

		deps.Logger.Info("episode captured", "episode_id", ep.ID, "project", ep.ProjectName, "type", ep.EpisodeType)
		return JSONResult(ep), nil, nil
	}
}
