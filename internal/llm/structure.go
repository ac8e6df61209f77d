package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/memtwin/memtwin/internal/models"
)

const structuringSystemPrompt = `You are an assistant specialized in analyzing and structuring the technical reasoning of AI coding assistants during software development.

Your task is to convert raw "thinking" text (visible reasoning) from a coding assistant into a structured memory episode.

INPUT:
- Reasoning text from the model (visible thinking)
- Optionally: the user's original prompt and code changes

OUTPUT (strict JSON):
{
    "task": "Concise description of the task or problem addressed",
    "context": "Technical context: files, modules, technologies involved",
    "reasoning_trace": {
        "raw_thinking": "Summary of the main reasoning (max 500 words)",
        "alternatives_considered": ["discarded alternative 1", "discarded alternative 2"],
        "decision_factors": ["influencing factor 1", "influencing factor 2"],
        "confidence_level": 0.85
    },
    "solution": "Implemented code or solution (relevant excerpt)",
    "solution_summary": "Executive summary of the solution in 1-2 sentences",
    "episode_type": "decision|bug_fix|refactor|feature|optimization|learning|experiment",
    "tags": ["tag1", "tag2", "tag3"],
    "files_affected": ["file1.go", "file2.ts"],
    "lessons_learned": ["lesson 1", "lesson 2"]
}

RULES:
1. Be concise but complete
2. Extract ALL considered and discarded alternatives
3. Identify the key decision factors
4. Assign a confidence level based on the tone of the reasoning
5. Generate relevant tags for future search
6. Extract lessons learned if present (avoided mistakes, discovered patterns)
7. ALWAYS respond with valid JSON, no additional text`

// CaptureInput is the raw material for structuring a new episode.
type CaptureInput struct {
	RawText     string
	UserPrompt  string
	CodeChanges string
}

// structuredEpisode mirrors the JSON shape the structuring prompt asks for.
type structuredEpisode struct {
	Task           string                `json:"task"`
	Context        string                `json:"context"`
	ReasoningTrace models.ReasoningTrace `json:"reasoning_trace"`
	Solution       string                `json:"solution"`
	SolutionSum    string                `json:"solution_summary"`
	EpisodeType    string                `json:"episode_type"`
	Tags           []string              `json:"tags"`
	FilesAffected  []string              `json:"files_affected"`
	LessonsLearned []string              `json:"lessons_learned"`
}

// StructureThought converts raw reasoning text into a structured episode.
// Project and assistant attribution are left to the caller. Returns
// ErrMalformedResponse when the model output cannot be parsed.
func (m *Model) StructureThought(ctx context.Context, in CaptureInput) (*models.Episode, error) {
	response, err := m.GenerateWithSystem(ctx, structuringSystemPrompt, buildCapturePrompt(in))
	if err != nil {
		return nil, fmt.Errorf("structure thought: %w", err)
	}

	return parseStructuredResponse(response, in)
}

func buildCapturePrompt(in CaptureInput) string {
	var b strings.Builder
	b.WriteString("## REASONING TEXT (THINKING):\n")
	b.WriteString(in.RawText)

	if in.UserPrompt != "" {
		b.WriteString("\n\n## ORIGINAL USER PROMPT:\n")
		b.WriteString(in.UserPrompt)
	}
	if in.CodeChanges != "" {
		b.WriteString("\n\n## CODE CHANGES:\n```\n")
		b.WriteString(in.CodeChanges)
		b.WriteString("\n```")
	}

	b.WriteString("\n\n---\nStructure this reasoning in the specified JSON format.")
	return b.String()
}

func parseStructuredResponse(text string, in CaptureInput) (*models.Episode, error) {
	cleaned := extractJSON(text)

	var data structuredEpisode
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	ep := models.NewEpisode()
	ep.Task = data.Task
	ep.Context = data.Context
	ep.ReasoningTrace = data.ReasoningTrace
	ep.Solution = data.Solution
	ep.SolutionSummary = data.SolutionSum
	ep.Tags = data.Tags
	ep.FilesAffected = data.FilesAffected
	ep.LessonsLearned = data.LessonsLearned

	if ep.Task == "" {
		ep.Task = "Unspecified task"
	}
	if ep.Context == "" {
		ep.Context = "Unspecified context"
	}
	// Fall back to the captured text if the model left the trace empty
	if ep.ReasoningTrace.RawThinking == "" {
		ep.ReasoningTrace.RawThinking = in.RawText
	}

	t := models.EpisodeType(data.EpisodeType)
	if models.ValidEpisodeType(t) {
		ep.EpisodeType = t
	}

	return &ep, nil
}
