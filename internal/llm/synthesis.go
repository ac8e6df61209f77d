package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/memtwin/memtwin/internal/models"
)

// ErrMalformedResponse indicates the model returned something that could not
// be parsed as the expected JSON. Callers skip the affected unit of work and
// continue.
var ErrMalformedResponse = errors.New("malformed model response")

const synthesisSystemPrompt = `You are an expert at synthesizing technical knowledge.
Analyze the following related memory episodes and produce one consolidated meta-memory.

INSTRUCTIONS:
1. Identify the COMMON PATTERN connecting these episodes
2. Extract the most important LESSONS LEARNED (max 5)
3. Derive BEST PRACTICES (max 3)
4. Detect ANTI-PATTERNS or common mistakes to avoid (max 3)
5. List EXCEPTIONS where the pattern does not apply (max 3)
6. Identify discovered EDGE CASES (max 2)
7. Define the CONTEXTS where this knowledge applies
8. List the TECHNOLOGIES involved

RESPOND IN JSON with exactly this structure:
{
    "pattern": "Detailed description of the identified pattern (2-3 sentences)",
    "pattern_summary": "One-sentence executive summary",
    "lessons": ["lesson 1", "lesson 2"],
    "best_practices": ["practice 1"],
    "antipatterns": ["antipattern 1"],
    "exceptions": ["exception 1"],
    "edge_cases": ["edge case 1"],
    "contexts": ["context 1"],
    "technologies": ["tech1", "tech2"],
    "coherence_score": 0.8
}

The coherence_score says how related the episodes are (0.0-1.0).
If the episodes are very diverse, the score is low.

IMPORTANT: Respond ONLY with the JSON, no additional explanation.`

// SynthesisResult is the parsed output of a cluster synthesis call.
type SynthesisResult struct {
	Pattern        string   `json:"pattern"`
	PatternSummary string   `json:"pattern_summary"`
	Lessons        []string `json:"lessons"`
	BestPractices  []string `json:"best_practices"`
	Antipatterns   []string `json:"antipatterns"`
	Exceptions     []string `json:"exceptions"`
	EdgeCases      []string `json:"edge_cases"`
	Contexts       []string `json:"contexts"`
	Technologies   []string `json:"technologies"`
	CoherenceScore float64  `json:"coherence_score"`
}

// SynthesizeCluster asks the model to consolidate a cluster of episodes into
// a single pattern description. Returns ErrMalformedResponse when the model
// output is not valid JSON.
func (m *Model) SynthesizeCluster(ctx context.Context, episodes []models.Episode) (*SynthesisResult, error) {
	parts := make([]string, len(episodes))
	for i := range episodes {
		parts[i] = formatEpisodeForSynthesis(&episodes[i])
	}
	userPrompt := fmt.Sprintf("EPISODES TO CONSOLIDATE:\n%s", strings.Join(parts, "\n---\n"))

	response, err := m.GenerateWithSystem(ctx, synthesisSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("synthesize cluster: %w", err)
	}

	return parseSynthesisResponse(response)
}

// formatEpisodeForSynthesis renders one episode for the synthesis prompt.
// Raw thinking is truncated so large traces cannot crowd out the rest of the
// cluster.
func formatEpisodeForSynthesis(ep *models.Episode) string {
	thinking := truncateRunes(ep.ReasoningTrace.RawThinking, 500)
	lessons := ep.LessonsLearned
	if len(lessons) > 2 {
		lessons = lessons[:2]
	}

	return fmt.Sprintf(`### Episode %s
- Date: %s
- Task: %s
- Context: %s
- Reasoning: %s
- Solution: %s
- Lessons: %s
- Tags: %s`,
		ep.ID,
		ep.Timestamp.Format("2006-01-02"),
		ep.Task,
		ep.Context,
		thinking,
		ep.SolutionSummary,
		orNA(lessons),
		orNA(ep.Tags),
	)
}

// truncateRunes caps a string at n runes so multi-byte characters are never
// split mid-sequence.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func orNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}

func parseSynthesisResponse(text string) (*SynthesisResult, error) {
	cleaned := extractJSON(text)

	var result SynthesisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.Pattern == "" {
		return nil, fmt.Errorf("%w: missing pattern", ErrMalformedResponse)
	}
	return &result, nil
}

// extractJSON strips markdown code fences and surrounding prose from a model
// response, returning the innermost JSON object candidate.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	// Fall back to the outermost braces when the model wrapped the JSON in
	// explanation text despite instructions.
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}

	return s
}
