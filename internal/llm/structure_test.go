package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memtwin/memtwin/internal/models"
)

const validStructureJSON = `{
	"task": "Fix race in cache refresh",
	"context": "cache.go, refresh goroutine",
	"reasoning_trace": {
		"raw_thinking": "The refresh goroutine reads the map without holding the lock",
		"alternatives_considered": ["sync.Map"],
		"decision_factors": ["existing RWMutex usage"],
		"confidence_level": 0.9
	},
	"solution": "guarded the read path with RLock",
	"solution_summary": "Added missing read lock in refresh path",
	"episode_type": "bug_fix",
	"tags": ["concurrency", "cache"],
	"files_affected": ["cache.go"],
	"lessons_learned": ["audit all map reads when adding goroutines"]
}`

func TestParseStructuredResponse(t *testing.T) {
	ep, err := parseStructuredResponse(validStructureJSON, CaptureInput{RawText: "raw"})
	require.NoError(t, err)

	assert.Equal(t, "Fix race in cache refresh", ep.Task)
	assert.Equal(t, models.TypeBugFix, ep.EpisodeType)
	assert.Equal(t, []string{"concurrency", "cache"}, ep.Tags)
	assert.Equal(t, []string{"sync.Map"}, ep.ReasoningTrace.AlternativesConsidered)
	require.NotNil(t, ep.ReasoningTrace.ConfidenceLevel)
	assert.InDelta(t, 0.9, *ep.ReasoningTrace.ConfidenceLevel, 1e-9)

	// Store-time defaults are applied
	assert.NotEqual(t, ep.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, 1.0, ep.ImportanceScore)
	assert.True(t, ep.Success)
}

func TestParseStructuredResponseDefaults(t *testing.T) {
	ep, err := parseStructuredResponse(`{"episode_type": "not_a_type"}`, CaptureInput{RawText: "original thinking"})
	require.NoError(t, err)

	assert.Equal(t, "Unspecified task", ep.Task)
	assert.Equal(t, "Unspecified context", ep.Context)
	// Unknown types fall back to decision
	assert.Equal(t, models.TypeDecision, ep.EpisodeType)
	// Empty trace falls back to the captured text
	assert.Equal(t, "original thinking", ep.ReasoningTrace.RawThinking)
}

func TestParseStructuredResponseMalformed(t *testing.T) {
	_, err := parseStructuredResponse("not json at all", CaptureInput{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBuildCapturePrompt(t *testing.T) {
	full := buildCapturePrompt(CaptureInput{
		RawText:     "thinking here",
		UserPrompt:  "please fix the cache",
		CodeChanges: "diff --git a/cache.go",
	})
	assert.Contains(t, full, "## REASONING TEXT (THINKING):\nthinking here")
	assert.Contains(t, full, "## ORIGINAL USER PROMPT:\nplease fix the cache")
	assert.Contains(t, full, "## CODE CHANGES:")

	minimal := buildCapturePrompt(CaptureInput{RawText: "thinking only"})
	assert.NotContains(t, minimal, "ORIGINAL USER PROMPT")
	assert.NotContains(t, minimal, "CODE CHANGES")
}
