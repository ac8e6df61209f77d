// Package models defines data structures for the memtwin episodic memory engine.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EpisodeType categorizes captured memory episodes.
type EpisodeType string

const (
	TypeDecision     EpisodeType = "decision"
	TypeBugFix       EpisodeType = "bug_fix"
	TypeRefactor     EpisodeType = "refactor"
	TypeFeature      EpisodeType = "feature"
	TypeOptimization EpisodeType = "optimization"
	TypeLearning     EpisodeType = "learning"
	TypeExperiment   EpisodeType = "experiment"
)

// EpisodeTypes lists all valid episode types, used for validation and stats.
var EpisodeTypes = []EpisodeType{
	TypeDecision, TypeBugFix, TypeRefactor, TypeFeature,
	TypeOptimization, TypeLearning, TypeExperiment,
}

// ValidEpisodeType reports whether t is a known episode type.
func ValidEpisodeType(t EpisodeType) bool {
	for _, v := range EpisodeTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ReasoningTrace is the model's visible "thinking" output captured with an episode.
type ReasoningTrace struct {
	RawThinking            string   `json:"raw_thinking"`
	AlternativesConsidered []string `json:"alternatives_considered,omitempty"`
	DecisionFactors        []string `json:"decision_factors,omitempty"`
	// ConfidenceLevel is in [0,1] when set.
	ConfidenceLevel *float64 `json:"confidence_level,omitempty"`
}

// Episode is the fundamental unit of knowledge: one captured reasoning event.
//
// Content fields are immutable after storage. The signal fields
// (ImportanceScore, AccessCount, LastAccessed, the antipattern/critical flags,
// SupersededBy, DeprecationReason) are owned by the repository and change only
// through access accounting and explicit flag updates.
type Episode struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	Task    string `json:"task"`
	Context string `json:"context"`

	ReasoningTrace ReasoningTrace `json:"reasoning_trace"`

	Solution        string `json:"solution"`
	SolutionSummary string `json:"solution_summary"`

	Outcome *string `json:"outcome,omitempty"`
	Success bool    `json:"success"`

	EpisodeType     EpisodeType `json:"episode_type"`
	Tags            []string    `json:"tags,omitempty"`
	FilesAffected   []string    `json:"files_affected,omitempty"`
	LessonsLearned  []string    `json:"lessons_learned,omitempty"`
	SourceAssistant string      `json:"source_assistant"`
	ProjectName     string      `json:"project_name"`

	// Signal fields.
	ImportanceScore   float64    `json:"importance_score"`
	AccessCount       int        `json:"access_count"`
	LastAccessed      *time.Time `json:"last_accessed,omitempty"`
	IsAntipattern     bool       `json:"is_antipattern"`
	IsCritical        bool       `json:"is_critical"`
	SupersededBy      *uuid.UUID `json:"superseded_by,omitempty"`
	DeprecationReason *string    `json:"deprecation_reason,omitempty"`
}

// NewEpisode returns an Episode with identity, timestamp, and signal defaults set.
func NewEpisode() Episode {
	return Episode{
		ID:              uuid.New(),
		Timestamp:       time.Now().UTC(),
		Success:         true,
		EpisodeType:     TypeDecision,
		SourceAssistant: "unknown",
		ProjectName:     "default",
		ImportanceScore: 1.0,
	}
}

// CanonicalText is the fixed, ordered concatenation embedded at store time:
// task, context, raw reasoning, solution summary, and lessons if present.
// It must stay deterministic across restarts; the embedding is never
// recomputed from it, so changing this construction invalidates all stored
// vectors.
func (e *Episode) CanonicalText() string {
	parts := []string{
		"Task: " + e.Task,
		"Context: " + e.Context,
		"Reasoning: " + e.ReasoningTrace.RawThinking,
		"Solution: " + e.SolutionSummary,
	}
	if len(e.LessonsLearned) > 0 {
		parts = append(parts, "Lessons: "+strings.Join(e.LessonsLearned, " "))
	}
	return strings.Join(parts, "\n")
}

// FlagUpdates carries the allowed mutations of an episode's signal fields.
// Nil fields are left unchanged.
type FlagUpdates struct {
	IsAntipattern     *bool
	IsCritical        *bool
	SupersededBy      *uuid.UUID
	DeprecationReason *string
	ImportanceScore   *float64
}

// Empty reports whether no update was requested.
func (u FlagUpdates) Empty() bool {
	return u.IsAntipattern == nil && u.IsCritical == nil &&
		u.SupersededBy == nil && u.DeprecationReason == nil && u.ImportanceScore == nil
}

// TouchesIndexedFlags reports whether the update changes a flag that is
// mirrored into the vector index metadata.
func (u FlagUpdates) TouchesIndexedFlags() bool {
	return u.IsAntipattern != nil || u.IsCritical != nil
}
