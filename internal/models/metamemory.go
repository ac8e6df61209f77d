package models

import (
	"time"

	"github.com/google/uuid"
)

// MetaMemory is consolidated knowledge synthesized from a cluster of related
// episodes. Created only by the consolidation pipeline, never by direct user
// action. SourceEpisodeIDs is provenance, not ownership: deleting a source
// episode leaves the reference dangling by design.
type MetaMemory struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Pattern        string `json:"pattern"`
	PatternSummary string `json:"pattern_summary"`

	Lessons       []string `json:"lessons,omitempty"`
	BestPractices []string `json:"best_practices,omitempty"`
	Antipatterns  []string `json:"antipatterns,omitempty"`

	Exceptions []string `json:"exceptions,omitempty"`
	EdgeCases  []string `json:"edge_cases,omitempty"`

	Contexts     []string `json:"contexts,omitempty"`
	Technologies []string `json:"technologies,omitempty"`

	SourceEpisodeIDs []uuid.UUID `json:"source_episode_ids"`
	EpisodeCount     int         `json:"episode_count"`

	// Confidence grows with cluster size: min(0.95, 0.5 + 0.1*count).
	Confidence float64 `json:"confidence"`
	// CoherenceScore in [0,1] is supplied by the synthesis model.
	CoherenceScore float64 `json:"coherence_score"`

	ProjectName string   `json:"project_name"`
	Tags        []string `json:"tags,omitempty"`

	AccessCount  int        `json:"access_count"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

// ConfidenceForClusterSize computes consolidation confidence from the number
// of source episodes, capped at 0.95.
func ConfidenceForClusterSize(n int) float64 {
	c := 0.5 + 0.1*float64(n)
	if c > 0.95 {
		return 0.95
	}
	return c
}

// CommonTags returns the tags present in at least half of the given episodes.
func CommonTags(episodes []Episode) []string {
	if len(episodes) == 0 {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, ep := range episodes {
		for _, tag := range ep.Tags {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	threshold := float64(len(episodes)) / 2
	var common []string
	for _, tag := range order {
		if float64(counts[tag]) >= threshold {
			common = append(common, tag)
		}
	}
	return common
}
