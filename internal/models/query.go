package models

import "time"

// SearchFilters narrows an episode search. Zero values mean "no filter".
type SearchFilters struct {
	Project string
	Type    EpisodeType
	Tags    []string
}

// TimelineFilters narrows a chronological episode listing.
type TimelineFilters struct {
	Project  string
	Type     EpisodeType
	DateFrom *time.Time
	DateTo   *time.Time
}

// EpisodeSearchResult pairs an episode with its final hybrid ranking score
// and the raw semantic similarity it was derived from.
type EpisodeSearchResult struct {
	Episode       Episode `json:"episode"`
	Score         float64 `json:"score"`
	SemanticScore float64 `json:"semantic_score"`
}

// MetaMemorySearchResult pairs a meta-memory with its ranking score.
type MetaMemorySearchResult struct {
	MetaMemory    MetaMemory `json:"meta_memory"`
	Score         float64    `json:"score"`
	SemanticScore float64    `json:"semantic_score"`
}

// ProjectStats summarizes stored episodes for one project (or all projects
// when Project is empty).
type ProjectStats struct {
	Project       string              `json:"project,omitempty"`
	TotalEpisodes int                 `json:"total_episodes"`
	ByType        map[EpisodeType]int `json:"by_type"`
	ByAssistant   map[string]int      `json:"by_assistant"`
	IndexedCount  int                 `json:"indexed_count"`
}

// ConsolidationStatus is the advisory output of the consolidation trigger.
type ConsolidationStatus struct {
	Project                 string `json:"project"`
	TotalEpisodes           int    `json:"total_episodes"`
	HotEpisodes             int    `json:"hot_episodes"`
	MaxAccessCount          int    `json:"max_access_count"`
	EstimatedUnconsolidated int    `json:"estimated_unconsolidated"`
	ShouldConsolidate       bool   `json:"should_consolidate"`
	AccessThreshold         int    `json:"access_threshold"`
	UnconsolidatedThreshold int    `json:"unconsolidated_threshold"`
}
