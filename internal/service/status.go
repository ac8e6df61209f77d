package service

import (
	"context"
	"fmt"

	"github.com/memtwin/memtwin/internal/models"
	"github.com/memtwin/memtwin/internal/scoring"
)

// StatusService answers consolidation readiness and corpus statistics
// questions. It never triggers consolidation itself.
type StatusService struct {
	episodes EpisodeStore
	metas    MetaMemoryStore
	index    VectorIndex

	accessThreshold         int
	unconsolidatedThreshold int
}

// NewStatusService creates a status service with the given consolidation
// trigger thresholds.
func NewStatusService(episodes EpisodeStore, metas MetaMemoryStore, index VectorIndex, accessThreshold, unconsolidatedThreshold int) *StatusService {
	return &StatusService{
		episodes:                episodes,
		metas:                   metas,
		index:                   index,
		accessThreshold:         accessThreshold,
		unconsolidatedThreshold: unconsolidatedThreshold,
	}
}

// ConsolidationStatus reports whether a project looks ready for
// consolidation. The unconsolidated estimate ignores cluster overlap, so it
// is advisory, not a budget.
func (s *StatusService) ConsolidationStatus(ctx context.Context, project string) (*models.ConsolidationStatus, error) {
	total, err := s.episodes.CountEpisodes(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("counting episodes: %w", err)
	}

	maxAccess, err := s.episodes.MaxAccessCount(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("reading max access count: %w", err)
	}

	hot, err := s.episodes.CountHotEpisodes(ctx, project, s.accessThreshold)
	if err != nil {
		return nil, fmt.Errorf("counting hot episodes: %w", err)
	}

	consolidated, err := s.metas.SumMetaEpisodeCounts(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("summing consolidated episodes: %w", err)
	}

	unconsolidated := scoring.EstimateUnconsolidated(total, consolidated)

	return &models.ConsolidationStatus{
		Project:                 project,
		TotalEpisodes:           total,
		HotEpisodes:             hot,
		MaxAccessCount:          maxAccess,
		EstimatedUnconsolidated: unconsolidated,
		ShouldConsolidate:       scoring.ShouldConsolidate(maxAccess, unconsolidated, s.accessThreshold, s.unconsolidatedThreshold),
		AccessThreshold:         s.accessThreshold,
		UnconsolidatedThreshold: s.unconsolidatedThreshold,
	}, nil
}

// Stats returns corpus statistics for a project, or for the whole store
// when project is empty.
func (s *StatusService) Stats(ctx context.Context, project string) (*models.ProjectStats, error) {
	total, err := s.episodes.CountEpisodes(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("counting episodes: %w", err)
	}

	byType, err := s.episodes.CountEpisodesByType(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("counting episodes by type: %w", err)
	}
	typeCounts := make(map[models.EpisodeType]int, len(byType))
	for _, tc := range byType {
		typeCounts[models.EpisodeType(tc.Type)] = tc.Count
	}

	byAssistant, err := s.episodes.CountEpisodesByAssistant(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("counting episodes by assistant: %w", err)
	}
	assistantCounts := make(map[string]int, len(byAssistant))
	for _, ac := range byAssistant {
		assistantCounts[ac.Assistant] = ac.Count
	}

	return &models.ProjectStats{
		Project:       project,
		TotalEpisodes: total,
		ByType:        typeCounts,
		ByAssistant:   assistantCounts,
		IndexedCount:  s.index.CountEpisodes(),
	}, nil
}
