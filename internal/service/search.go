package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/memtwin/memtwin/internal/metrics"
	"github.com/memtwin/memtwin/internal/models"
	"github.com/memtwin/memtwin/internal/scoring"
	"github.com/memtwin/memtwin/internal/vectorindex"
)

// candidateMultiplier controls how many index candidates are fetched per
// requested result. Hybrid scoring can reorder candidates past the semantic
// cutoff, so the index is always over-queried.
const candidateMultiplier = 3

// DefaultTopK is the result count used when a caller does not specify one.
const DefaultTopK = 5

// SearchService runs hybrid relevance search over episodes and
// meta-memories.
type SearchService struct {
	episodes  EpisodeStore
	metas     MetaMemoryStore
	index     VectorIndex
	embedder  Embedder
	scorer    scoring.Scorer
	collector *metrics.Collector
}

// NewSearchService creates a search service.
func NewSearchService(episodes EpisodeStore, metas MetaMemoryStore, index VectorIndex, embedder Embedder, scorer scoring.Scorer, collector *metrics.Collector) *SearchService {
	return &SearchService{
		episodes:  episodes,
		metas:     metas,
		index:     index,
		embedder:  embedder,
		scorer:    scorer,
		collector: collector,
	}
}

// SearchEpisodes returns the topK most relevant episodes for the query.
// Candidates come from the vector index, the final ranking is the hybrid
// score over signal fields held in the metadata store. Access counts of the
// returned episodes are incremented after ranking, so reinforcement shows up
// on the next search, not this one.
func (s *SearchService) SearchEpisodes(ctx context.Context, query string, topK int, filters models.SearchFilters) ([]models.EpisodeSearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	start := time.Now()
	defer recordTiming(s.collector, metrics.OpSearch, start)

	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	indexStart := time.Now()
	matches, err := s.index.QueryEpisodes(ctx, embedding, topK*candidateMultiplier, filters)
	if err != nil {
		return nil, fmt.Errorf("querying episode index: %w", err)
	}
	recordTiming(s.collector, metrics.OpIndexQuery, indexStart)
	if len(matches) == 0 {
		return []models.EpisodeSearchResult{}, nil
	}

	episodes, err := s.episodes.GetEpisodesByIDs(ctx, matchIDs(matches))
	if err != nil {
		return nil, fmt.Errorf("fetching candidate episodes: %w", err)
	}
	byID := make(map[uuid.UUID]models.Episode, len(episodes))
	for _, ep := range episodes {
		byID[ep.ID] = ep
	}

	now := time.Now()
	results := make([]models.EpisodeSearchResult, 0, len(matches))
	for _, m := range matches {
		ep, ok := byID[m.ID]
		if !ok {
			// Index entry without a metadata record. Reconcile cleans
			// these up; here the candidate is just dropped.
			slog.Warn("episode present in index but missing from metadata store",
				"episode_id", m.ID)
			continue
		}
		if !hasAllTags(ep.Tags, filters.Tags) {
			continue
		}

		semantic := scoring.SemanticScore(float64(1 - m.Similarity))
		results = append(results, models.EpisodeSearchResult{
			Episode:       ep,
			Score:         s.scorer.Score(&ep, semantic, now.Sub(ep.Timestamp)),
			SemanticScore: semantic,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Episode.Timestamp.After(results[j].Episode.Timestamp)
	})
	if len(results) > topK {
		results = results[:topK]
	}

	s.reinforceEpisodes(ctx, results)

	return results, nil
}

// SearchMetaMemories returns the topK most relevant meta-memories for the
// query. Ranking is semantic similarity scaled by the access boost, since
// meta-memories carry no importance or curation flags.
func (s *SearchService) SearchMetaMemories(ctx context.Context, query string, topK int, project string) ([]models.MetaMemorySearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	start := time.Now()
	defer recordTiming(s.collector, metrics.OpSearch, start)

	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	indexStart := time.Now()
	matches, err := s.index.QueryMetaMemories(ctx, embedding, topK*candidateMultiplier, project)
	if err != nil {
		return nil, fmt.Errorf("querying meta-memory index: %w", err)
	}
	recordTiming(s.collector, metrics.OpIndexQuery, indexStart)
	if len(matches) == 0 {
		return []models.MetaMemorySearchResult{}, nil
	}

	metas, err := s.metas.GetMetaMemoriesByIDs(ctx, matchIDs(matches))
	if err != nil {
		return nil, fmt.Errorf("fetching candidate meta-memories: %w", err)
	}
	byID := make(map[uuid.UUID]models.MetaMemory, len(metas))
	for _, m := range metas {
		byID[m.ID] = m
	}

	results := make([]models.MetaMemorySearchResult, 0, len(matches))
	for _, m := range matches {
		meta, ok := byID[m.ID]
		if !ok {
			slog.Warn("meta-memory present in index but missing from metadata store",
				"meta_memory_id", m.ID)
			continue
		}

		semantic := scoring.SemanticScore(float64(1 - m.Similarity))
		score := semantic * (1 + s.scorer.AccessBoost*float64(meta.AccessCount))
		results = append(results, models.MetaMemorySearchResult{
			MetaMemory:    meta,
			Score:         score,
			SemanticScore: semantic,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].MetaMemory.CreatedAt.After(results[j].MetaMemory.CreatedAt)
	})
	if len(results) > topK {
		results = results[:topK]
	}

	s.reinforceMetaMemories(ctx, results)

	return results, nil
}

func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	start := time.Now()
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	recordTiming(s.collector, metrics.OpEmbedding, start)
	return embedding, nil
}

// Update access for returned records. Reinforcement failures never fail the
// search itself.
func (s *SearchService) reinforceEpisodes(ctx context.Context, results []models.EpisodeSearchResult) {
	if len(results) == 0 {
		return
	}
	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.Episode.ID
	}
	if err := s.episodes.UpdateEpisodeAccess(ctx, ids...); err != nil {
		slog.Warn("failed to update episode access counts", "error", err)
	}
}

func (s *SearchService) reinforceMetaMemories(ctx context.Context, results []models.MetaMemorySearchResult) {
	if len(results) == 0 {
		return
	}
	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.MetaMemory.ID
	}
	if err := s.metas.UpdateMetaMemoryAccess(ctx, ids...); err != nil {
		slog.Warn("failed to update meta-memory access counts", "error", err)
	}
}

func matchIDs(matches []vectorindex.Match) []uuid.UUID {
	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}

func hasAllTags(episodeTags, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(episodeTags))
	for _, t := range episodeTags {
		have[t] = struct{}{}
	}
	for _, t := range wanted {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}
