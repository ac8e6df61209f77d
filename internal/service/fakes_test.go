package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/memtwin/memtwin/internal/db"
	"github.com/memtwin/memtwin/internal/llm"
	"github.com/memtwin/memtwin/internal/models"
)

// fakeStore is an in-memory stand-in for the SurrealDB client.
type fakeStore struct {
	episodes map[uuid.UUID]models.Episode
	metas    map[uuid.UUID]models.MetaMemory

	createEpisodeErr error
	accessErr        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		episodes: make(map[uuid.UUID]models.Episode),
		metas:    make(map[uuid.UUID]models.MetaMemory),
	}
}

func (f *fakeStore) CreateEpisode(_ context.Context, ep *models.Episode) (*models.Episode, error) {
	if f.createEpisodeErr != nil {
		return nil, f.createEpisodeErr
	}
	if _, exists := f.episodes[ep.ID]; exists {
		return nil, fmt.Errorf("episode %s: %w", ep.ID, db.ErrAlreadyExists)
	}
	stored := *ep
	f.episodes[ep.ID] = stored
	return &stored, nil
}

func (f *fakeStore) GetEpisode(_ context.Context, id uuid.UUID) (*models.Episode, error) {
	ep, ok := f.episodes[id]
	if !ok {
		return nil, nil
	}
	return &ep, nil
}

func (f *fakeStore) GetEpisodesByIDs(_ context.Context, ids []uuid.UUID) ([]models.Episode, error) {
	out := make([]models.Episode, 0, len(ids))
	for _, id := range ids {
		if ep, ok := f.episodes[id]; ok {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteEpisode(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.episodes[id]; !ok {
		return false, nil
	}
	delete(f.episodes, id)
	return true, nil
}

func (f *fakeStore) UpdateEpisodeFlags(_ context.Context, id uuid.UUID, updates models.FlagUpdates) (*models.Episode, error) {
	ep, ok := f.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, db.ErrNotFound)
	}
	if updates.IsAntipattern != nil {
		ep.IsAntipattern = *updates.IsAntipattern
	}
	if updates.IsCritical != nil {
		ep.IsCritical = *updates.IsCritical
	}
	if updates.SupersededBy != nil {
		ep.SupersededBy = updates.SupersededBy
	}
	if updates.DeprecationReason != nil {
		ep.DeprecationReason = updates.DeprecationReason
	}
	if updates.ImportanceScore != nil {
		ep.ImportanceScore = *updates.ImportanceScore
	}
	f.episodes[id] = ep
	return &ep, nil
}

func (f *fakeStore) UpdateEpisodeAccess(_ context.Context, ids ...uuid.UUID) error {
	if f.accessErr != nil {
		return f.accessErr
	}
	now := time.Now()
	for _, id := range ids {
		if ep, ok := f.episodes[id]; ok {
			ep.AccessCount++
			ep.LastAccessed = &now
			f.episodes[id] = ep
		}
	}
	return nil
}

func (f *fakeStore) ListRecentEpisodes(_ context.Context, project string, limit int) ([]models.Episode, error) {
	out := f.projectEpisodes(project)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListTimeline(_ context.Context, filters models.TimelineFilters, limit int) ([]models.Episode, error) {
	var out []models.Episode
	for _, ep := range f.projectEpisodes(filters.Project) {
		if filters.Type != "" && ep.EpisodeType != filters.Type {
			continue
		}
		if filters.DateFrom != nil && ep.Timestamp.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && ep.Timestamp.After(*filters.DateTo) {
			continue
		}
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CountEpisodes(_ context.Context, project string) (int, error) {
	return len(f.projectEpisodes(project)), nil
}

func (f *fakeStore) MaxAccessCount(_ context.Context, project string) (int, error) {
	maxCount := 0
	for _, ep := range f.projectEpisodes(project) {
		if ep.AccessCount > maxCount {
			maxCount = ep.AccessCount
		}
	}
	return maxCount, nil
}

func (f *fakeStore) CountHotEpisodes(_ context.Context, project string, threshold int) (int, error) {
	n := 0
	for _, ep := range f.projectEpisodes(project) {
		if ep.AccessCount >= threshold {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountEpisodesByType(_ context.Context, project string) ([]db.TypeCount, error) {
	counts := make(map[string]int)
	for _, ep := range f.projectEpisodes(project) {
		counts[string(ep.EpisodeType)]++
	}
	out := make([]db.TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, db.TypeCount{Type: t, Count: n})
	}
	return out, nil
}

func (f *fakeStore) CountEpisodesByAssistant(_ context.Context, project string) ([]db.AssistantCount, error) {
	counts := make(map[string]int)
	for _, ep := range f.projectEpisodes(project) {
		counts[ep.SourceAssistant]++
	}
	out := make([]db.AssistantCount, 0, len(counts))
	for a, n := range counts {
		out = append(out, db.AssistantCount{Assistant: a, Count: n})
	}
	return out, nil
}

func (f *fakeStore) projectEpisodes(project string) []models.Episode {
	var out []models.Episode
	for _, ep := range f.episodes {
		if project != "" && ep.ProjectName != project {
			continue
		}
		out = append(out, ep)
	}
	return out
}

func (f *fakeStore) CreateMetaMemory(_ context.Context, m *models.MetaMemory) (*models.MetaMemory, error) {
	stored := *m
	f.metas[m.ID] = stored
	return &stored, nil
}

func (f *fakeStore) GetMetaMemory(_ context.Context, id uuid.UUID) (*models.MetaMemory, error) {
	m, ok := f.metas[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeStore) GetMetaMemoriesByIDs(_ context.Context, ids []uuid.UUID) ([]models.MetaMemory, error) {
	out := make([]models.MetaMemory, 0, len(ids))
	for _, id := range ids {
		if m, ok := f.metas[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMetaMemories(_ context.Context, project string, limit int) ([]models.MetaMemory, error) {
	var out []models.MetaMemory
	for _, m := range f.metas {
		if project != "" && m.ProjectName != project {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateMetaMemoryAccess(_ context.Context, ids ...uuid.UUID) error {
	if f.accessErr != nil {
		return f.accessErr
	}
	now := time.Now()
	for _, id := range ids {
		if m, ok := f.metas[id]; ok {
			m.AccessCount++
			m.LastAccessed = &now
			f.metas[id] = m
		}
	}
	return nil
}

func (f *fakeStore) SumMetaEpisodeCounts(_ context.Context, project string) (int, error) {
	sum := 0
	for _, m := range f.metas {
		if project != "" && m.ProjectName != project {
			continue
		}
		sum += m.EpisodeCount
	}
	return sum, nil
}

func (f *fakeStore) CountMetaMemories(_ context.Context, project string) (int, error) {
	n := 0
	for _, m := range f.metas {
		if project != "" && m.ProjectName != project {
			continue
		}
		n++
	}
	return n, nil
}

// fakeEmbedder returns registered vectors by exact text, falling back to a
// fixed vector for unregistered text.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors:  make(map[string][]float32),
		fallback: []float32{0, 0, 0, 1},
	}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

// failingIndex wraps a VectorIndex and fails writes, simulating a corrupted
// or unavailable index directory.
type failingIndex struct {
	VectorIndex
}

func (failingIndex) AddEpisode(context.Context, *models.Episode, []float32) error {
	return fmt.Errorf("index unavailable")
}

func (failingIndex) DeleteEpisode(context.Context, uuid.UUID) error {
	return fmt.Errorf("index unavailable")
}

// fakeStructurer returns a canned episode or error.
type fakeStructurer struct {
	episode *models.Episode
	err     error
	lastIn  llm.CaptureInput
}

func (f *fakeStructurer) StructureThought(_ context.Context, in llm.CaptureInput) (*models.Episode, error) {
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	ep := *f.episode
	return &ep, nil
}
