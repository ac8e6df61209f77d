package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memtwin/memtwin/internal/metrics"
	"github.com/memtwin/memtwin/internal/models"
)

// EpisodeService stores and manages individual episodes across the
// metadata store and the vector index.
type EpisodeService struct {
	store     EpisodeStore
	index     VectorIndex
	embedder  Embedder
	collector *metrics.Collector
}

// NewEpisodeService creates an episode service.
func NewEpisodeService(store EpisodeStore, index VectorIndex, embedder Embedder, collector *metrics.Collector) *EpisodeService {
	return &EpisodeService{
		store:     store,
		index:     index,
		embedder:  embedder,
		collector: collector,
	}
}

// Store persists a new episode. The canonical text is embedded exactly once
// here; the vector is never recomputed for the lifetime of the episode.
// A metadata-store failure aborts the operation. Embedding and index failures
// do not: the episode then persists without index presence until Reconcile
// repairs it.
func (s *EpisodeService) Store(ctx context.Context, ep *models.Episode) (*models.Episode, error) {
	if err := validateEpisode(ep); err != nil {
		return nil, err
	}

	start := time.Now()
	embedding, embedErr := s.embedder.Embed(ctx, ep.CanonicalText())
	if embedErr != nil {
		increment(s.collector, metrics.CounterIndexFailures)
		slog.Warn("failed to embed episode, storing without index presence",
			"error", embedErr)
	} else {
		recordTiming(s.collector, metrics.OpEmbedding, start)
	}

	stored, err := s.store.CreateEpisode(ctx, ep)
	if err != nil {
		return nil, fmt.Errorf("storing episode: %w", err)
	}

	if embedErr == nil {
		if err := s.index.AddEpisode(ctx, stored, embedding); err != nil {
			increment(s.collector, metrics.CounterIndexFailures)
			slog.Warn("failed to index episode, metadata store remains authoritative",
				"episode_id", stored.ID,
				"error", err)
		}
	}

	return stored, nil
}

// Get returns an episode by ID, or ErrNotFound.
func (s *EpisodeService) Get(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	ep, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting episode: %w", err)
	}
	if ep == nil {
		return nil, fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	return ep, nil
}

// Delete removes an episode from both stores. Deleting an unknown ID is not
// an error; the returned bool reports whether a record was actually removed.
func (s *EpisodeService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.store.DeleteEpisode(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting episode: %w", err)
	}

	if err := s.index.DeleteEpisode(ctx, id); err != nil {
		increment(s.collector, metrics.CounterIndexFailures)
		slog.Warn("failed to delete episode from index",
			"episode_id", id,
			"error", err)
	}

	return deleted, nil
}

// UpdateFlags applies curation flag changes to an episode and mirrors the
// index-visible flags into the vector index metadata.
func (s *EpisodeService) UpdateFlags(ctx context.Context, id uuid.UUID, updates models.FlagUpdates) (*models.Episode, error) {
	updated, err := s.store.UpdateEpisodeFlags(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("updating episode flags: %w", err)
	}

	if updates.TouchesIndexedFlags() {
		if err := s.index.MirrorEpisodeFlags(ctx, id, updated.IsAntipattern, updated.IsCritical); err != nil {
			increment(s.collector, metrics.CounterIndexFailures)
			slog.Warn("failed to mirror episode flags into index",
				"episode_id", id,
				"error", err)
		}
	}

	return updated, nil
}

// ListByProject returns a project's episodes in reverse chronological order.
func (s *EpisodeService) ListByProject(ctx context.Context, project string, limit int) ([]models.Episode, error) {
	return s.Timeline(ctx, models.TimelineFilters{Project: project}, limit)
}

// Timeline returns episodes in reverse chronological order, filtered by
// project, type, and date range.
func (s *EpisodeService) Timeline(ctx context.Context, filters models.TimelineFilters, limit int) ([]models.Episode, error) {
	start := time.Now()
	defer recordTiming(s.collector, metrics.OpDBQuery, start)

	episodes, err := s.store.ListTimeline(ctx, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("listing timeline: %w", err)
	}
	return episodes, nil
}

func validateEpisode(ep *models.Episode) error {
	if ep == nil {
		return fmt.Errorf("%w: episode is nil", ErrInvalidInput)
	}
	if strings.TrimSpace(ep.Task) == "" {
		return fmt.Errorf("%w: task is required", ErrInvalidInput)
	}
	if strings.TrimSpace(ep.Context) == "" {
		return fmt.Errorf("%w: context is required", ErrInvalidInput)
	}
	if strings.TrimSpace(ep.Solution) == "" {
		return fmt.Errorf("%w: solution is required", ErrInvalidInput)
	}
	if !models.ValidEpisodeType(ep.EpisodeType) {
		return fmt.Errorf("%w: unknown episode type %q", ErrInvalidInput, ep.EpisodeType)
	}
	return nil
}
