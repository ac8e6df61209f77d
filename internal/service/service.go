// Package service implements the episodic memory operations on top of the
// metadata store and the vector index.
//
// The metadata store is authoritative: its failures propagate to callers.
// The vector index is a best-effort accelerator: add, delete, and mirror
// failures are logged and counted, never surfaced, and the reconcile
// operation repairs the index afterwards.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/memtwin/memtwin/internal/db"
	"github.com/memtwin/memtwin/internal/metrics"
	"github.com/memtwin/memtwin/internal/models"
	"github.com/memtwin/memtwin/internal/vectorindex"
)

// ErrNotFound indicates the requested record does not exist.
// Aliased from the db package so callers only need one errors.Is target.
var ErrNotFound = db.ErrNotFound

// ErrInvalidInput indicates the caller supplied an episode or query that
// fails validation.
var ErrInvalidInput = errors.New("invalid input")

// EpisodeStore is the metadata-store surface used for episodes.
// Implemented by *db.Client.
type EpisodeStore interface {
	CreateEpisode(ctx context.Context, ep *models.Episode) (*models.Episode, error)
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	GetEpisodesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Episode, error)
	DeleteEpisode(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateEpisodeFlags(ctx context.Context, id uuid.UUID, updates models.FlagUpdates) (*models.Episode, error)
	UpdateEpisodeAccess(ctx context.Context, ids ...uuid.UUID) error
	ListRecentEpisodes(ctx context.Context, project string, limit int) ([]models.Episode, error)
	ListTimeline(ctx context.Context, filters models.TimelineFilters, limit int) ([]models.Episode, error)
	CountEpisodes(ctx context.Context, project string) (int, error)
	MaxAccessCount(ctx context.Context, project string) (int, error)
	CountHotEpisodes(ctx context.Context, project string, threshold int) (int, error)
	CountEpisodesByType(ctx context.Context, project string) ([]db.TypeCount, error)
	CountEpisodesByAssistant(ctx context.Context, project string) ([]db.AssistantCount, error)
}

// MetaMemoryStore is the metadata-store surface used for meta-memories.
// Implemented by *db.Client.
type MetaMemoryStore interface {
	CreateMetaMemory(ctx context.Context, m *models.MetaMemory) (*models.MetaMemory, error)
	GetMetaMemory(ctx context.Context, id uuid.UUID) (*models.MetaMemory, error)
	GetMetaMemoriesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.MetaMemory, error)
	ListMetaMemories(ctx context.Context, project string, limit int) ([]models.MetaMemory, error)
	UpdateMetaMemoryAccess(ctx context.Context, ids ...uuid.UUID) error
	SumMetaEpisodeCounts(ctx context.Context, project string) (int, error)
	CountMetaMemories(ctx context.Context, project string) (int, error)
}

// VectorIndex is the embedded similarity index surface.
// Implemented by *vectorindex.Index.
type VectorIndex interface {
	AddEpisode(ctx context.Context, ep *models.Episode, embedding []float32) error
	QueryEpisodes(ctx context.Context, embedding []float32, n int, filters models.SearchFilters) ([]vectorindex.Match, error)
	DeleteEpisode(ctx context.Context, id uuid.UUID) error
	MirrorEpisodeFlags(ctx context.Context, id uuid.UUID, antipattern, critical bool) error
	HasEpisode(ctx context.Context, id uuid.UUID) (bool, error)
	CountEpisodes() int
	AddMetaMemory(ctx context.Context, m *models.MetaMemory, embedding []float32) error
	QueryMetaMemories(ctx context.Context, embedding []float32, n int, project string) ([]vectorindex.Match, error)
	CountMetaMemories() int
}

// Embedder produces embedding vectors for text.
// Implemented by *llm.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// recordTiming is a nil-safe metrics helper shared by the services.
func recordTiming(collector *metrics.Collector, op string, start time.Time) {
	if collector != nil {
		collector.RecordTiming(op, time.Since(start))
	}
}

func increment(collector *metrics.Collector, counter string) {
	if collector != nil {
		collector.Increment(counter)
	}
}
