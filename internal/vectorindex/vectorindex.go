// Package vectorindex wraps chromem-go as the embedded semantic search index.
//
// The index is a best-effort accelerator next to the authoritative metadata
// store: callers treat add/delete failures as degradation, not data loss, and
// the reconcile operation can rebuild missing entries at any time.
package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/memtwin/memtwin/internal/models"
)

const (
	episodeCollection = "episodes"
	metaCollection    = "meta_memories"
)

// Match is a single similarity hit from the index.
type Match struct {
	ID uuid.UUID
	// Similarity is cosine similarity in [-1, 1]; distance is 1 - Similarity.
	Similarity float32
	Embedding  []float32
	Metadata   map[string]string
}

// Index stores episode and meta-memory embeddings with their filterable
// metadata.
type Index struct {
	db       *chromem.DB
	episodes *chromem.Collection
	metas    *chromem.Collection
	logger   *slog.Logger
}

// New opens a persistent index in dir, or an in-memory one when dir is empty.
// Embeddings are always supplied by the caller, never computed by chromem.
func New(dir string, log *slog.Logger) (*Index, error) {
	if log == nil {
		log = slog.Default()
	}

	var db *chromem.DB
	var err error
	if dir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("open vector index: %w", err)
		}
	}

	episodes, err := db.GetOrCreateCollection(episodeCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create episode collection: %w", err)
	}
	metas, err := db.GetOrCreateCollection(metaCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create meta memory collection: %w", err)
	}

	return &Index{db: db, episodes: episodes, metas: metas, logger: log}, nil
}

// episodeMetadata builds the metadata stored with an episode document.
// chromem metadata values are strings with exact-match filtering, so tags
// are stored comma-joined and matched later against the metadata store.
func episodeMetadata(ep *models.Episode) map[string]string {
	return map[string]string{
		"project":     ep.ProjectName,
		"type":        string(ep.EpisodeType),
		"assistant":   ep.SourceAssistant,
		"tags":        strings.Join(ep.Tags, ","),
		"timestamp":   ep.Timestamp.Format(time.RFC3339),
		"antipattern": strconv.FormatBool(ep.IsAntipattern),
		"critical":    strconv.FormatBool(ep.IsCritical),
	}
}

// AddEpisode indexes an episode's embedding under its canonical text.
// Re-adding an existing ID replaces the previous document.
func (i *Index) AddEpisode(ctx context.Context, ep *models.Episode, embedding []float32) error {
	doc := chromem.Document{
		ID:        ep.ID.String(),
		Content:   ep.CanonicalText(),
		Embedding: embedding,
		Metadata:  episodeMetadata(ep),
	}
	if err := i.episodes.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("index episode: %w", err)
	}
	return nil
}

// QueryEpisodes returns up to n episodes by cosine similarity, honoring the
// project and type filters. n is clamped to the collection size.
func (i *Index) QueryEpisodes(ctx context.Context, embedding []float32, n int, filters models.SearchFilters) ([]Match, error) {
	where := map[string]string{}
	if filters.Project != "" {
		where["project"] = filters.Project
	}
	if filters.Type != "" {
		where["type"] = string(filters.Type)
	}
	return queryCollection(ctx, i.episodes, embedding, n, where)
}

// DeleteEpisode removes an episode from the index. Deleting an absent ID is
// a no-op.
func (i *Index) DeleteEpisode(ctx context.Context, id uuid.UUID) error {
	if err := i.episodes.Delete(ctx, nil, nil, id.String()); err != nil {
		return fmt.Errorf("delete episode from index: %w", err)
	}
	return nil
}

// MirrorEpisodeFlags rewrites the indexed flag metadata after a flag update,
// keeping the stored embedding and content.
func (i *Index) MirrorEpisodeFlags(ctx context.Context, id uuid.UUID, antipattern, critical bool) error {
	doc, err := i.episodes.GetByID(ctx, id.String())
	if err != nil {
		if isNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("mirror flags: %w", err)
	}

	doc.Metadata["antipattern"] = strconv.FormatBool(antipattern)
	doc.Metadata["critical"] = strconv.FormatBool(critical)

	if err := i.episodes.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("mirror flags: %w", err)
	}
	return nil
}

// HasEpisode reports whether an episode is present in the index.
func (i *Index) HasEpisode(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := i.episodes.GetByID(ctx, id.String())
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("check episode in index: %w", err)
	}
	return true, nil
}

// EpisodeEmbedding returns the stored embedding for an episode, or false if
// the episode is not indexed.
func (i *Index) EpisodeEmbedding(ctx context.Context, id uuid.UUID) ([]float32, bool, error) {
	doc, err := i.episodes.GetByID(ctx, id.String())
	if err != nil {
		if isNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get episode embedding: %w", err)
	}
	return doc.Embedding, true, nil
}

// CountEpisodes returns the number of indexed episodes.
func (i *Index) CountEpisodes() int {
	return i.episodes.Count()
}

// AddMetaMemory indexes a meta-memory under its pattern and summary text.
func (i *Index) AddMetaMemory(ctx context.Context, m *models.MetaMemory, embedding []float32) error {
	doc := chromem.Document{
		ID:        m.ID.String(),
		Content:   m.Pattern + "\n" + m.PatternSummary,
		Embedding: embedding,
		Metadata: map[string]string{
			"project": m.ProjectName,
		},
	}
	if err := i.metas.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("index meta memory: %w", err)
	}
	return nil
}

// QueryMetaMemories returns up to n meta-memories by cosine similarity.
func (i *Index) QueryMetaMemories(ctx context.Context, embedding []float32, n int, project string) ([]Match, error) {
	where := map[string]string{}
	if project != "" {
		where["project"] = project
	}
	return queryCollection(ctx, i.metas, embedding, n, where)
}

// CountMetaMemories returns the number of indexed meta-memories.
func (i *Index) CountMetaMemories() int {
	return i.metas.Count()
}

func queryCollection(ctx context.Context, col *chromem.Collection, embedding []float32, n int, where map[string]string) ([]Match, error) {
	// chromem requires nResults <= collection size
	if count := col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return []Match{}, nil
	}
	if len(where) == 0 {
		where = nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			// Skip anything that is not one of our documents.
			continue
		}
		matches = append(matches, Match{
			ID:         id,
			Similarity: r.Similarity,
			Embedding:  r.Embedding,
			Metadata:   r.Metadata,
		})
	}
	return matches, nil
}

func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}
