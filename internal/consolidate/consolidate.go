// Package consolidate clusters related episodes and synthesizes them into
// meta-memories. Consolidation is additive: source episodes are never
// modified or deleted, and a failed run leaves whatever it managed to
// create.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/memtwin/memtwin/internal/cluster"
	"github.com/memtwin/memtwin/internal/llm"
	"github.com/memtwin/memtwin/internal/metrics"
	"github.com/memtwin/memtwin/internal/models"
)

// Defaults for the clustering knobs.
const (
	DefaultMinClusterSize    = 3
	DefaultMaxClusterSize    = 20
	DefaultEps               = 0.5
	DefaultMaxEpisodesPerRun = 200
	DefaultTimeout           = 120 * time.Second
)

// EpisodeSource lists candidate episodes for a run.
// Implemented by *db.Client.
type EpisodeSource interface {
	ListRecentEpisodes(ctx context.Context, project string, limit int) ([]models.Episode, error)
}

// MetaMemoryWriter persists synthesized meta-memories.
// Implemented by *db.Client.
type MetaMemoryWriter interface {
	CreateMetaMemory(ctx context.Context, m *models.MetaMemory) (*models.MetaMemory, error)
}

// VectorIndex supplies stored episode embeddings and indexes new
// meta-memories. Implemented by *vectorindex.Index.
type VectorIndex interface {
	EpisodeEmbedding(ctx context.Context, id uuid.UUID) ([]float32, bool, error)
	AddMetaMemory(ctx context.Context, m *models.MetaMemory, embedding []float32) error
}

// Synthesizer turns an episode cluster into a pattern description.
// Implemented by *llm.Model.
type Synthesizer interface {
	SynthesizeCluster(ctx context.Context, episodes []models.Episode) (*llm.SynthesisResult, error)
}

// Embedder embeds meta-memory text for indexing.
// Implemented by *llm.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options are the clustering and run knobs. Zero values fall back to the
// defaults above.
type Options struct {
	MinClusterSize    int
	MaxClusterSize    int
	Eps               float64
	MaxEpisodesPerRun int
	Timeout           time.Duration
}

func (o Options) withDefaults() Options {
	if o.MinClusterSize <= 0 {
		o.MinClusterSize = DefaultMinClusterSize
	}
	if o.MaxClusterSize <= 0 {
		o.MaxClusterSize = DefaultMaxClusterSize
	}
	if o.Eps <= 0 {
		o.Eps = DefaultEps
	}
	if o.MaxEpisodesPerRun <= 0 {
		o.MaxEpisodesPerRun = DefaultMaxEpisodesPerRun
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Report summarizes one consolidation run.
type Report struct {
	EpisodesExamined    int                 `json:"episodes_examined"`
	EpisodesClusterable int                 `json:"episodes_clusterable"`
	ClustersFound       int                 `json:"clusters_found"`
	ClustersSkipped     int                 `json:"clusters_skipped"`
	MetaMemories        []models.MetaMemory `json:"meta_memories"`
}

// Consolidator runs the cluster-and-synthesize pipeline.
type Consolidator struct {
	source      EpisodeSource
	writer      MetaMemoryWriter
	index       VectorIndex
	synthesizer Synthesizer
	embedder    Embedder
	collector   *metrics.Collector
	opts        Options
}

// New creates a consolidator.
func New(source EpisodeSource, writer MetaMemoryWriter, index VectorIndex, synthesizer Synthesizer, embedder Embedder, collector *metrics.Collector, opts Options) *Consolidator {
	return &Consolidator{
		source:      source,
		writer:      writer,
		index:       index,
		synthesizer: synthesizer,
		embedder:    embedder,
		collector:   collector,
		opts:        opts.withDefaults(),
	}
}

// Run consolidates one project. minClusterSize overrides the configured
// minimum for this run when positive. A cluster whose synthesis fails is
// skipped and the run continues; a fatal API error or the run timeout aborts
// the run, keeping the meta-memories created so far.
func (c *Consolidator) Run(ctx context.Context, project string, minClusterSize int) (*Report, error) {
	if minClusterSize <= 0 {
		minClusterSize = c.opts.MinClusterSize
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	defer c.recordTiming(metrics.OpConsolidation, start)

	episodes, err := c.source.ListRecentEpisodes(ctx, project, c.opts.MaxEpisodesPerRun)
	if err != nil {
		return nil, fmt.Errorf("listing episodes: %w", err)
	}

	report := &Report{EpisodesExamined: len(episodes)}
	if len(episodes) < minClusterSize {
		return report, nil
	}

	clusterable, points, err := c.collectEmbeddings(ctx, episodes)
	if err != nil {
		return nil, err
	}
	report.EpisodesClusterable = len(clusterable)
	if len(clusterable) < minClusterSize {
		return report, nil
	}

	cluster.NormalizeAll(points)
	labels := cluster.DBSCAN(points, c.opts.Eps, minClusterSize)
	groups := cluster.Groups(labels)
	report.ClustersFound = len(groups)

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("consolidation run interrupted: %w", err)
		}

		members := make([]models.Episode, len(group))
		for i, idx := range group {
			members[i] = clusterable[idx]
		}
		members = capCluster(members, c.opts.MaxClusterSize)

		meta, err := c.buildMetaMemory(ctx, project, members)
		if err != nil {
			// A broken provider fails every remaining cluster the same
			// way, so give up immediately. Anything else (malformed
			// output, transient provider errors) is isolated per cluster.
			if errors.Is(err, llm.ErrFatalAPI) {
				return report, err
			}
			report.ClustersSkipped++
			c.increment(metrics.CounterClustersSkipped)
			slog.Warn("skipping cluster after synthesis failure",
				"project", project,
				"cluster_size", len(members),
				"error", err)
			continue
		}

		stored, err := c.writer.CreateMetaMemory(ctx, meta)
		if err != nil {
			return report, fmt.Errorf("storing meta-memory: %w", err)
		}
		c.indexMetaMemory(ctx, stored)

		report.MetaMemories = append(report.MetaMemories, *stored)
	}

	slog.Info("consolidation run finished",
		"project", project,
		"examined", report.EpisodesExamined,
		"clusters", report.ClustersFound,
		"skipped", report.ClustersSkipped,
		"created", len(report.MetaMemories))

	return report, nil
}

// collectEmbeddings pairs each episode with its stored vector. Episodes the
// index lost are left out of clustering; reconcile repairs them separately.
func (c *Consolidator) collectEmbeddings(ctx context.Context, episodes []models.Episode) ([]models.Episode, [][]float64, error) {
	clusterable := make([]models.Episode, 0, len(episodes))
	points := make([][]float64, 0, len(episodes))
	for _, ep := range episodes {
		embedding, ok, err := c.index.EpisodeEmbedding(ctx, ep.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("reading embedding for episode %s: %w", ep.ID, err)
		}
		if !ok {
			slog.Warn("episode missing from index, excluded from clustering", "episode_id", ep.ID)
			continue
		}
		point := make([]float64, len(embedding))
		for i, v := range embedding {
			point[i] = float64(v)
		}
		clusterable = append(clusterable, ep)
		points = append(points, point)
	}
	return clusterable, points, nil
}

// buildMetaMemory synthesizes one cluster into an unstored meta-memory.
func (c *Consolidator) buildMetaMemory(ctx context.Context, project string, members []models.Episode) (*models.MetaMemory, error) {
	synthStart := time.Now()
	result, err := c.synthesizer.SynthesizeCluster(ctx, members)
	if err != nil {
		return nil, fmt.Errorf("synthesizing cluster: %w", err)
	}
	c.recordTiming(metrics.OpSynthesis, synthStart)

	now := time.Now().UTC()
	ids := make([]uuid.UUID, len(members))
	for i, ep := range members {
		ids[i] = ep.ID
	}

	meta := &models.MetaMemory{
		ID:               uuid.New(),
		CreatedAt:        now,
		UpdatedAt:        now,
		Pattern:          result.Pattern,
		PatternSummary:   result.PatternSummary,
		Lessons:          result.Lessons,
		BestPractices:    result.BestPractices,
		Antipatterns:     result.Antipatterns,
		Exceptions:       result.Exceptions,
		EdgeCases:        result.EdgeCases,
		Contexts:         result.Contexts,
		Technologies:     result.Technologies,
		SourceEpisodeIDs: ids,
		EpisodeCount:     len(members),
		Confidence:       models.ConfidenceForClusterSize(len(members)),
		CoherenceScore:   clamp01(result.CoherenceScore),
		ProjectName:      project,
		Tags:             models.CommonTags(members),
	}

	return meta, nil
}

// indexMetaMemory adds the new meta-memory to the vector index. Best
// effort: the metadata store already holds the record.
func (c *Consolidator) indexMetaMemory(ctx context.Context, meta *models.MetaMemory) {
	embedding, err := c.embedder.Embed(ctx, meta.Pattern+"\n"+meta.PatternSummary)
	if err != nil {
		c.increment(metrics.CounterIndexFailures)
		slog.Warn("failed to embed meta-memory", "meta_memory_id", meta.ID, "error", err)
		return
	}
	if err := c.index.AddMetaMemory(ctx, meta, embedding); err != nil {
		c.increment(metrics.CounterIndexFailures)
		slog.Warn("failed to index meta-memory", "meta_memory_id", meta.ID, "error", err)
	}
}

// capCluster keeps the most recent n episodes of an oversized cluster.
func capCluster(members []models.Episode, n int) []models.Episode {
	if len(members) <= n {
		return members
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Timestamp.After(members[j].Timestamp)
	})
	return members[:n]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (c *Consolidator) recordTiming(op string, start time.Time) {
	if c.collector != nil {
		c.collector.RecordTiming(op, time.Since(start))
	}
}

func (c *Consolidator) increment(counter string) {
	if c.collector != nil {
		c.collector.Increment(counter)
	}
}
