package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memtwin/memtwin/internal/metrics"
)

// ReconcileReport summarizes one reconcile pass.
type ReconcileReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// ReconcileService repairs the vector index against the metadata store.
// Episodes present in the store but missing from the index are re-embedded
// from their canonical text and re-added.
type ReconcileService struct {
	episodes  EpisodeStore
	index     VectorIndex
	embedder  Embedder
	collector *metrics.Collector
}

// NewReconcileService creates a reconcile service.
func NewReconcileService(episodes EpisodeStore, index VectorIndex, embedder Embedder, collector *metrics.Collector) *ReconcileService {
	return &ReconcileService{
		episodes:  episodes,
		index:     index,
		embedder:  embedder,
		collector: collector,
	}
}

// Reconcile walks up to limit recent episodes of a project and re-indexes
// any that the vector index lost. Individual repair failures are logged and
// counted; the pass keeps going.
func (s *ReconcileService) Reconcile(ctx context.Context, project string, limit int) (*ReconcileReport, error) {
	episodes, err := s.episodes.ListRecentEpisodes(ctx, project, limit)
	if err != nil {
		return nil, fmt.Errorf("listing episodes for reconcile: %w", err)
	}

	report := &ReconcileReport{Checked: len(episodes)}
	for i := range episodes {
		ep := &episodes[i]

		indexed, err := s.index.HasEpisode(ctx, ep.ID)
		if err != nil {
			report.Failed++
			slog.Warn("failed to check index membership", "episode_id", ep.ID, "error", err)
			continue
		}
		if indexed {
			continue
		}

		embedding, err := s.embedder.Embed(ctx, ep.CanonicalText())
		if err != nil {
			report.Failed++
			slog.Warn("failed to re-embed episode", "episode_id", ep.ID, "error", err)
			continue
		}
		if err := s.index.AddEpisode(ctx, ep, embedding); err != nil {
			report.Failed++
			increment(s.collector, metrics.CounterIndexFailures)
			slog.Warn("failed to re-index episode", "episode_id", ep.ID, "error", err)
			continue
		}

		report.Repaired++
		increment(s.collector, metrics.CounterIndexRepaired)
	}

	slog.Info("index reconcile finished",
		"project", project,
		"checked", report.Checked,
		"repaired", report.Repaired,
		"failed", report.Failed)

	return report, nil
}
