package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/memtwin/memtwin/internal/llm"
	"github.com/memtwin/memtwin/internal/metrics"
	"github.com/memtwin/memtwin/internal/models"
)

// Structurer turns free-form reasoning text into a structured episode.
// Implemented by *llm.Model.
type Structurer interface {
	StructureThought(ctx context.Context, in llm.CaptureInput) (*models.Episode, error)
}

// CaptureService structures raw reasoning text into an episode and stores
// it.
type CaptureService struct {
	structurer Structurer
	episodes   *EpisodeService
	collector  *metrics.Collector
}

// NewCaptureService creates a capture service.
func NewCaptureService(structurer Structurer, episodes *EpisodeService, collector *metrics.Collector) *CaptureService {
	return &CaptureService{
		structurer: structurer,
		episodes:   episodes,
		collector:  collector,
	}
}

// CaptureRequest is the raw material for one captured episode. Project and
// assistant identify where the reasoning happened; they override whatever
// the structuring model guesses.
type CaptureRequest struct {
	RawText     string
	UserPrompt  string
	CodeChanges string
	Project     string
	Assistant   string
	Tags        []string
}

// Capture structures the raw text into an episode and persists it.
func (s *CaptureService) Capture(ctx context.Context, req CaptureRequest) (*models.Episode, error) {
	if strings.TrimSpace(req.RawText) == "" {
		return nil, fmt.Errorf("%w: raw text is required", ErrInvalidInput)
	}

	start := time.Now()
	ep, err := s.structurer.StructureThought(ctx, llm.CaptureInput{
		RawText:     req.RawText,
		UserPrompt:  req.UserPrompt,
		CodeChanges: req.CodeChanges,
	})
	if err != nil {
		return nil, fmt.Errorf("structuring capture: %w", err)
	}
	recordTiming(s.collector, metrics.OpStructure, start)

	if req.Project != "" {
		ep.ProjectName = req.Project
	}
	if req.Assistant != "" {
		ep.SourceAssistant = req.Assistant
	}
	ep.Tags = mergeTags(ep.Tags, req.Tags)

	// Structured output sometimes omits the solution, for example when the
	// reasoning trails off before a change was made. Store the episode
	// anyway rather than losing the capture.
	if strings.TrimSpace(ep.Solution) == "" {
		ep.Solution = "Unspecified solution"
	}

	return s.episodes.Store(ctx, ep)
}

// StoreStructured persists an episode the caller already structured.
func (s *CaptureService) StoreStructured(ctx context.Context, ep *models.Episode) (*models.Episode, error) {
	return s.episodes.Store(ctx, ep)
}

func mergeTags(existing, extra []string) []string {
	if len(extra) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(extra))
	for _, t := range existing {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range extra {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}
