package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/memtwin/memtwin/internal/models"
)

// episodeRecord is the SurrealDB row shape for the episode table.
// IDs are stored as UUID strings inside the record id; embeddings live in
// the vector index only.
type episodeRecord struct {
	ID                surrealmodels.RecordID `json:"id"`
	Timestamp         time.Time              `json:"timestamp"`
	Task              string                 `json:"task"`
	Context           string                 `json:"context"`
	Reasoning         models.ReasoningTrace  `json:"reasoning"`
	Solution          string                 `json:"solution"`
	SolutionSummary   string                 `json:"solution_summary"`
	Outcome           *string                `json:"outcome,omitempty"`
	Success           bool                   `json:"success"`
	EpisodeType       string                 `json:"episode_type"`
	Tags              []string               `json:"tags"`
	FilesAffected     []string               `json:"files_affected"`
	LessonsLearned    []string               `json:"lessons_learned"`
	SourceAssistant   string                 `json:"source_assistant"`
	ProjectName       string                 `json:"project_name"`
	ImportanceScore   float64                `json:"importance_score"`
	AccessCount       int                    `json:"access_count"`
	LastAccessed      *time.Time             `json:"last_accessed,omitempty"`
	IsAntipattern     bool                   `json:"is_antipattern"`
	IsCritical        bool                   `json:"is_critical"`
	SupersededBy      *string                `json:"superseded_by,omitempty"`
	DeprecationReason *string                `json:"deprecation_reason,omitempty"`
}

// metaMemoryRecord is the SurrealDB row shape for the meta_memory table.
type metaMemoryRecord struct {
	ID               surrealmodels.RecordID `json:"id"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Pattern          string                 `json:"pattern"`
	PatternSummary   string                 `json:"pattern_summary"`
	Lessons          []string               `json:"lessons"`
	BestPractices    []string               `json:"best_practices"`
	Antipatterns     []string               `json:"antipatterns"`
	Exceptions       []string               `json:"exceptions"`
	EdgeCases        []string               `json:"edge_cases"`
	Contexts         []string               `json:"contexts"`
	Technologies     []string               `json:"technologies"`
	SourceEpisodeIDs []string               `json:"source_episode_ids"`
	EpisodeCount     int                    `json:"episode_count"`
	Confidence       float64                `json:"confidence"`
	CoherenceScore   float64                `json:"coherence_score"`
	ProjectName      string                 `json:"project_name"`
	Tags             []string               `json:"tags"`
	AccessCount      int                    `json:"access_count"`
	LastAccessed     *time.Time             `json:"last_accessed,omitempty"`
}

// recordUUID extracts the UUID from a SurrealDB record id.
func recordUUID(id surrealmodels.RecordID) (uuid.UUID, error) {
	s, ok := id.ID.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("unexpected record id type: %T (expected string)", id.ID)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse record id %q: %w", s, err)
	}
	return u, nil
}

func (r *episodeRecord) toModel() (models.Episode, error) {
	id, err := recordUUID(r.ID)
	if err != nil {
		return models.Episode{}, err
	}

	ep := models.Episode{
		ID:                id,
		Timestamp:         r.Timestamp,
		Task:              r.Task,
		Context:           r.Context,
		ReasoningTrace:    r.Reasoning,
		Solution:          r.Solution,
		SolutionSummary:   r.SolutionSummary,
		Outcome:           r.Outcome,
		Success:           r.Success,
		EpisodeType:       models.EpisodeType(r.EpisodeType),
		Tags:              r.Tags,
		FilesAffected:     r.FilesAffected,
		LessonsLearned:    r.LessonsLearned,
		SourceAssistant:   r.SourceAssistant,
		ProjectName:       r.ProjectName,
		ImportanceScore:   r.ImportanceScore,
		AccessCount:       r.AccessCount,
		LastAccessed:      r.LastAccessed,
		IsAntipattern:     r.IsAntipattern,
		IsCritical:        r.IsCritical,
		DeprecationReason: r.DeprecationReason,
	}

	if r.SupersededBy != nil {
		u, err := uuid.Parse(*r.SupersededBy)
		if err != nil {
			return models.Episode{}, fmt.Errorf("parse superseded_by %q: %w", *r.SupersededBy, err)
		}
		ep.SupersededBy = &u
	}

	return ep, nil
}

// episodeContent builds the CONTENT map for CREATE, without the record id.
func episodeContent(ep *models.Episode) map[string]any {
	content := map[string]any{
		"timestamp":        ep.Timestamp,
		"task":             ep.Task,
		"context":          ep.Context,
		"reasoning":        ep.ReasoningTrace,
		"solution":         ep.Solution,
		"solution_summary": ep.SolutionSummary,
		"success":          ep.Success,
		"episode_type":     string(ep.EpisodeType),
		"tags":             emptyIfNil(ep.Tags),
		"files_affected":   emptyIfNil(ep.FilesAffected),
		"lessons_learned":  emptyIfNil(ep.LessonsLearned),
		"source_assistant": ep.SourceAssistant,
		"project_name":     ep.ProjectName,
		"importance_score": ep.ImportanceScore,
		"access_count":     ep.AccessCount,
		"is_antipattern":   ep.IsAntipattern,
		"is_critical":      ep.IsCritical,
	}
	if ep.Outcome != nil {
		content["outcome"] = *ep.Outcome
	}
	if ep.LastAccessed != nil {
		content["last_accessed"] = *ep.LastAccessed
	}
	if ep.SupersededBy != nil {
		content["superseded_by"] = ep.SupersededBy.String()
	}
	if ep.DeprecationReason != nil {
		content["deprecation_reason"] = *ep.DeprecationReason
	}
	return content
}

func (r *metaMemoryRecord) toModel() (models.MetaMemory, error) {
	id, err := recordUUID(r.ID)
	if err != nil {
		return models.MetaMemory{}, err
	}

	sourceIDs := make([]uuid.UUID, 0, len(r.SourceEpisodeIDs))
	for _, s := range r.SourceEpisodeIDs {
		u, err := uuid.Parse(s)
		if err != nil {
			return models.MetaMemory{}, fmt.Errorf("parse source episode id %q: %w", s, err)
		}
		sourceIDs = append(sourceIDs, u)
	}

	return models.MetaMemory{
		ID:               id,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Pattern:          r.Pattern,
		PatternSummary:   r.PatternSummary,
		Lessons:          r.Lessons,
		BestPractices:    r.BestPractices,
		Antipatterns:     r.Antipatterns,
		Exceptions:       r.Exceptions,
		EdgeCases:        r.EdgeCases,
		Contexts:         r.Contexts,
		Technologies:     r.Technologies,
		SourceEpisodeIDs: sourceIDs,
		EpisodeCount:     r.EpisodeCount,
		Confidence:       r.Confidence,
		CoherenceScore:   r.CoherenceScore,
		ProjectName:      r.ProjectName,
		Tags:             r.Tags,
		AccessCount:      r.AccessCount,
		LastAccessed:     r.LastAccessed,
	}, nil
}

// metaMemoryContent builds the CONTENT map for CREATE, without the record id.
func metaMemoryContent(m *models.MetaMemory) map[string]any {
	sourceIDs := make([]string, 0, len(m.SourceEpisodeIDs))
	for _, u := range m.SourceEpisodeIDs {
		sourceIDs = append(sourceIDs, u.String())
	}

	content := map[string]any{
		"created_at":         m.CreatedAt,
		"updated_at":         m.UpdatedAt,
		"pattern":            m.Pattern,
		"pattern_summary":    m.PatternSummary,
		"lessons":            emptyIfNil(m.Lessons),
		"best_practices":     emptyIfNil(m.BestPractices),
		"antipatterns":       emptyIfNil(m.Antipatterns),
		"exceptions":         emptyIfNil(m.Exceptions),
		"edge_cases":         emptyIfNil(m.EdgeCases),
		"contexts":           emptyIfNil(m.Contexts),
		"technologies":       emptyIfNil(m.Technologies),
		"source_episode_ids": sourceIDs,
		"episode_count":      m.EpisodeCount,
		"confidence":         m.Confidence,
		"coherence_score":    m.CoherenceScore,
		"project_name":       m.ProjectName,
		"tags":               emptyIfNil(m.Tags),
		"access_count":       m.AccessCount,
	}
	if m.LastAccessed != nil {
		content["last_accessed"] = *m.LastAccessed
	}
	return content
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
