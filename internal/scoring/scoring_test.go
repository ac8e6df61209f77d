package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memtwin/memtwin/internal/models"
)

func baseEpisode() models.Episode {
	ep := models.NewEpisode()
	ep.Task = "t"
	ep.Context = "c"
	return ep
}

func TestSemanticScore(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"identical", 0, 1},
		{"orthogonal", 1, 0.5},
		{"opposite", 2, 0},
		{"beyond range clamps to zero", 2.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SemanticScore(tt.distance), 1e-9)
		})
	}
}

func TestScoreNeutralEpisode(t *testing.T) {
	s := NewScorer(0.1, false, 0)
	ep := baseEpisode()

	// Fresh episode with no signals scores exactly its semantic score
	assert.InDelta(t, 0.8, s.Score(&ep, 0.8, 0), 1e-9)
}

func TestScoreAccessBoost(t *testing.T) {
	s := NewScorer(0.1, false, 0)

	ep := baseEpisode()
	cold := s.Score(&ep, 0.8, 0)

	ep.AccessCount = 5
	warm := s.Score(&ep, 0.8, 0)

	assert.InDelta(t, cold*1.5, warm, 1e-9)
	assert.Greater(t, warm, cold)
}

func TestNewScorerZeroBoostDisablesReinforcement(t *testing.T) {
	s := NewScorer(0, false, 0)

	ep := baseEpisode()
	cold := s.Score(&ep, 0.8, 0)
	ep.AccessCount = 50
	assert.InDelta(t, cold, s.Score(&ep, 0.8, 0), 1e-9)

	// Negative knobs clamp to zero.
	neg := NewScorer(-1, false, -1)
	assert.Equal(t, 0.0, neg.AccessBoost)
	assert.Equal(t, 0.0, neg.DecayRate)
}

func TestScoreCriticalAndAntipattern(t *testing.T) {
	s := NewScorer(0.1, false, 0)

	ep := baseEpisode()
	neutral := s.Score(&ep, 0.6, 0)

	ep.IsCritical = true
	assert.InDelta(t, neutral*1.5, s.Score(&ep, 0.6, 0), 1e-9)

	ep.IsCritical = false
	ep.IsAntipattern = true
	demoted := s.Score(&ep, 0.6, 0)
	assert.InDelta(t, neutral*0.3, demoted, 1e-9)

	// Demoted but never zeroed out
	assert.Greater(t, demoted, 0.0)

	// Both flags multiply independently
	ep.IsCritical = true
	assert.InDelta(t, neutral*1.5*0.3, s.Score(&ep, 0.6, 0), 1e-9)
}

func TestScoreImportance(t *testing.T) {
	s := NewScorer(0.1, false, 0)

	ep := baseEpisode()
	ep.ImportanceScore = 2.0
	assert.InDelta(t, 1.2, s.Score(&ep, 0.6, 0), 1e-9)
}

func TestDecayDisabledByDefault(t *testing.T) {
	s := NewScorer(0.1, false, 0.01)

	ep := baseEpisode()
	year := 365 * 24 * time.Hour
	assert.InDelta(t, s.Score(&ep, 0.7, 0), s.Score(&ep, 0.7, year), 1e-9)
	assert.InDelta(t, 1.0, s.Decay(year), 1e-9)
}

func TestDecayEnabled(t *testing.T) {
	s := NewScorer(0.1, true, 0.01)

	day := 24 * time.Hour
	assert.InDelta(t, 1.0, s.Decay(0), 1e-9)
	assert.Less(t, s.Decay(100*day), s.Decay(10*day))

	// Clock skew must not inflate scores
	assert.InDelta(t, 1.0, s.Decay(-time.Hour), 1e-9)

	ep := baseEpisode()
	fresh := s.Score(&ep, 0.7, 0)
	old := s.Score(&ep, 0.7, 100*day)
	assert.Less(t, old, fresh)
}

func TestShouldConsolidate(t *testing.T) {
	tests := []struct {
		name           string
		maxAccess      int
		unconsolidated int
		want           bool
	}{
		{"neither threshold met", 3, 5, false},
		{"access threshold met", 10, 0, true},
		{"unconsolidated threshold met", 0, 20, true},
		{"both met", 15, 30, true},
		{"just below both", 9, 19, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldConsolidate(tt.maxAccess, tt.unconsolidated, 10, 20)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateUnconsolidated(t *testing.T) {
	assert.Equal(t, 15, EstimateUnconsolidated(40, 25))
	assert.Equal(t, 0, EstimateUnconsolidated(10, 10))
	// Overlapping clusters can overcount; clamp at zero
	assert.Equal(t, 0, EstimateUnconsolidated(10, 25))
}
