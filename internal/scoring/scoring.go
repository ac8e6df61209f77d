// Package scoring implements hybrid relevance ranking for episode retrieval.
//
// The final score combines semantic similarity with usage signals: frequently
// accessed episodes rank higher, critical episodes are boosted, antipatterns
// are heavily demoted but never hidden.
package scoring

import (
	"math"
	"time"

	"github.com/memtwin/memtwin/internal/models"
)

// Multipliers applied to the hybrid score based on episode flags.
const (
	CriticalBoost      = 1.5
	AntipatternPenalty = 0.3
	DefaultAccessBoost = 0.1
	DefaultDecayRate   = 0.01
)

// Scorer holds the ranking knobs. The zero value disables time decay and
// access reinforcement.
type Scorer struct {
	// AccessBoost is the per-access score increment.
	AccessBoost float64
	// DecayEnabled turns on exponential time decay. Off by default: old
	// knowledge stays fully relevant unless configured otherwise.
	DecayEnabled bool
	// DecayRate is the per-day decay constant when decay is enabled.
	DecayRate float64
}

// NewScorer builds a Scorer with the given knobs. Values are taken as given
// so a zero boost genuinely disables access reinforcement; configuration
// supplies the defaults. Negative values are clamped to zero.
func NewScorer(accessBoost float64, decayEnabled bool, decayRate float64) Scorer {
	if accessBoost < 0 {
		accessBoost = 0
	}
	if decayRate < 0 {
		decayRate = 0
	}
	return Scorer{
		AccessBoost:  accessBoost,
		DecayEnabled: decayEnabled,
		DecayRate:    decayRate,
	}
}

// SemanticScore converts a cosine distance in [0, 2] to a similarity score
// in [0, 1]. Negative results are clamped to 0.
func SemanticScore(distance float64) float64 {
	s := 1 - distance/2
	if s < 0 {
		return 0
	}
	return s
}

// Decay returns the time decay factor for an episode of the given age.
// Always 1.0 when decay is disabled.
func (s Scorer) Decay(age time.Duration) float64 {
	if !s.DecayEnabled {
		return 1.0
	}
	ageDays := age.Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-s.DecayRate * ageDays)
}

// Score computes the final hybrid score for an episode given its semantic
// similarity score and age at query time.
func (s Scorer) Score(ep *models.Episode, semanticScore float64, age time.Duration) float64 {
	score := semanticScore
	score *= s.Decay(age)
	score *= 1 + s.AccessBoost*float64(ep.AccessCount)
	score *= ep.ImportanceScore
	if ep.IsCritical {
		score *= CriticalBoost
	}
	if ep.IsAntipattern {
		score *= AntipatternPenalty
	}
	return score
}

// ShouldConsolidate applies the advisory consolidation trigger: either some
// episode has been accessed at least accessThreshold times, or at least
// unconsolidatedThreshold episodes are not yet covered by a meta-memory.
func ShouldConsolidate(maxAccessCount, unconsolidated, accessThreshold, unconsolidatedThreshold int) bool {
	return maxAccessCount >= accessThreshold || unconsolidated >= unconsolidatedThreshold
}

// EstimateUnconsolidated derives how many episodes remain unconsolidated
// from the total count and the sum of meta-memory episode counts. The
// estimate ignores overlap between clusters, so it is clamped at zero.
func EstimateUnconsolidated(totalEpisodes, sumMetaEpisodeCounts int) int {
	n := totalEpisodes - sumMetaEpisodeCounts
	if n < 0 {
		return 0
	}
	return n
}
