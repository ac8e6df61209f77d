package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceForClusterSize(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{3, 0.8},
		{4, 0.9},
		{5, 0.95},
		{20, 0.95},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ConfidenceForClusterSize(tt.n), 1e-9, "n=%d", tt.n)
	}
}

func TestCommonTags(t *testing.T) {
	tagged := func(tags ...string) Episode {
		ep := NewEpisode()
		ep.Tags = tags
		return ep
	}

	episodes := []Episode{
		tagged("retry", "websocket"),
		tagged("retry", "backoff"),
		tagged("retry", "websocket"),
		tagged("cache"),
	}

	// Threshold is half of the cluster: retry in 3/4, websocket in 2/4,
	// backoff and cache in 1/4.
	assert.Equal(t, []string{"retry", "websocket"}, CommonTags(episodes))

	assert.Nil(t, CommonTags(nil))
	assert.Nil(t, CommonTags([]Episode{tagged()}))
}
