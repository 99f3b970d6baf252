package governance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateVotingStatsZeroVotes(t *testing.T) {
	stats := CalculateVotingStats(0, 0)
	assert.Equal(t, VotingStats{}, stats)
	assert.False(t, stats.HasVotes)
	assert.False(t, stats.MeetsQuorum)
}

func TestCalculateVotingStatsNaNClamp(t *testing.T) {
	// NaN from upstream misuse must not propagate into any output field.
	for _, stats := range []VotingStats{
		CalculateVotingStats(math.NaN(), 5),
		CalculateVotingStats(5, math.NaN()),
		CalculateVotingStats(math.NaN(), math.NaN()),
		CalculateVotingStats(math.Inf(1), 5),
	} {
		assert.Equal(t, VotingStats{}, stats)
	}
}

func TestCalculateVotingStatsPercentages(t *testing.T) {
	stats := CalculateVotingStats(75, 25)
	assert.Equal(t, 100.0, stats.TotalVotes)
	assert.Equal(t, 75.0, stats.ForPercentage)
	assert.Equal(t, 25.0, stats.AgainstPercentage)
	assert.True(t, stats.HasVotes)
	assert.False(t, stats.MeetsQuorum)
	assert.Equal(t, 0.1, stats.QuorumProgress)
}

func TestCalculateVotingStatsRounding(t *testing.T) {
	// 1/3 and 2/3 shares round to two decimal places.
	stats := CalculateVotingStats(1, 2)
	assert.Equal(t, 33.33, stats.ForPercentage)
	assert.Equal(t, 66.67, stats.AgainstPercentage)
}

func TestCalculateVotingStatsQuorumBoundary(t *testing.T) {
	// Quorum is inclusive: exactly 100000 total meets it.
	stats := CalculateVotingStats(QuorumThreshold, 0)
	assert.True(t, stats.MeetsQuorum)
	assert.Equal(t, 100.0, stats.QuorumProgress)

	stats = CalculateVotingStats(QuorumThreshold-1, 0)
	assert.False(t, stats.MeetsQuorum)
}

func TestCalculateVotingStatsQuorumProgressCapped(t *testing.T) {
	stats := CalculateVotingStats(500_000, 250_000)
	assert.Equal(t, 100.0, stats.QuorumProgress)
}

func TestCalculateVotingStatsNegativeClamp(t *testing.T) {
	stats := CalculateVotingStats(-10, 50)
	assert.Equal(t, 50.0, stats.TotalVotes)
	assert.Equal(t, 0.0, stats.ForPercentage)
	assert.Equal(t, 100.0, stats.AgainstPercentage)
}

func TestCalculateVotingStatsWithQuorumOverride(t *testing.T) {
	stats := CalculateVotingStatsWithQuorum(600, 400, 1000)
	assert.True(t, stats.MeetsQuorum)
	assert.Equal(t, 100.0, stats.QuorumProgress)
}
