package governance

import "math"

// QuorumThreshold is the minimum total vote weight, in whole tokens, for a
// proposal's outcome to be binding. Operators can override it per deployment
// via config; the constant is the protocol default.
const QuorumThreshold = 100_000

// VotingStats is the display-ready breakdown of a proposal's tallies.
// All fields are finite; NaN inputs produce the zero value.
type VotingStats struct {
	TotalVotes        float64 `json:"total_votes"`
	ForPercentage     float64 `json:"for_percentage"`
	AgainstPercentage float64 `json:"against_percentage"`
	HasVotes          bool    `json:"has_votes"`
	MeetsQuorum       bool    `json:"meets_quorum"`
	QuorumProgress    float64 `json:"quorum_progress"`
}

// CalculateVotingStats computes VotingStats against the default quorum
// threshold.
func CalculateVotingStats(forVotes, againstVotes float64) VotingStats {
	return CalculateVotingStatsWithQuorum(forVotes, againstVotes, QuorumThreshold)
}

// CalculateVotingStatsWithQuorum computes percentages and quorum progress
// for the given tallies. A NaN or infinite tally yields the all-zero "no
// votes" result rather than propagating through the arithmetic.
func CalculateVotingStatsWithQuorum(forVotes, againstVotes, quorum float64) VotingStats {
	if !isFinite(forVotes) || !isFinite(againstVotes) {
		return VotingStats{}
	}
	if forVotes < 0 {
		forVotes = 0
	}
	if againstVotes < 0 {
		againstVotes = 0
	}

	total := forVotes + againstVotes
	stats := VotingStats{
		TotalVotes: total,
		HasVotes:   total > 0,
	}
	if total > 0 {
		stats.ForPercentage = round2(forVotes / total * 100)
		stats.AgainstPercentage = round2(againstVotes / total * 100)
	}
	if quorum > 0 {
		stats.MeetsQuorum = total >= quorum
		stats.QuorumProgress = round2(math.Min(total/quorum*100, 100))
	}
	return stats
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
