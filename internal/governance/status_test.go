package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dloopdao/governd/internal/domain"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func proposalEndingAt(end time.Time) domain.Proposal {
	return domain.Proposal{
		ID:         1,
		CreatedAt:  end.Add(-DefaultVotingPeriod),
		VotingEnds: &end,
	}
}

func TestResolveActiveBeforeDeadline(t *testing.T) {
	p := proposalEndingAt(testNow.Add(time.Hour))
	p.ForVotes = 1_000_000
	p.AgainstVotes = 0

	res := ResolveStatus(p, testNow)
	assert.Equal(t, domain.ProposalStatusActive, res.Status)
	assert.False(t, res.ReadyToExecute)
}

func TestResolvePassedAfterDeadline(t *testing.T) {
	p := proposalEndingAt(testNow.Add(-time.Minute))
	p.ForVotes = 150_000
	p.AgainstVotes = 20_000

	res := ResolveStatus(p, testNow)
	assert.Equal(t, domain.ProposalStatusPassed, res.Status)
	assert.True(t, res.ReadyToExecute)
}

func TestResolveTieFails(t *testing.T) {
	// Majority requires strictly more for-votes; a dead tie fails even at
	// quorum-clearing volume.
	p := proposalEndingAt(testNow.Add(-time.Minute))
	p.ForVotes = 100_000
	p.AgainstVotes = 100_000

	res := ResolveStatus(p, testNow)
	assert.Equal(t, domain.ProposalStatusFailed, res.Status)
	assert.False(t, res.ReadyToExecute)
}

func TestResolveQuorumBoundaryInclusive(t *testing.T) {
	p := proposalEndingAt(testNow.Add(-time.Minute))
	p.ForVotes = 100_000
	p.AgainstVotes = 0

	res := ResolveStatus(p, testNow)
	require.Equal(t, domain.ProposalStatusPassed, res.Status)
	assert.True(t, res.ReadyToExecute)
	assert.True(t, res.Stats.MeetsQuorum)
}

func TestResolveZeroVotesAfterDeadlineFails(t *testing.T) {
	p := proposalEndingAt(testNow.Add(-time.Minute))

	res := ResolveStatus(p, testNow)
	assert.Equal(t, domain.ProposalStatusFailed, res.Status)
}

func TestResolveBelowQuorumFails(t *testing.T) {
	p := proposalEndingAt(testNow.Add(-time.Minute))
	p.ForVotes = 50
	p.AgainstVotes = 10

	res := ResolveStatus(p, testNow)
	assert.Equal(t, domain.ProposalStatusFailed, res.Status)
	assert.False(t, res.ReadyToExecute)
}

func TestResolveExecutedAbsorbing(t *testing.T) {
	// Executed beats everything, including tallies that would otherwise
	// read as failed.
	p := proposalEndingAt(testNow.Add(-time.Minute))
	p.ForVotes = 0
	p.AgainstVotes = 500_000
	p.Executed = true

	res := ResolveStatus(p, testNow)
	assert.Equal(t, domain.ProposalStatusExecuted, res.Status)
	assert.False(t, res.ReadyToExecute)

	// Still executed while the clock says the vote is open.
	p2 := proposalEndingAt(testNow.Add(time.Hour))
	p2.Executed = true
	assert.Equal(t, domain.ProposalStatusExecuted, ResolveStatus(p2, testNow).Status)
}

func TestResolveCanceledIsFailed(t *testing.T) {
	p := proposalEndingAt(testNow.Add(time.Hour))
	p.ForVotes = 1_000_000
	p.Canceled = true

	res := ResolveStatus(p, testNow)
	assert.Equal(t, domain.ProposalStatusFailed, res.Status)
	assert.False(t, res.ReadyToExecute)
}

func TestResolveExecutedBeatsCanceled(t *testing.T) {
	p := proposalEndingAt(testNow.Add(-time.Minute))
	p.Executed = true
	p.Canceled = true

	assert.Equal(t, domain.ProposalStatusExecuted, ResolveStatus(p, testNow).Status)
}

func TestResolveIdempotent(t *testing.T) {
	p := proposalEndingAt(testNow.Add(-time.Minute))
	p.ForVotes = 150_000
	p.AgainstVotes = 149_999

	first := ResolveStatus(p, testNow)
	second := ResolveStatus(p, testNow)
	assert.Equal(t, first, second)
}

func TestResolveDerivedDeadline(t *testing.T) {
	// No explicit deadline: created-at plus the 3-day voting period.
	p := domain.Proposal{ID: 7, CreatedAt: testNow}
	p.ForVotes = 50
	p.AgainstVotes = 10

	deadline := testNow.Add(DefaultVotingPeriod)

	res := ResolveStatus(p, deadline.Add(-time.Second))
	assert.Equal(t, domain.ProposalStatusActive, res.Status)
	assert.Equal(t, deadline, res.Deadline)

	// One tick past the derived deadline with sub-quorum tallies: failed.
	res = ResolveStatus(p, deadline.Add(time.Second))
	assert.Equal(t, domain.ProposalStatusFailed, res.Status)
}

func TestResolveChainStateAuthoritative(t *testing.T) {
	cases := []struct {
		name  string
		state domain.ChainState
		want  domain.ProposalStatus
	}{
		{"executed enum", domain.ChainStateExecuted, domain.ProposalStatusExecuted},
		{"defeated enum", domain.ChainStateDefeated, domain.ProposalStatusFailed},
		{"expired enum", domain.ChainStateExpired, domain.ProposalStatusFailed},
		{"succeeded enum", domain.ChainStateSucceeded, domain.ProposalStatusPassed},
		{"queued enum", domain.ChainStateQueued, domain.ProposalStatusPassed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Deadline still in the future: the heuristic alone would say
			// active, the terminal enum overrides it.
			p := proposalEndingAt(testNow.Add(time.Hour))
			state := tc.state
			p.ChainState = &state

			assert.Equal(t, tc.want, ResolveStatus(p, testNow).Status)
		})
	}
}

func TestResolveNonTerminalChainStateFallsThrough(t *testing.T) {
	p := proposalEndingAt(testNow.Add(time.Hour))
	state := domain.ChainStateActive
	p.ChainState = &state

	assert.Equal(t, domain.ProposalStatusActive, ResolveStatus(p, testNow).Status)

	// After the deadline the heuristic takes over despite the stale enum.
	p2 := proposalEndingAt(testNow.Add(-time.Minute))
	p2.ChainState = &state
	p2.ForVotes = 200_000
	p2.AgainstVotes = 10

	assert.Equal(t, domain.ProposalStatusPassed, ResolveStatus(p2, testNow).Status)
}

func TestResolveSucceededEnumWithoutQuorumNotExecutable(t *testing.T) {
	// The enum can force a passed display status, but execution
	// eligibility is always recomputed from the tallies.
	p := proposalEndingAt(testNow.Add(-time.Minute))
	state := domain.ChainStateSucceeded
	p.ChainState = &state
	p.ForVotes = 10
	p.AgainstVotes = 1

	res := ResolveStatus(p, testNow)
	assert.Equal(t, domain.ProposalStatusPassed, res.Status)
	assert.False(t, res.ReadyToExecute)
}

func TestResolverCustomParameters(t *testing.T) {
	r := NewResolver(1000, 24*time.Hour)

	p := domain.Proposal{ID: 3, CreatedAt: testNow.Add(-25 * time.Hour)}
	p.ForVotes = 900
	p.AgainstVotes = 200

	res := r.Resolve(p, testNow)
	assert.Equal(t, domain.ProposalStatusPassed, res.Status)
	assert.True(t, res.ReadyToExecute)
}
