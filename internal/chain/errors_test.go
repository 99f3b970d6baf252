package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dloopdao/governd/internal/domain"
)

func TestMapRevertKnownReasons(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{"execution reverted: AlreadyVoted(12)", domain.ErrAlreadyVoted},
		{"execution reverted: VotingEnded", domain.ErrVotingClosed},
		{"execution reverted: QuorumNotReached", domain.ErrNotExecutable},
		{"execution reverted: ProposalExecuted", domain.ErrProposalFinal},
		{"execution reverted: NotProposer", domain.ErrUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			mapped := MapRevert(errors.New(tc.raw))
			assert.ErrorIs(t, mapped, tc.want)
			// The original node output stays reachable for logging.
			assert.Contains(t, mapped.Error(), tc.raw)
		})
	}
}

func TestMapRevertUnknownPassesThrough(t *testing.T) {
	err := errors.New("execution reverted: SomethingNovel")
	assert.Equal(t, err, MapRevert(err))
	assert.NoError(t, MapRevert(nil))
}

func TestHumanMessage(t *testing.T) {
	assert.Equal(t,
		"You have already voted on this proposal.",
		HumanMessage(errors.New("execution reverted: AlreadyVoted")),
	)
	assert.Equal(t,
		"The network is temporarily unavailable. Please try again.",
		HumanMessage(errors.New("dial tcp: connection refused")),
	)
	// Unknown failures never leak raw node output.
	msg := HumanMessage(errors.New("some internal geth detail 0xdeadbeef"))
	assert.Equal(t, "The transaction could not be completed.", msg)
	assert.Empty(t, HumanMessage(nil))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("dial tcp 1.2.3.4:8545: connection refused")))
	assert.True(t, IsTransient(errors.New("429 too many requests")))
	assert.True(t, IsTransient(errors.New("unexpected EOF")))
	assert.True(t, IsTransient(fmt.Errorf("rpc: %w", domain.ErrChainUnavailable)))

	// Contract failures retry-loop forever if misclassified.
	assert.False(t, IsTransient(errors.New("execution reverted: AlreadyVoted")))
	assert.False(t, IsTransient(errors.New("abi: cannot unmarshal")))
	assert.False(t, IsTransient(errors.New("invalid opcode: opcode 0xfe not defined")))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.Canceled))

	// "execution reverted ... timeout" is still a contract error; the
	// contract marker wins over the transient marker.
	assert.False(t, IsTransient(errors.New("execution reverted: timeout exceeded in callback")))
}
