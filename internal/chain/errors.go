package chain

import (
	"context"
	"errors"
	"strings"

	"github.com/dloopdao/governd/internal/domain"
)

// revertReasons maps known AssetDAO revert-reason substrings to both a
// sentinel error and the message shown to dashboard users. Matching is
// substring-based because nodes wrap revert data inconsistently.
var revertReasons = []struct {
	substr   string
	sentinel error
	message  string
}{
	{"AlreadyVoted", domain.ErrAlreadyVoted, "You have already voted on this proposal."},
	{"already voted", domain.ErrAlreadyVoted, "You have already voted on this proposal."},
	{"VotingEnded", domain.ErrVotingClosed, "The voting period for this proposal has ended."},
	{"voting period", domain.ErrVotingClosed, "The voting period for this proposal has ended."},
	{"NotExecutable", domain.ErrNotExecutable, "This proposal cannot be executed yet."},
	{"QuorumNotReached", domain.ErrNotExecutable, "This proposal has not reached quorum."},
	{"ProposalExecuted", domain.ErrProposalFinal, "This proposal has already been executed."},
	{"ProposalCanceled", domain.ErrProposalFinal, "This proposal has been canceled."},
	{"NotProposer", domain.ErrUnauthorized, "Only the proposer can cancel this proposal."},
	{"InsufficientBalance", domain.ErrUnauthorized, "Your voting weight is zero."},
	{"user rejected", domain.ErrUnauthorized, "The transaction was rejected by the signer."},
	{"insufficient funds", domain.ErrUnauthorized, "The signer account cannot cover gas for this transaction."},
}

// transientMarkers identify infrastructure failures worth retrying. Anything
// that looks like the contract itself rejecting the call is terminal.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"i/o timeout",
	"timeout",
	"EOF",
	"429",
	"too many requests",
	"502",
	"503",
	"no suitable peers",
	"getaddrinfo",
}

var contractMarkers = []string{
	"execution reverted",
	"invalid opcode",
	"out of gas",
	"nonce too low",
	"replacement transaction underpriced",
	"abi:",
}

// MapRevert wraps err with the domain sentinel matching its revert reason,
// if any is recognized. Unrecognized errors come back unchanged.
func MapRevert(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, r := range revertReasons {
		if strings.Contains(msg, r.substr) {
			return errors.Join(r.sentinel, err)
		}
	}
	return err
}

// HumanMessage renders err as a message suitable for a dashboard
// notification. Unknown errors get a generic fallback rather than leaking
// raw node output at users.
func HumanMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, r := range revertReasons {
		if strings.Contains(msg, r.substr) {
			return r.message
		}
	}
	if IsTransient(err) {
		return "The network is temporarily unavailable. Please try again."
	}
	return "The transaction could not be completed."
}

// IsTransient reports whether err looks like an infrastructure failure that
// a retry might clear. Contract and ABI errors are never transient: the same
// call will revert the same way. The classification is a substring
// heuristic, not a structural guarantee.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	for _, m := range contractMarkers {
		if strings.Contains(msg, m) {
			return false
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return errors.Is(err, domain.ErrChainUnavailable)
}
