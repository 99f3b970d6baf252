package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrVotingClosed     = errors.New("voting period has ended")
	ErrAlreadyVoted     = errors.New("address already voted on proposal")
	ErrNotExecutable    = errors.New("proposal is not ready to execute")
	ErrProposalFinal    = errors.New("proposal is in a terminal state")
	ErrSigningFailed    = errors.New("signing failed")
	ErrChainUnavailable = errors.New("chain endpoint unavailable")
	ErrContextDone      = errors.New("context cancelled")
	ErrLockHeld         = errors.New("lock already held")
)
