package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dloopdao/governd/internal/domain"
)

func TestStatusCondUsesEffectiveDeadline(t *testing.T) {
	tests := []struct {
		status domain.ProposalStatus
		want   string
	}{
		{domain.ProposalStatusExecuted, "executed = TRUE"},
		{domain.ProposalStatusActive, "executed = FALSE AND canceled = FALSE AND " + deadlineExpr + " > NOW()"},
		{domain.ProposalStatusPassed, "executed = FALSE AND " + deadlineExpr + " <= NOW()"},
		{domain.ProposalStatusFailed, "executed = FALSE AND " + deadlineExpr + " <= NOW()"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCond(tt.status), "status %q", tt.status)
	}
}

func TestDeadlineExprCoversNullVotingEnds(t *testing.T) {
	// Proposals whose contract reported no deadline store voting_ends as
	// NULL; the deadline comparison must fall back to the default window
	// instead of evaluating to NULL and dropping the row.
	assert.Contains(t, deadlineExpr, "COALESCE(voting_ends")
	assert.Contains(t, deadlineExpr, "interval '3 days'")

	for _, status := range []domain.ProposalStatus{
		domain.ProposalStatusActive,
		domain.ProposalStatusPassed,
		domain.ProposalStatusFailed,
	} {
		cond := statusCond(status)
		assert.False(t, strings.Contains(strings.ReplaceAll(cond, deadlineExpr, ""), "voting_ends"),
			"status %q must compare the effective deadline, not raw voting_ends", status)
	}
}
