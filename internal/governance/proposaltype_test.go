package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dloopdao/governd/internal/domain"
)

func TestInferProposalTypeEnumWins(t *testing.T) {
	// An unambiguous contract enum is trusted even when the text says the
	// opposite.
	got := InferProposalType(1, "Invest in WBTC", "buy more WBTC for the treasury")
	assert.Equal(t, domain.ProposalTypeDivest, got)

	got = InferProposalType("invest", "Sell all USDC", "liquidate the position")
	assert.Equal(t, domain.ProposalTypeInvest, got)
}

func TestInferProposalTypeEnumKinds(t *testing.T) {
	assert.Equal(t, domain.ProposalTypeInvest, InferProposalType(0, "", ""))
	assert.Equal(t, domain.ProposalTypeDivest, InferProposalType(int64(1), "", ""))
	assert.Equal(t, domain.ProposalTypeDivest, InferProposalType(uint8(1), "", ""))
	assert.Equal(t, domain.ProposalTypeInvest, InferProposalType(float64(0), "", ""))
	assert.Equal(t, domain.ProposalTypeDivest, InferProposalType("1", "", ""))
	assert.Equal(t, domain.ProposalTypeInvest, InferProposalType(" Invest ", "", ""))
}

func TestInferProposalTypeContentFallback(t *testing.T) {
	cases := []struct {
		title string
		desc  string
		want  domain.ProposalType
	}{
		{"Liquidate ETH position", "", domain.ProposalTypeDivest},
		{"Sell 500 LINK", "reduce exposure before the unlock", domain.ProposalTypeDivest},
		{"Acquire stETH", "purchase 100 stETH for yield", domain.ProposalTypeInvest},
		{"Allocate 5% to WBTC", "", domain.ProposalTypeInvest},
	}

	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.want, InferProposalType(nil, tc.title, tc.desc))
		})
	}
}

func TestInferProposalTypeUnrecognizedEnumFallsBack(t *testing.T) {
	// Out-of-range ordinals and junk strings drop through to content.
	assert.Equal(t, domain.ProposalTypeDivest, InferProposalType(7, "Sell the DAI", ""))
	assert.Equal(t, domain.ProposalTypeDivest, InferProposalType("param-change", "Exit the AAVE position", ""))
}

func TestInferProposalTypeDefault(t *testing.T) {
	assert.Equal(t, domain.ProposalTypeInvest, InferProposalType(nil, "Quarterly report", "nothing actionable here"))
}
