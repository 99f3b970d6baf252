package governance

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVoteValueEquivalentEncodings(t *testing.T) {
	// 1234.5 tokens in every representation upstream sources have produced.
	fixedPoint := new(big.Int)
	fixedPoint.SetString("1234500000000000000000", 10)

	cases := []struct {
		name string
		in   any
	}{
		{"plain float", 1234.5},
		{"decimal string", "1234.5"},
		{"fixed-point string", "1234500000000000000000"},
		{"big int", fixedPoint},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, 1234.5, NormalizeVoteValue(tc.in), 1e-9)
		})
	}
}

func TestNormalizeVoteValueMalformed(t *testing.T) {
	cases := []struct {
		name string
		in   any
	}{
		{"garbage string", "not a number"},
		{"empty string", ""},
		{"whitespace", "   "},
		{"nil", nil},
		{"unsupported type", map[string]any{"nested": true}},
		{"nil big int", (*big.Int)(nil)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Zero(t, NormalizeVoteValue(tc.in))
		})
	}
}

func TestNormalizeVoteValueIntegerKinds(t *testing.T) {
	assert.Equal(t, 500.0, NormalizeVoteValue(500))
	assert.Equal(t, 500.0, NormalizeVoteValue(int64(500)))
	assert.Equal(t, 500.0, NormalizeVoteValue(uint64(500)))
	assert.Equal(t, 500.0, NormalizeVoteValue("500"))
}

func TestNormalizeVoteValueSmallBigInt(t *testing.T) {
	// A big.Int below the cutoff is a plain token amount, exactly like the
	// equivalent integer string. Only at-or-above-cutoff values are scaled.
	assert.Equal(t, 500.0, NormalizeVoteValue(big.NewInt(500)))
	assert.Equal(t, NormalizeVoteValue("500"), NormalizeVoteValue(big.NewInt(500)))

	atCutoff := new(big.Int)
	atCutoff.SetString("1000000000000000000", 10) // 10^18, one whole token
	assert.InDelta(t, 1.0, NormalizeVoteValue(atCutoff), 1e-12)
}

func TestExtractVoteCountsAliasPriority(t *testing.T) {
	// forVotes outranks yesVotes; the first present alias wins.
	counts := ExtractVoteCounts(map[string]any{
		"forVotes":     "100",
		"yesVotes":     "999",
		"againstVotes": 40.0,
	})
	require.Equal(t, 100.0, counts.ForVotes)
	require.Equal(t, 40.0, counts.AgainstVotes)
}

func TestExtractVoteCountsFallbackAliases(t *testing.T) {
	counts := ExtractVoteCounts(map[string]any{
		"votesFor": "250000000000000000000", // 250 tokens fixed point
		"noVotes":  "75",
	})
	assert.InDelta(t, 250.0, counts.ForVotes, 1e-9)
	assert.Equal(t, 75.0, counts.AgainstVotes)
}

func TestExtractVoteCountsMissingAndMalformed(t *testing.T) {
	// Missing fields and parse failures both contribute zero; nothing
	// panics and nothing goes negative.
	counts := ExtractVoteCounts(map[string]any{
		"forVotes": "corrupted!!",
	})
	assert.Zero(t, counts.ForVotes)
	assert.Zero(t, counts.AgainstVotes)

	counts = ExtractVoteCounts(map[string]any{
		"forVotes":     "-50",
		"againstVotes": nil,
	})
	assert.Zero(t, counts.ForVotes)
	assert.Zero(t, counts.AgainstVotes)
}

func TestToFixedPointRoundTrip(t *testing.T) {
	for _, tokens := range []float64{0, 1, 1234.5, 100000} {
		enc := ToFixedPoint(tokens)
		assert.InDelta(t, tokens, NormalizeVoteValue(enc), 1e-6)
	}
}
