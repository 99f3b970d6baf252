// Package governance implements the vote-handling core of the dashboard:
// normalization of heterogeneous vote-count encodings, voting statistics,
// canonical proposal status resolution, and proposal type inference.
//
// Everything in this package is a pure function over proposal fields and the
// caller's clock. Malformed input is clamped or defaulted, never surfaced as
// an error: bad vote data from an upstream source must not take the
// dashboard down.
package governance

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// FixedPointDecimals is the token decimal scale used by DLOOP and every
// asset the DAO holds. Raw on-chain tallies arrive as integers scaled by
// 10^18.
const FixedPointDecimals = 18

// fixedPointDivisor is 10^18 as a big.Float, shared by all conversions.
var fixedPointDivisor = new(big.Float).SetInt(
	new(big.Int).Exp(big.NewInt(10), big.NewInt(FixedPointDecimals), nil),
)

// Field name aliases accepted for the two tallies, in priority order. The
// chain returns forVotes/againstVotes; older REST payloads use the rest.
var (
	forVoteAliases     = []string{"forVotes", "votesFor", "yesVotes", "for", "proYes"}
	againstVoteAliases = []string{"againstVotes", "votesAgainst", "noVotes", "against", "proNo"}
)

// VoteCounts holds normalized vote tallies in whole-token units.
type VoteCounts struct {
	ForVotes     float64
	AgainstVotes float64
}

// ExtractVoteCounts pulls the for/against tallies out of a loosely shaped
// payload. Each tally is searched under its accepted aliases in priority
// order; the first present field wins even if it fails to parse (a parse
// failure yields 0 for that tally, it does not fall through to the next
// alias). Both results are clamped to >= 0.
func ExtractVoteCounts(raw map[string]any) VoteCounts {
	return VoteCounts{
		ForVotes:     extractField(raw, forVoteAliases),
		AgainstVotes: extractField(raw, againstVoteAliases),
	}
}

func extractField(raw map[string]any, aliases []string) float64 {
	for _, name := range aliases {
		v, ok := raw[name]
		if !ok || v == nil {
			continue
		}
		n := NormalizeVoteValue(v)
		if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	}
	return 0
}

// fixedPointCutoff separates plain token amounts from raw 18-decimal
// fixed-point integers. No realistic tally reaches 10^15 whole tokens, and
// no fixed-point encoding of a nonzero tally is below it.
const fixedPointCutoff = 1e15

// NormalizeVoteValue converts a single vote-count value in any of its
// upstream representations into a plain decimal number of whole tokens.
// Values that are not already plain small numbers are treated as 18-decimal
// fixed point and divided by 10^18. Unparseable input yields 0.
func NormalizeVoteValue(v any) float64 {
	switch x := v.(type) {
	case float64:
		return scaleIfFixedPoint(x)
	case float32:
		return scaleIfFixedPoint(float64(x))
	case int:
		return scaleIfFixedPoint(float64(x))
	case int32:
		return scaleIfFixedPoint(float64(x))
	case int64:
		return scaleIfFixedPoint(float64(x))
	case uint64:
		return scaleIfFixedPoint(float64(x))
	case *big.Int:
		if x == nil {
			return 0
		}
		// Same cutoff rule as integer strings: a small big.Int is a plain
		// token amount, not a fixed-point encoding.
		f, _ := new(big.Float).SetInt(x).Float64()
		return scaleIfFixedPointBig(x, f)
	case string:
		return normalizeString(x)
	case fmt.Stringer:
		return normalizeString(x.String())
	default:
		return 0
	}
}

// normalizeString parses a decimal or fixed-point-integer string. Decimal
// strings ("1234.5") are token amounts as-is. Integer strings are token
// amounts when small and fixed-point when at or above the cutoff.
func normalizeString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	// A decimal point means the value is already in whole tokens; no
	// fixed-point encoding ever carries one.
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	}

	// Integer string. Parse with big.Int so 10^18-scaled values keep full
	// precision until after the division.
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0
	}
	f, _ := new(big.Float).SetInt(i).Float64()
	return scaleIfFixedPointBig(i, f)
}

func scaleIfFixedPoint(f float64) float64 {
	if math.Abs(f) >= fixedPointCutoff {
		return f / 1e18
	}
	return f
}

func scaleIfFixedPointBig(i *big.Int, approx float64) float64 {
	if math.Abs(approx) >= fixedPointCutoff {
		return fromFixedPoint(i)
	}
	return approx
}

// fromFixedPoint divides an 18-decimal fixed-point integer down to whole
// tokens.
func fromFixedPoint(i *big.Int) float64 {
	q := new(big.Float).Quo(new(big.Float).SetInt(i), fixedPointDivisor)
	f, _ := q.Float64()
	return f
}

// ToFixedPoint encodes a whole-token amount as an 18-decimal fixed-point
// integer, the representation governance transactions put on the wire.
func ToFixedPoint(tokens float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(tokens), fixedPointDivisor)
	i, _ := f.Int(nil)
	return i
}
