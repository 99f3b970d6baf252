package governance

import (
	"regexp"
	"strings"

	"github.com/dloopdao/governd/internal/domain"
)

// Content patterns used when the contract enum is absent or unrecognized.
// Best-effort only: false positives are acceptable, the type never gates a
// governance action.
var (
	divestPattern = regexp.MustCompile(`(?i)\b(divest|sell|sale|liquidat\w*|exit|withdraw|reduce\s+(?:exposure|position|holding)|remove\s+\w+\s+from)\b`)
	investPattern = regexp.MustCompile(`(?i)\b(invest|acquire|buy|purchase|accumulat\w*|allocate|add\s+\w+\s+to|increase\s+(?:exposure|position|holding))\b`)
)

// InferProposalType maps an ambiguous proposal-type field to invest or
// divest. The contract enum is trusted first when it is unambiguous;
// content matching against title and description runs only as a fallback,
// and anything still unresolved defaults to invest.
func InferProposalType(enum any, title, description string) domain.ProposalType {
	if t, ok := typeFromEnum(enum); ok {
		return t
	}
	return typeFromContent(title + " " + description)
}

// typeFromEnum interprets the raw contract value. The AssetDAO encodes
// invest as 0 and divest as 1; string payloads sometimes spell the names
// out.
func typeFromEnum(enum any) (domain.ProposalType, bool) {
	switch v := enum.(type) {
	case nil:
		return "", false
	case int:
		return typeFromOrdinal(int64(v))
	case int64:
		return typeFromOrdinal(v)
	case uint8:
		return typeFromOrdinal(int64(v))
	case float64:
		if v == float64(int64(v)) {
			return typeFromOrdinal(int64(v))
		}
		return "", false
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "invest":
			return domain.ProposalTypeInvest, true
		case "1", "divest":
			return domain.ProposalTypeDivest, true
		}
		return "", false
	default:
		return "", false
	}
}

func typeFromOrdinal(n int64) (domain.ProposalType, bool) {
	switch n {
	case 0:
		return domain.ProposalTypeInvest, true
	case 1:
		return domain.ProposalTypeDivest, true
	default:
		return "", false
	}
}

// typeFromContent pattern-matches free text. Divest is checked first so
// that "sell X to fund an investment" classifies as the action actually
// proposed.
func typeFromContent(text string) domain.ProposalType {
	if divestPattern.MatchString(text) {
		return domain.ProposalTypeDivest
	}
	if investPattern.MatchString(text) {
		return domain.ProposalTypeInvest
	}
	return domain.ProposalTypeInvest
}
