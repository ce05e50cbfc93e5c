package history

import (
	"strings"

	"github.com/Skufu/skinscreen/internal/prediction"
)

// Query is the combination of controls the history page exposes.
type Query struct {
	Text string
	Risk RiskFilter
	Sort SortKey
}

// Apply runs the text filter, then the risk filter, then the sort.
func (q Query) Apply(records []prediction.Record) []prediction.Record {
	out := FilterByText(records, q.Text)
	out = FilterByRisk(out, q.Risk)
	return Sort(out, q.Sort)
}

// ParseRiskFilter maps the page's filter names. Unrecognized values select all.
func ParseRiskFilter(s string) RiskFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "benign":
		return RiskBenignOnly
	case "malignant", "non-benign", "nonbenign":
		return RiskNonBenignOnly
	default:
		return RiskAll
	}
}

func (f RiskFilter) String() string {
	switch f {
	case RiskBenignOnly:
		return "benign"
	case RiskNonBenignOnly:
		return "malignant"
	default:
		return "all"
	}
}

// ParseSortKey maps the page's sort names. Unrecognized values sort newest first.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oldest":
		return OldestFirst
	case "confidence":
		return ByConfidenceDescending
	default:
		return NewestFirst
	}
}

func (k SortKey) String() string {
	switch k {
	case OldestFirst:
		return "oldest"
	case ByConfidenceDescending:
		return "confidence"
	default:
		return "newest"
	}
}
