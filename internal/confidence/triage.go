package confidence

import (
	"strings"

	"github.com/Skufu/skinscreen/internal/prediction"
)

// Triage is the coarse urgency tier attached to history summaries.
type Triage string

const (
	TriageHigh       Triage = "High"
	TriageMediumHigh Triage = "Medium-High"
	TriageMedium     Triage = "Medium"
	TriageLowMedium  Triage = "Low-Medium"
	TriageLow        Triage = "Low"
)

// HAM10000 abbreviations and words that mark a higher-risk condition.
var highRiskMarkers = []string{"mel", "malignant", "bcc", "akiec"}

// TriageLevel combines the predicted class with the resolved percent. High
// risk conditions escalate with confidence; everything else de-escalates.
func TriageLevel(rec prediction.Record) Triage {
	percent := Percent(rec)
	if isHighRiskCondition(rec.PredictedClass) {
		switch {
		case percent > 80:
			return TriageHigh
		case percent > 60:
			return TriageMediumHigh
		default:
			return TriageMedium
		}
	}
	switch {
	case percent > 90:
		return TriageLow
	case percent > 70:
		return TriageLowMedium
	default:
		return TriageMedium
	}
}

func isHighRiskCondition(class string) bool {
	lower := strings.ToLower(class)
	for _, marker := range highRiskMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
