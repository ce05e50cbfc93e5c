// Package confidence derives a single comparable confidence percentage and a
// coarse risk label from a prediction record. Every listing, chart and export
// goes through Resolve so they always agree with each other.
package confidence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Skufu/skinscreen/internal/prediction"
)

// Risk is a UI-facing classification of the predicted label. It is a string
// heuristic, not a diagnosis.
type Risk string

const (
	Benign    Risk = "Benign"
	Malignant Risk = "Malignant"
	Unknown   Risk = "Unknown"
)

// Resolved is recomputed from the record every time it is needed.
type Resolved struct {
	Percent float64 `json:"percent"`
	Risk    Risk    `json:"risk"`
}

var benignMarkers = []string{"benign", "nevus"}

// Resolve never fails: malformed or partial records come out as 0 / Unknown.
func Resolve(rec prediction.Record) Resolved {
	return Resolved{
		Percent: Percent(rec),
		Risk:    RiskOf(rec),
	}
}

// Percent is the flat score when present, otherwise the top entry of the
// class distribution, otherwise 0. Values are trusted to be 0-100 already.
func Percent(rec prediction.Record) float64 {
	switch rec.Confidence.Kind() {
	case prediction.KindFlat:
		score, _ := rec.Confidence.Score()
		return score
	case prediction.KindDistribution:
		top, ok := maxValue(rec.Confidence.Values())
		if ok {
			return top
		}
	}
	return 0
}

// HasPercent reports whether any confidence source produced a number.
func HasPercent(rec prediction.Record) bool {
	switch rec.Confidence.Kind() {
	case prediction.KindFlat:
		return true
	case prediction.KindDistribution:
		_, ok := maxValue(rec.Confidence.Values())
		return ok
	}
	return false
}

// RiskOf classifies lesion_type, falling back to predicted_class.
func RiskOf(rec prediction.Record) Risk {
	return classify(rec.Label())
}

// IsBenign is the benign test the history filters share.
func IsBenign(rec prediction.Record) bool {
	return RiskOf(rec) == Benign
}

func classify(label string) Risk {
	if label == "" {
		return Unknown
	}
	lower := strings.ToLower(label)
	for _, marker := range benignMarkers {
		if strings.Contains(lower, marker) {
			return Benign
		}
	}
	return Malignant
}

func maxValue(values map[string]json.RawMessage) (float64, bool) {
	top := math.Inf(-1)
	found := false
	for _, raw := range values {
		v, ok := coerce(raw)
		if !ok {
			continue
		}
		if !found || v > top {
			top = v
			found = true
		}
	}
	return top, found
}

// coerce accepts JSON numbers and strings that start with a decimal number
// ("71.5%" reads as 71.5, "0x10" as 0). Anything else, and any NaN or
// infinite value, is discarded.
func coerce(raw json.RawMessage) (float64, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, false
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return 0, false
		}
		text = decimalPrefix(strings.TrimSpace(text))
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// decimalPrefix returns the longest leading [sign] digits [. digits]
// [e [sign] digits] run of s, or "" when s does not start with a number.
func decimalPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
			digits++
		}
		if digits > 0 {
			i = j
		}
	}
	if digits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		start := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > start {
			i = j
		}
	}
	return s[:i]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// FormatPercent renders a percentage with two decimals, e.g. "71.50%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}
