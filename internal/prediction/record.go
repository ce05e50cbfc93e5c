// Package prediction holds the prediction record shared by the history views,
// the store and the HTTP layer.
package prediction

import (
	"bytes"
	"encoding/json"
	"time"
)

// Kind tags which confidence shape a record carried when it was ingested.
type Kind uint8

const (
	KindNone Kind = iota
	KindFlat
	KindDistribution
)

func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindDistribution:
		return "distribution"
	default:
		return "none"
	}
}

// Confidence is the classified confidence payload of a record. Exactly one of
// Score (KindFlat) or the distribution (KindDistribution) is meaningful.
type Confidence struct {
	kind  Kind
	score float64
	dist  map[string]json.RawMessage
}

// FlatScore builds a confidence from a single top-1 percentage.
func FlatScore(score float64) Confidence {
	return Confidence{kind: KindFlat, score: score}
}

// Distribution builds a confidence from a class -> value mapping. Values are
// kept as the JSON the backend would send, so numbers and numeric strings
// both survive.
func Distribution(values map[string]any) Confidence {
	if len(values) == 0 {
		return Confidence{}
	}
	dist := make(map[string]json.RawMessage, len(values))
	for label, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		dist[label] = raw
	}
	return Confidence{kind: KindDistribution, dist: dist}
}

func (c Confidence) Kind() Kind { return c.kind }

// Score returns the flat score and whether the record carried one.
func (c Confidence) Score() (float64, bool) {
	return c.score, c.kind == KindFlat
}

// Values returns a copy of the raw distribution entries.
func (c Confidence) Values() map[string]json.RawMessage {
	if c.kind != KindDistribution {
		return nil
	}
	out := make(map[string]json.RawMessage, len(c.dist))
	for k, v := range c.dist {
		out[k] = v
	}
	return out
}

// Record is one completed analysis of a single uploaded image. Records are
// treated as immutable values once decoded.
type Record struct {
	PredictionID       string
	UserID             string
	ImageID            string
	Filename           string
	ImageURI           string
	GradcamURI         string
	PredictedClass     string
	LesionType         string
	ModelVersion       string
	Notes              string
	UploadTimestamp    string
	InferenceTimestamp string

	Confidence Confidence

	// rawScores is the confidence_scores payload exactly as received.
	rawScores json.RawMessage
	// rawScore is set when confidence_score was present but not a number.
	rawScore json.RawMessage
}

// UploadTime parses UploadTimestamp. Unparseable or missing timestamps yield
// the zero time.
func (r Record) UploadTime() time.Time {
	return ParseTime(r.UploadTimestamp)
}

// Label is the human readable class, preferring the lesion type.
func (r Record) Label() string {
	if r.LesionType != "" {
		return r.LesionType
	}
	return r.PredictedClass
}

// RawScores returns the confidence_scores payload as it should be persisted.
func (r Record) RawScores() json.RawMessage {
	if len(r.rawScores) > 0 {
		return r.rawScores
	}
	if r.Confidence.kind == KindDistribution {
		raw, err := json.Marshal(map[string]any{"confidence_scores": r.Confidence.dist})
		if err == nil {
			return raw
		}
	}
	return nil
}

// WithGradcamURI returns a copy of r pointing at a new Grad-CAM asset.
func (r Record) WithGradcamURI(uri string) Record {
	r.GradcamURI = uri
	return r
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts the timestamp layouts seen from the backend and returns
// the zero time for anything else.
func ParseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTime renders t the way upload timestamps travel on the wire.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
