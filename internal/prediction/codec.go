package prediction

import (
	"bytes"
	"encoding/json"
	"math"
)

// wireRecord mirrors the backend's snake_case payload. Confidence members are
// kept raw so their shape can be classified once, here.
type wireRecord struct {
	PredictionID       string          `json:"prediction_id,omitempty"`
	UserID             string          `json:"user_id,omitempty"`
	ImageID            string          `json:"image_id,omitempty"`
	Filename           string          `json:"filename"`
	ImageURI           string          `json:"image_uri,omitempty"`
	GradcamURI         string          `json:"gradcam_uri,omitempty"`
	PredictedClass     string          `json:"predicted_class"`
	LesionType         string          `json:"lesion_type,omitempty"`
	ConfidenceScore    json.RawMessage `json:"confidence_score,omitempty"`
	ConfidenceScores   json.RawMessage `json:"confidence_scores,omitempty"`
	ModelVersion       string          `json:"model_version,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	UploadTimestamp    string          `json:"upload_timestamp,omitempty"`
	InferenceTimestamp string          `json:"inference_timestamp,omitempty"`
}

// UnmarshalJSON decodes a backend payload. String fields of the wrong JSON
// type are tolerated and left empty so a single odd field never rejects the
// whole record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	rec := Record{
		PredictionID:       stringField(fields, "prediction_id"),
		UserID:             stringField(fields, "user_id"),
		ImageID:            stringField(fields, "image_id"),
		Filename:           stringField(fields, "filename"),
		ImageURI:           stringField(fields, "image_uri"),
		GradcamURI:         stringField(fields, "gradcam_uri"),
		PredictedClass:     stringField(fields, "predicted_class"),
		LesionType:         stringField(fields, "lesion_type"),
		ModelVersion:       stringField(fields, "model_version"),
		Notes:              stringField(fields, "notes"),
		UploadTimestamp:    stringField(fields, "upload_timestamp"),
		InferenceTimestamp: stringField(fields, "inference_timestamp"),
	}
	rec.Confidence, rec.rawScore, rec.rawScores = classify(fields["confidence_score"], fields["confidence_scores"])

	*r = rec
	return nil
}

// MarshalJSON re-emits the backend shape.
func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		PredictionID:       r.PredictionID,
		UserID:             r.UserID,
		ImageID:            r.ImageID,
		Filename:           r.Filename,
		ImageURI:           r.ImageURI,
		GradcamURI:         r.GradcamURI,
		PredictedClass:     r.PredictedClass,
		LesionType:         r.LesionType,
		ConfidenceScores:   r.RawScores(),
		ModelVersion:       r.ModelVersion,
		Notes:              r.Notes,
		UploadTimestamp:    r.UploadTimestamp,
		InferenceTimestamp: r.InferenceTimestamp,
	}
	if score, ok := r.Confidence.Score(); ok {
		raw, err := json.Marshal(score)
		if err != nil {
			return nil, err
		}
		w.ConfidenceScore = raw
	} else if len(r.rawScore) > 0 {
		w.ConfidenceScore = r.rawScore
	}
	return json.Marshal(w)
}

// classify decides which confidence shape is authoritative. A flat score only
// counts when it is a finite JSON number; the nested mapping only counts when
// it is a non-empty object.
func classify(scoreRaw, scoresRaw json.RawMessage) (Confidence, json.RawMessage, json.RawMessage) {
	var keptScore, keptScores json.RawMessage
	if !isNull(scoreRaw) {
		keptScore = scoreRaw
	}
	if !isNull(scoresRaw) {
		keptScores = scoresRaw
	}

	if score, ok := jsonNumber(scoreRaw); ok {
		return FlatScore(score), nil, keptScores
	}

	var outer map[string]json.RawMessage
	if len(keptScores) > 0 && json.Unmarshal(keptScores, &outer) == nil {
		var dist map[string]json.RawMessage
		if inner, ok := outer["confidence_scores"]; ok && json.Unmarshal(inner, &dist) == nil && len(dist) > 0 {
			return Confidence{kind: KindDistribution, dist: dist}, keptScore, keptScores
		}
	}
	return Confidence{}, keptScore, keptScores
}

func jsonNumber(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '"' {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
