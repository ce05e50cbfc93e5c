package prediction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StoreRequest is the payload the ML service posts after an analysis.
// confidence_scores and gradcam_uri must be present but may be empty; the
// Grad-CAM overlay is usually attached later.
type StoreRequest struct {
	UserID           string          `json:"user_id"`
	ImageURI         string          `json:"image_uri"`
	Filename         string          `json:"filename"`
	PredictedClass   string          `json:"predicted_class"`
	LesionType       string          `json:"lesion_type"`
	ConfidenceScores json.RawMessage `json:"confidence_scores"`
	ConfidenceScore  json.RawMessage `json:"confidence_score"`
	ModelVersion     string          `json:"model_version"`
	GradcamURI       *string         `json:"gradcam_uri"`
	Notes            string          `json:"notes"`
}

// ValidationError lists the required fields a request was missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// Validate reports every missing required field at once.
func (r StoreRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if strings.TrimSpace(r.ImageURI) == "" {
		missing = append(missing, "image_uri")
	}
	if strings.TrimSpace(r.Filename) == "" {
		missing = append(missing, "filename")
	}
	if strings.TrimSpace(r.PredictedClass) == "" {
		missing = append(missing, "predicted_class")
	}
	if isNull(r.ConfidenceScores) {
		missing = append(missing, "confidence_scores")
	}
	if strings.TrimSpace(r.ModelVersion) == "" {
		missing = append(missing, "model_version")
	}
	if r.GradcamURI == nil {
		missing = append(missing, "gradcam_uri")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Record builds the immutable record for a validated request. IDs and the
// clock are supplied by the caller.
func (r StoreRequest) Record(predictionID, imageID string, now time.Time) Record {
	rec := Record{
		PredictionID:       predictionID,
		UserID:             r.UserID,
		ImageID:            imageID,
		Filename:           r.Filename,
		ImageURI:           r.ImageURI,
		PredictedClass:     r.PredictedClass,
		LesionType:         r.LesionType,
		ModelVersion:       r.ModelVersion,
		Notes:              strings.TrimSpace(r.Notes),
		UploadTimestamp:    FormatTime(now),
		InferenceTimestamp: FormatTime(now),
	}
	if r.GradcamURI != nil {
		rec.GradcamURI = *r.GradcamURI
	}
	rec.Confidence, rec.rawScore, rec.rawScores = classify(r.ConfidenceScore, r.ConfidenceScores)
	// Non-numeric flat scores are not persisted.
	rec.rawScore = nil
	return rec
}

// Restore rebuilds a record read back from storage.
func Restore(rec Record, score *float64, rawScores []byte) Record {
	var scoreRaw json.RawMessage
	if score != nil {
		scoreRaw, _ = json.Marshal(*score)
	}
	rec.Confidence, rec.rawScore, rec.rawScores = classify(scoreRaw, rawScores)
	return rec
}
