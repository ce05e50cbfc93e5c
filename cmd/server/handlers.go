package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Skufu/skinscreen/internal/confidence"
	"github.com/Skufu/skinscreen/internal/history"
	"github.com/Skufu/skinscreen/internal/metrics"
	"github.com/Skufu/skinscreen/internal/prediction"
	"github.com/Skufu/skinscreen/internal/store"
)

type predictionAPI struct {
	store       store.Store
	metrics     *metrics.Metrics
	log         *zap.Logger
	recentLimit int
	newID       func() string
	now         func() time.Time
}

func newAPI(s store.Store, m *metrics.Metrics, logger *zap.Logger, recentLimit int) *predictionAPI {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &predictionAPI{
		store:       s,
		metrics:     m,
		log:         logger,
		recentLimit: recentLimit,
		newID:       uuid.NewString,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type historyItem struct {
	Prediction prediction.Record   `json:"prediction"`
	Confidence confidence.Resolved `json:"confidence"`
	Formatted  string              `json:"formatted_confidence"`
	Triage     confidence.Triage   `json:"triage"`
}

func (a *predictionAPI) storePrediction(c *gin.Context) {
	var req prediction.StoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := req.Validate(); err != nil {
		var verr *prediction.ValidationError
		if errors.As(err, &verr) {
			details := make([]string, 0, len(verr.Missing))
			for _, field := range verr.Missing {
				details = append(details, fmt.Sprintf("%s is required", field))
			}
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation_failed",
				"details": details,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := req.Record(a.newID(), a.newID(), a.now())
	if err := a.store.Save(c.Request.Context(), rec); err != nil {
		a.log.Error("store prediction failed", zap.Error(err), zap.String("user_id", rec.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store prediction"})
		return
	}
	if a.metrics != nil {
		a.metrics.PredictionStored(rec.Confidence.Kind().String())
	}
	a.log.Info("prediction stored",
		zap.String("user_id", rec.UserID),
		zap.String("prediction_id", rec.PredictionID),
		zap.Stringer("confidence_shape", rec.Confidence.Kind()),
		zap.String("model_version", rec.ModelVersion),
	)

	c.JSON(http.StatusOK, gin.H{
		"message":       "Stored prediction and image",
		"image_id":      rec.ImageID,
		"prediction_id": rec.PredictionID,
	})
}

func (a *predictionAPI) userPredictions(c *gin.Context) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID required"})
		return
	}

	records, err := a.store.ListByUser(c.Request.Context(), body.UserID, 0)
	if err != nil {
		a.log.Error("list predictions failed", zap.Error(err), zap.String("user_id", body.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load predictions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"predictions": records})
}

func (a *predictionAPI) updateGradcamURI(c *gin.Context) {
	var body struct {
		PredictionID string `json:"prediction_id"`
		GradcamURI   string `json:"gradcam_uri"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PredictionID == "" || body.GradcamURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing prediction_id or gradcam_uri"})
		return
	}

	err := a.store.UpdateGradcamURI(c.Request.Context(), body.PredictionID, body.GradcamURI)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Prediction not found or not updated"})
	case err != nil:
		a.log.Error("update gradcam uri failed", zap.Error(err), zap.String("prediction_id", body.PredictionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update gradcam_uri"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "gradcam_uri updated"})
	}
}

func (a *predictionAPI) recentPredictions(c *gin.Context) {
	userID := c.Param("userId")

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = a.recentLimit
	}

	records, err := a.store.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		a.log.Error("list recent predictions failed", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load predictions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"predictions": records,
		"total":       len(records),
	})
}

func (a *predictionAPI) history(c *gin.Context) {
	records, ok := a.loadHistory(c)
	if !ok {
		return
	}
	q := queryFrom(c)

	filtered := q.Apply(records)
	items := make([]historyItem, 0, len(filtered))
	for _, rec := range filtered {
		resolved := confidence.Resolve(rec)
		if a.metrics != nil {
			a.metrics.Resolved(resolved.Risk)
		}
		items = append(items, historyItem{
			Prediction: rec,
			Confidence: resolved,
			Formatted:  confidence.FormatPercent(resolved.Percent),
			Triage:     confidence.TriageLevel(rec),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": items,
		"stats":       history.SummaryStats(records),
		"query": gin.H{
			"q":    q.Text,
			"risk": q.Risk.String(),
			"sort": q.Sort.String(),
		},
	})
}

func (a *predictionAPI) historyChart(c *gin.Context) {
	records, ok := a.loadHistory(c)
	if !ok {
		return
	}
	q := queryFrom(c)

	filtered := history.FilterByRisk(history.FilterByText(records, q.Text), q.Risk)
	c.JSON(http.StatusOK, gin.H{"points": history.ChartSeries(filtered)})
}

func (a *predictionAPI) historyExport(c *gin.Context) {
	records, ok := a.loadHistory(c)
	if !ok {
		return
	}
	rows := history.ExportRows(queryFrom(c).Apply(records))

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="analysis-history.csv"`)
	c.Status(http.StatusOK)
	if err := history.WriteCSV(c.Writer, rows); err != nil {
		a.log.Error("write csv export failed", zap.Error(err), zap.String("user_id", c.Param("userId")))
		_ = c.Error(err)
	}
}

func (a *predictionAPI) resolve(c *gin.Context) {
	var rec prediction.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	resolved := confidence.Resolve(rec)
	c.JSON(http.StatusOK, gin.H{
		"percent":   resolved.Percent,
		"risk":      resolved.Risk,
		"formatted": confidence.FormatPercent(resolved.Percent),
		"triage":    confidence.TriageLevel(rec),
		"shape":     rec.Confidence.Kind().String(),
	})
}

func (a *predictionAPI) loadHistory(c *gin.Context) ([]prediction.Record, bool) {
	userID := c.Param("userId")
	records, err := a.store.ListByUser(c.Request.Context(), userID, 0)
	if err != nil {
		a.log.Error("load history failed", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load predictions"})
		return nil, false
	}
	return records, true
}

func queryFrom(c *gin.Context) history.Query {
	return history.Query{
		Text: c.Query("q"),
		Risk: history.ParseRiskFilter(c.Query("risk")),
		Sort: history.ParseSortKey(c.Query("sort")),
	}
}
