package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/skinscreen/internal/prediction"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	prediction_id       TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	image_id            TEXT NOT NULL,
	filename            TEXT NOT NULL,
	image_uri           TEXT NOT NULL DEFAULT '',
	gradcam_uri         TEXT NOT NULL DEFAULT '',
	predicted_class     TEXT NOT NULL DEFAULT '',
	lesion_type         TEXT NOT NULL DEFAULT '',
	confidence_score    DOUBLE PRECISION,
	confidence_scores   JSONB,
	model_version       TEXT NOT NULL DEFAULT '',
	notes               TEXT NOT NULL DEFAULT '',
	upload_timestamp    TIMESTAMPTZ NOT NULL,
	inference_timestamp TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS predictions_user_upload_idx
	ON predictions (user_id, upload_timestamp DESC);
`

const selectColumns = `prediction_id, user_id, image_id, filename, image_uri, gradcam_uri,
	predicted_class, lesion_type, confidence_score, confidence_scores, model_version, notes,
	upload_timestamp, inference_timestamp`

// Postgres stores records in a single predictions table.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool, verifies it with a ping and creates the schema.
func Connect(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, rec prediction.Record) error {
	var score any
	if s, ok := rec.Confidence.Score(); ok {
		score = s
	}
	var scores any
	if raw := rec.RawScores(); len(raw) > 0 {
		scores = string(raw)
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO predictions (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13, $14)
		ON CONFLICT (prediction_id) DO UPDATE SET
			gradcam_uri = EXCLUDED.gradcam_uri,
			notes = EXCLUDED.notes`,
		rec.PredictionID, rec.UserID, rec.ImageID, rec.Filename, rec.ImageURI, rec.GradcamURI,
		rec.PredictedClass, rec.LesionType, score, scores, rec.ModelVersion, rec.Notes,
		rec.UploadTime(), prediction.ParseTime(rec.InferenceTimestamp),
	)
	if err != nil {
		return fmt.Errorf("insert prediction %s: %w", rec.PredictionID, err)
	}
	return nil
}

func (p *Postgres) ListByUser(ctx context.Context, userID string, limit int) ([]prediction.Record, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := p.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM predictions
		WHERE user_id = $1
		ORDER BY upload_timestamp DESC
		LIMIT $2`, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("query predictions for %s: %w", userID, err)
	}

	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scan predictions for %s: %w", userID, err)
	}
	return records, nil
}

func (p *Postgres) UpdateGradcamURI(ctx context.Context, predictionID, uri string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE predictions SET gradcam_uri = $2 WHERE prediction_id = $1`,
		predictionID, uri)
	if err != nil {
		return fmt.Errorf("update gradcam uri for %s: %w", predictionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func scanRecord(row pgx.CollectableRow) (prediction.Record, error) {
	var (
		rec      prediction.Record
		score    *float64
		scores   []byte
		uploaded time.Time
		inferred time.Time
	)
	err := row.Scan(
		&rec.PredictionID, &rec.UserID, &rec.ImageID, &rec.Filename, &rec.ImageURI, &rec.GradcamURI,
		&rec.PredictedClass, &rec.LesionType, &score, &scores, &rec.ModelVersion, &rec.Notes,
		&uploaded, &inferred,
	)
	if err != nil {
		return prediction.Record{}, err
	}
	rec.UploadTimestamp = prediction.FormatTime(uploaded)
	rec.InferenceTimestamp = prediction.FormatTime(inferred)
	return prediction.Restore(rec, score, scores), nil
}
