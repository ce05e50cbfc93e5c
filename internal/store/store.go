// Package store persists prediction records.
package store

import (
	"context"
	"errors"
	"slices"

	"github.com/Skufu/skinscreen/internal/prediction"
)

// ErrNotFound is returned when a prediction id does not exist.
var ErrNotFound = errors.New("prediction not found")

// Store is the persistence contract the HTTP layer and CLI depend on.
type Store interface {
	Save(ctx context.Context, rec prediction.Record) error
	// ListByUser returns the user's records newest first. limit <= 0 means all.
	ListByUser(ctx context.Context, userID string, limit int) ([]prediction.Record, error)
	UpdateGradcamURI(ctx context.Context, predictionID, uri string) error
	Ping(ctx context.Context) error
	Close()
}

func newestFirst(records []prediction.Record) {
	slices.SortStableFunc(records, func(a, b prediction.Record) int {
		return b.UploadTime().Compare(a.UploadTime())
	})
}

func truncate(records []prediction.Record, limit int) []prediction.Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
