// Package history filters, orders and summarizes a user's prediction records
// for the listing, chart and export views. All functions are total and leave
// their input slice untouched.
package history

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Skufu/skinscreen/internal/confidence"
	"github.com/Skufu/skinscreen/internal/prediction"
)

type RiskFilter int

const (
	RiskAll RiskFilter = iota
	RiskBenignOnly
	RiskNonBenignOnly
)

type SortKey int

const (
	NewestFirst SortKey = iota
	OldestFirst
	ByConfidenceDescending
)

// Stats backs the summary cards on the history page.
type Stats struct {
	Total             int     `json:"total"`
	BenignCount       int     `json:"benignCount"`
	NonBenignCount    int     `json:"nonBenignCount"`
	AverageConfidence float64 `json:"averageConfidence"`
}

// FilterByText keeps records whose filename or predicted class contains query,
// ignoring case. An empty query returns records as given.
func FilterByText(records []prediction.Record, query string) []prediction.Record {
	if query == "" {
		return records
	}
	needle := strings.ToLower(query)
	out := make([]prediction.Record, 0, len(records))
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Filename), needle) ||
			strings.Contains(strings.ToLower(rec.PredictedClass), needle) {
			out = append(out, rec)
		}
	}
	return out
}

// FilterByRisk uses the resolver's risk label so the filter never disagrees
// with what the row displays. Unknown counts as non-benign.
func FilterByRisk(records []prediction.Record, mode RiskFilter) []prediction.Record {
	if mode == RiskAll {
		return records
	}
	wantBenign := mode == RiskBenignOnly
	out := make([]prediction.Record, 0, len(records))
	for _, rec := range records {
		if confidence.IsBenign(rec) == wantBenign {
			out = append(out, rec)
		}
	}
	return out
}

// Sort returns a sorted copy. Ties keep their input order for every key.
func Sort(records []prediction.Record, key SortKey) []prediction.Record {
	out := slices.Clone(records)
	switch key {
	case OldestFirst:
		slices.SortStableFunc(out, func(a, b prediction.Record) int {
			return a.UploadTime().Compare(b.UploadTime())
		})
	case ByConfidenceDescending:
		// Resolve once per record rather than once per comparison.
		type ranked struct {
			rec     prediction.Record
			percent float64
		}
		rows := make([]ranked, len(out))
		for i, rec := range out {
			rows[i] = ranked{rec: rec, percent: confidence.Percent(rec)}
		}
		slices.SortStableFunc(rows, func(a, b ranked) int {
			return cmp.Compare(b.percent, a.percent)
		})
		for i := range rows {
			out[i] = rows[i].rec
		}
	default:
		slices.SortStableFunc(out, func(a, b prediction.Record) int {
			return b.UploadTime().Compare(a.UploadTime())
		})
	}
	return out
}

// SummaryStats counts benign and non-benign records and averages the resolved
// percent. An empty input yields all zeros.
func SummaryStats(records []prediction.Record) Stats {
	stats := Stats{Total: len(records)}
	if stats.Total == 0 {
		return stats
	}
	var sum float64
	for _, rec := range records {
		resolved := confidence.Resolve(rec)
		if resolved.Risk == confidence.Benign {
			stats.BenignCount++
		} else {
			stats.NonBenignCount++
		}
		sum += resolved.Percent
	}
	stats.AverageConfidence = sum / float64(stats.Total)
	return stats
}
