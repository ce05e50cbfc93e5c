package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/Skufu/skinscreen/internal/confidence"
	"github.com/Skufu/skinscreen/internal/prediction"
)

// Point colors used by the confidence trend chart.
const (
	ColorMalignant = "#ef4444"
	ColorBenign    = "#10b981"
	ColorUnknown   = "#a3a3a3"
)

const exportDateLayout = "Jan 2, 2006, 03:04 PM"

// ChartPoint is one dot on the confidence trend chart.
type ChartPoint struct {
	Date    time.Time       `json:"date"`
	Percent float64         `json:"percent"`
	Risk    confidence.Risk `json:"risk"`
	Color   string          `json:"color"`
}

// ExportRow is one line of the tabular history export.
type ExportRow struct {
	Date       string
	Filename   string
	Result     string
	Risk       confidence.Risk
	Confidence string
	Notes      string
}

var exportHeader = []string{"Date", "Filename", "Result", "Risk", "Confidence", "Notes"}

func (r ExportRow) strings() []string {
	return []string{r.Date, r.Filename, r.Result, string(r.Risk), r.Confidence, r.Notes}
}

// ChartSeries orders records oldest first and plots their resolved percent.
func ChartSeries(records []prediction.Record) []ChartPoint {
	sorted := Sort(records, OldestFirst)
	points := make([]ChartPoint, 0, len(sorted))
	for _, rec := range sorted {
		resolved := confidence.Resolve(rec)
		points = append(points, ChartPoint{
			Date:    rec.UploadTime(),
			Percent: resolved.Percent,
			Risk:    resolved.Risk,
			Color:   RiskColor(resolved.Risk),
		})
	}
	return points
}

// RiskColor keeps Unknown visually distinct from both benign and malignant.
func RiskColor(risk confidence.Risk) string {
	switch risk {
	case confidence.Malignant:
		return ColorMalignant
	case confidence.Benign:
		return ColorBenign
	default:
		return ColorUnknown
	}
}

// ExportRows formats records in the order given. Records with no usable
// confidence source get an empty confidence cell rather than "0.00%".
func ExportRows(records []prediction.Record) []ExportRow {
	rows := make([]ExportRow, 0, len(records))
	for _, rec := range records {
		row := ExportRow{
			Filename: rec.Filename,
			Result:   rec.Label(),
			Risk:     confidence.RiskOf(rec),
			Notes:    rec.Notes,
		}
		if row.Result == "" {
			row.Result = string(confidence.Unknown)
		}
		if t := rec.UploadTime(); !t.IsZero() {
			row.Date = t.UTC().Format(exportDateLayout)
		}
		if confidence.HasPercent(rec) {
			row.Confidence = confidence.FormatPercent(confidence.Percent(rec))
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes a header line followed by one line per row.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.strings()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
