package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/skinscreen/internal/history"
)

const dump = `[
  {"prediction_id":"p1","user_id":"u1","filename":"mole_arm.jpg","predicted_class":"mel","lesion_type":"Melanoma",
   "confidence_score":88,"upload_timestamp":"2024-01-02T10:00:00Z","notes":"left arm"},
  {"prediction_id":"p2","user_id":"u1","filename":"back.jpg","predicted_class":"nv","lesion_type":"Melanocytic nevus",
   "confidence_scores":{"confidence_scores":{"nv":"71.5","mel":12}},"upload_timestamp":"2024-01-01T10:00:00Z"},
  {"prediction_id":"p3","user_id":"u1","filename":"leg.jpg","upload_timestamp":"2024-01-03T10:00:00Z"}
]`

func writeDump(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "predictions.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSummary(t *testing.T) {
	path := writeDump(t, dump)

	out, err := run(t, "summary", "--file", path)
	require.NoError(t, err)

	var stats history.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.BenignCount)
	assert.Equal(t, 2, stats.NonBenignCount)
	assert.InDelta(t, (88+71.5)/3, stats.AverageConfidence, 1e-9)
}

func TestSummaryHonorsRiskFilter(t *testing.T) {
	path := writeDump(t, dump)

	out, err := run(t, "summary", "--file", path, "--risk", "benign")
	require.NoError(t, err)

	var stats history.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.BenignCount)
	assert.InDelta(t, 71.5, stats.AverageConfidence, 1e-9)
}

func TestExportToStdout(t *testing.T) {
	path := writeDump(t, dump)

	out, err := run(t, "export", "--file", path, "--sort", "confidence")
	require.NoError(t, err)

	lines, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, "mole_arm.jpg", lines[1][1])
	assert.Equal(t, "88.00%", lines[1][4])
	assert.Equal(t, "back.jpg", lines[2][1])
	assert.Equal(t, "leg.jpg", lines[3][1])
}

func TestExportToFile(t *testing.T) {
	path := writeDump(t, dump)
	target := filepath.Join(t.TempDir(), "out.csv")

	out, err := run(t, "export", "--file", path, "--q", "BACK", "--out", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	lines, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Melanocytic nevus", lines[1][2])
	assert.Equal(t, "71.50%", lines[1][4])
}

func TestChart(t *testing.T) {
	path := writeDump(t, `{"predictions": `+dump+`}`)

	out, err := run(t, "chart", "--file", path, "--risk", "malignant")
	require.NoError(t, err)

	var points []history.ChartPoint
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	require.Len(t, points, 2)
	assert.Equal(t, 88.0, points[0].Percent)
	assert.Equal(t, history.ColorMalignant, points[0].Color)
	assert.Equal(t, history.ColorUnknown, points[1].Color)
}

func TestSourceFlagsRequired(t *testing.T) {
	_, err := run(t, "summary")
	require.Error(t, err)

	_, err = run(t, "summary", "--file", "a.json", "--user", "u1")
	require.Error(t, err)
}

func TestDecodeRecordsRejectsGarbage(t *testing.T) {
	_, err := decodeRecords([]byte("not json"))
	assert.Error(t, err)

	records, err := decodeRecords([]byte("  []  "))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWriteFileReportsCloseError(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.csv")

	err := writeFile(target, func(w io.Writer) error {
		// Closing early makes the deferred close fail.
		return w.(*os.File).Close()
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close "+target)

	writeErr := errors.New("disk full")
	err = writeFile(target, func(io.Writer) error { return writeErr })
	assert.ErrorIs(t, err, writeErr)
}
