package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
	"github.com/banshee-data/collision.report/internal/fusion/pipeline"
	"github.com/banshee-data/collision.report/internal/fusion/sequence"
	"github.com/banshee-data/collision.report/internal/fusion/storage/sqlite"
	"github.com/banshee-data/collision.report/internal/testutil"
)

func writeApproachSequence(t *testing.T) string {
	t.Helper()
	pair := testutil.DefaultApproachScene().FramePair()
	prev, curr := *pair.Prev, *pair.Curr
	prev.Index, curr.Index = 0, 1

	seq := &sequence.Sequence{
		FrameRate:   10,
		Calibration: testutil.DefaultCalibration(),
		Frames:      []l2frames.Frame{prev, curr},
		Matches:     []sequence.MatchSet{{PrevFrame: 0, CurrFrame: 1, Matches: pair.Matches}},
	}
	var buf bytes.Buffer
	require.NoError(t, seq.Encode(&buf))
	path := filepath.Join(t.TempDir(), "approach.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"-sequence", "drive.json", "-db", "ttc.db", "-units", "mph", "-serve", ":8080"})
	require.NoError(t, err)
	assert.Equal(t, "drive.json", cfg.SequencePath)
	assert.Equal(t, "ttc.db", cfg.DBPath)
	assert.Equal(t, "mph", cfg.Units)
	assert.Equal(t, ":8080", cfg.ServeAddr)

	cfg, err = parseFlags([]string{"-version"})
	require.NoError(t, err)
	assert.True(t, cfg.ShowVersion)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing sequence", nil, "-sequence"},
		{"bad units", []string{"-sequence", "a.json", "-units", "furlongs"}, "furlongs"},
		{"serve without db", []string{"-sequence", "a.json", "-serve", ":0"}, "-db"},
		{"unknown flag", []string{"-nope"}, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_WritesDatabaseAndReport(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		SequencePath: writeApproachSequence(t),
		DBPath:       filepath.Join(dir, "ttc.db"),
		ReportPath:   filepath.Join(dir, "ttc.html"),
		PlotPath:     filepath.Join(dir, "ttc.svg"),
		Units:        "kph",
	}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "frame    1")
	assert.Contains(t, lines[0], "72.0 km/h")

	html, err := os.ReadFile(cfg.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Range TTC")
	_, err = os.Stat(cfg.PlotPath)
	require.NoError(t, err)

	store, err := sqlite.Open(cfg.DBPath)
	require.NoError(t, err)
	defer store.Close()

	var runID string
	require.NoError(t, store.DB().QueryRow(`SELECT run_id FROM ttc_runs`).Scan(&runID))
	rows, err := store.ListResults(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].RangeTTC)
	assert.InDelta(t, 0.9, *rows[0].RangeTTC, 1e-9)
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), Config{SequencePath: "/nonexistent/seq.json"}, &out)
	assert.Error(t, err)

	err = run(context.Background(), Config{SequencePath: writeApproachSequence(t), ConfigPath: "/nonexistent/tuning.json"}, &out)
	assert.Error(t, err)
}

func TestReportHandler(t *testing.T) {
	h := reportHandler("/data/drive 0005.json", pipeline.DefaultConfig(), nil, "mps")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Range TTC")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report?download=1", nil))
	assert.Equal(t, `attachment; filename="ttc_drive_0005.html"`, rec.Header().Get("Content-Disposition"))
}
