package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-insights-go/internal/aggregator"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/types"
)

type recordingRun struct {
	got []types.AdRecord
}

func (r *recordingRun) run(_ context.Context, recs []types.AdRecord) map[string]types.AnalysisResult {
	r.got = recs
	out := map[string]types.AnalysisResult{}
	for _, rec := range recs {
		out[rec.ID] = types.AnalysisResult{Summary: "summary " + rec.ID}.Normalize()
	}
	return out
}

func newTestMux(run *recordingRun, metrics http.Handler) *http.ServeMux {
	return NewMux(Options{
		Run:            run.run,
		Log:            logger.Discard(),
		DefaultQuality: types.QualityMedium,
		Metrics:        metrics,
		Now:            func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(&recordingRun{}, nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAnalyze_ReturnsRowsAndStats(t *testing.T) {
	run := &recordingRun{}
	mux := newTestMux(run, nil)
	body := `[
		{"adArchiveID": "1", "adCreativeBody": "hello", "snapshot": {"page_like_count": 50}},
		{"adArchiveID": "2", "imageUrl": "https://cdn/i.png", "snapshot": {"page_like_count": 5000}},
		{"adArchiveID": "3", "video_sd_url": "https://cdn/v.mp4", "snapshot": {"page_like_count": 9000}}
	]`
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze?quality=fast&min_likes=100&limit=1", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, run.got, 1)
	assert.Equal(t, "2", run.got[0].ID)
	assert.Equal(t, types.QualityFast, run.got[0].Quality)

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, aggregator.Headers, resp.Headers)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "2", resp.Rows[0][0])
	assert.Equal(t, "Image", resp.Rows[0][1])
	assert.Equal(t, "2025-01-02 03:04:05", resp.Rows[0][2])
	assert.Equal(t, "summary 2", resp.Rows[0][15])
	assert.Equal(t, 1, resp.Stats.OK)
}

func TestAnalyze_DefaultsAndDryRun(t *testing.T) {
	run := &recordingRun{}
	mux := newTestMux(run, nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze?dry_run=true", strings.NewReader(`{"items":[{"adCreativeBody":"x"}]}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, run.got, 1)
	assert.Equal(t, types.QualityMedium, run.got[0].Quality)
	assert.True(t, run.got[0].DryRun)
	assert.Equal(t, "item-1", run.got[0].ID)
}

func TestAnalyze_BadRequests(t *testing.T) {
	mux := newTestMux(&recordingRun{}, nil)
	tests := []struct {
		name string
		url  string
		body string
	}{
		{"empty body", "/analyze", ``},
		{"no items", "/analyze", `[]`},
		{"broken json", "/analyze", `[{"a":`},
		{"bad min_likes", "/analyze?min_likes=lots", `[{"adArchiveID":"1"}]`},
		{"bad limit", "/analyze?limit=-x", `[{"adArchiveID":"1"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.url, strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAnalyze_MethodNotAllowed(t *testing.T) {
	mux := newTestMux(&recordingRun{}, nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyze", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsMountedWhenProvided(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("# metrics")) })

	rec := httptest.NewRecorder()
	newTestMux(&recordingRun{}, metrics).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "# metrics", rec.Body.String())

	rec = httptest.NewRecorder()
	newTestMux(&recordingRun{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
