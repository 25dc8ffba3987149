package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ad-insights-go/internal/aggregator"
	"ad-insights-go/internal/dataset"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/types"
)

// maxBodyBytes caps the size of an /analyze request.
const maxBodyBytes = 10 << 20

// RunFunc analyzes a batch of records, one result per record id.
type RunFunc func(ctx context.Context, records []types.AdRecord) map[string]types.AnalysisResult

type Options struct {
	Run            RunFunc
	Log            *logger.Logger
	DefaultQuality types.Quality
	Metrics        http.Handler // optional, served on /metrics
	Now            func() time.Time
}

// AnalyzeResponse is the body of a successful /analyze call.
type AnalyzeResponse struct {
	Headers []string            `json:"headers"`
	Rows    []types.Row         `json:"rows"`
	Stats   aggregator.RunStats `json:"stats"`
}

type handler struct {
	Options
}

// NewMux wires the HTTP surface: /healthz, POST /analyze and /metrics.
func NewMux(opts Options) *http.ServeMux {
	if opts.Log == nil {
		opts.Log = logger.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handler{Options: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST /analyze", h.analyze)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	h.Log.WithRequest(r).Debug("health check")
	fmt.Fprint(w, "ok")
}

// analyze takes scraped items as the body (array, {"items": [...]} or JSON
// lines). Query parameters: quality, min_likes, limit, dry_run.
func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	reqLog := h.Log.WithRequest(r).WithField("handler", "analyze")
	reqLog.Info("analyze request received")

	q := r.URL.Query()
	quality := h.DefaultQuality
	if v := q.Get("quality"); v != "" {
		quality = types.ParseQuality(v)
	}
	minLikes, err := intParam(q.Get("min_likes"))
	if err != nil {
		http.Error(w, "invalid min_likes", http.StatusBadRequest)
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	dryRun, _ := strconv.ParseBool(q.Get("dry_run"))

	items, err := dataset.LoadJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		reqLog.WithError(err).Warn("invalid request body")
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}

	records := dataset.Records(items, dataset.BuildOptions{Quality: quality, DryRun: dryRun})
	records = dataset.FilterByLikes(records, minLikes)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	reqLog = reqLog.WithField("records", len(records)).WithField("quality", quality)

	start := time.Now()
	results := h.Run(r.Context(), records)
	reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("analysis finished")

	resp := AnalyzeResponse{
		Headers: aggregator.Headers,
		Rows:    aggregator.Assemble(records, results, h.Now()),
		Stats:   aggregator.Stats(records, results),
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		reqLog.WithError(err).Error("failed to write response")
	}
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
