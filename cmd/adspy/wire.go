package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"ad-insights-go/internal/config"
	"ad-insights-go/internal/extractor"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/media"
	"ad-insights-go/internal/metrics"
	"ad-insights-go/internal/pipeline"
	"ad-insights-go/internal/processor"
)

// newScheduler builds the full analysis stack from cfg. workers overrides
// the configured worker count when positive.
func newScheduler(cfg *config.Config, log *logger.Logger, reg prometheus.Registerer, workers int) (*pipeline.Scheduler, error) {
	store, err := media.NewStore(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("scratch store: %w", err)
	}
	jobs := metrics.NewJobs(reg)

	analyzer := processor.New(processor.Options{
		Client:          extractor.NewGateway(cfg.BaseURL, cfg.APIKey, cfg.InferenceTimeout, log.Entry),
		Fetcher:         media.NewHTTPFetcher(cfg.DownloadTimeout, cfg.DownloadMaxElapsed, log.Entry),
		Transcoder:      media.NewFFmpeg(cfg.FFmpegPath, cfg.TranscodeTimeout, log.Entry),
		Store:           store,
		Metrics:         jobs,
		Log:             log,
		Model:           cfg.Model,
		VideoModels:     cfg.VideoModels,
		EnableInference: cfg.HasAPIKey(),
	})

	if workers <= 0 {
		workers = cfg.Workers
	}
	log.WithFields(map[string]any{
		"workers":      config.ClampWorkers(workers),
		"model":        cfg.Model,
		"video_models": cfg.VideoModels,
		"ffmpeg":       cfg.FFmpegPath,
		"inference":    cfg.HasAPIKey(),
	}).Info("analysis stack ready")

	return pipeline.New(workers, analyzer.Analyze,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(jobs),
	), nil
}
