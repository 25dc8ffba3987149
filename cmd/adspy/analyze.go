package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ad-insights-go/internal/aggregator"
	"ad-insights-go/internal/config"
	"ad-insights-go/internal/dataset"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/types"
)

type analyzeFlags struct {
	input    string
	out      string
	asJSON   bool
	workers  int
	quality  string
	minLikes int
	limit    int
	dryRun   bool
}

var analyzeOpts analyzeFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a file of scraped ads and write the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context(), analyzeOpts)
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.input, "input", "i", "", "scraped items (.json, .csv or .xlsx)")
	f.StringVarP(&analyzeOpts.out, "out", "o", "ads_analysis.xlsx", "output path; with --json, \"-\" writes to stdout")
	f.BoolVar(&analyzeOpts.asJSON, "json", false, "write JSON rows instead of a workbook")
	f.IntVarP(&analyzeOpts.workers, "workers", "w", 0, "concurrent jobs (default from ADSPY_WORKERS)")
	f.StringVarP(&analyzeOpts.quality, "quality", "q", "", "video quality: fast, medium or high (default from ADSPY_VIDEO_QUALITY)")
	f.IntVar(&analyzeOpts.minLikes, "min-likes", 0, "minimum page likes (0 disables the filter)")
	f.IntVar(&analyzeOpts.limit, "limit", 0, "process at most this many ads (0 means all)")
	f.BoolVar(&analyzeOpts.dryRun, "dry-run", false, "use built-in mock ads and skip analysis entirely (no downloads, transcodes or model calls)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(ctx context.Context, opts analyzeFlags) error {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	quality := cfg.VideoQuality()
	if opts.quality != "" {
		quality = types.ParseQuality(opts.quality)
	}

	var items []dataset.Item
	switch {
	case opts.dryRun:
		log.Info("dry run: using mock ads")
		items = dataset.MockItems()
	case opts.input == "":
		return fmt.Errorf("--input is required unless --dry-run is set")
	default:
		if items, err = dataset.LoadItems(opts.input); err != nil {
			return err
		}
	}

	records := dataset.Records(items, dataset.BuildOptions{Quality: quality, DryRun: opts.dryRun})
	found := len(records)
	records = dataset.FilterByLikes(records, opts.minLikes)
	if opts.limit > 0 && len(records) > opts.limit {
		records = records[:opts.limit]
	}
	log.WithFields(map[string]any{
		"found":     found,
		"kept":      len(records),
		"min_likes": opts.minLikes,
		"quality":   quality,
	}).Info("ads ready for analysis")

	sched, err := newScheduler(cfg, log, nil, opts.workers)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results := sched.Run(ctx, records)
	rows := aggregator.Assemble(records, results, time.Now())
	stats := aggregator.Stats(records, results)

	if err := writeRows(opts, rows); err != nil {
		return err
	}
	log.WithFields(map[string]any{
		"total":       stats.Total,
		"ok":          stats.OK,
		"errors":      stats.Errors,
		"skipped":     stats.Skipped,
		"out":         opts.out,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("analysis complete")
	return nil
}

func writeRows(opts analyzeFlags, rows []types.Row) error {
	if !opts.asJSON {
		return dataset.WriteWorkbook(opts.out, aggregator.Headers, rows)
	}
	if opts.out == "-" {
		return dataset.WriteJSON(os.Stdout, aggregator.Headers, rows)
	}
	out := opts.out
	if strings.HasSuffix(strings.ToLower(out), ".xlsx") {
		out = out[:len(out)-len(".xlsx")] + ".json"
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := dataset.WriteJSON(f, aggregator.Headers, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
