package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ad-insights-go/internal/config"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/metrics"
	"ad-insights-go/internal/types"
)

// AnalyzeFunc analyzes one record. It must be safe for concurrent use.
type AnalyzeFunc func(ctx context.Context, rec types.AdRecord) types.AnalysisResult

type Option func(*Scheduler)

func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

func WithMetrics(m *metrics.Jobs) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler runs analysis jobs on a bounded pool of workers.
type Scheduler struct {
	workers int
	analyze AnalyzeFunc
	log     *logger.Logger
	metrics *metrics.Jobs
}

func New(workers int, analyze AnalyzeFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		workers: config.ClampWorkers(workers),
		analyze: analyze,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.New()
	}
	return s
}

type outcome struct {
	id     string
	result types.AnalysisResult
}

// Run analyzes every record and returns one result per record id. It blocks
// until all jobs have finished. Records not yet started when ctx is done are
// recorded as failed. If ids repeat, the last result to complete wins.
func (s *Scheduler) Run(ctx context.Context, records []types.AdRecord) map[string]types.AnalysisResult {
	results := make(map[string]types.AnalysisResult, len(records))
	if len(records) == 0 {
		return results
	}

	workers := min(s.workers, len(records))
	jobs := make(chan types.AdRecord)
	done := make(chan outcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go s.worker(ctx, i, jobs, done, &wg)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, rec := range records {
			select {
			case jobs <- rec:
			case <-ctx.Done():
				s.log.WithField("remaining", len(records)-i).Warn("run cancelled, failing undispatched jobs")
				for _, r := range records[i:] {
					done <- outcome{id: r.ID, result: types.Failed()}
				}
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	start := time.Now()
	for o := range done {
		results[o.id] = o.result
	}
	s.log.WithFields(logrus.Fields{
		"jobs":        len(records),
		"workers":     workers,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("run finished")
	return results
}

func (s *Scheduler) worker(ctx context.Context, id int, jobs <-chan types.AdRecord, done chan<- outcome, wg *sync.WaitGroup) {
	defer wg.Done()
	for rec := range jobs {
		done <- outcome{id: rec.ID, result: s.runJob(ctx, id, rec)}
	}
}

// runJob isolates one job: a panic becomes a failed result.
func (s *Scheduler) runJob(ctx context.Context, worker int, rec types.AdRecord) (res types.AnalysisResult) {
	log := s.log.WithJob(rec.ID, string(rec.Type)).WithField("worker", worker)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("job panicked")
			res = types.Failed()
		}
		d := time.Since(start)
		s.metrics.ObserveJob(string(rec.Type), outcomeLabel(res), d)
		log.WithField("duration_ms", d.Milliseconds()).Info("job finished")
	}()

	if ctx.Err() != nil {
		log.Warn("job cancelled before start")
		return types.Failed()
	}
	return s.analyze(ctx, rec).Normalize()
}

func outcomeLabel(r types.AnalysisResult) string {
	switch {
	case r.IsError():
		return metrics.OutcomeError
	case r.IsSkipped():
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeOK
	}
}
