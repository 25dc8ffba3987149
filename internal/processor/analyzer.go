package processor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ad-insights-go/internal/extractor"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/media"
	"ad-insights-go/internal/metrics"
	"ad-insights-go/internal/types"
)

// DryRunSummary is the summary recorded for dry-run records.
const DryRunSummary = "Dry run"

// TextOnlyVideoNote stands in for a video description the model did not give.
const TextOnlyVideoNote = "Video preview unavailable; description inferred from ad text only."

// Options wires an Analyzer. Client, Fetcher, Transcoder and Store are
// required unless EnableInference is false.
type Options struct {
	Client     extractor.Client
	Fetcher    media.Fetcher
	Transcoder media.Transcoder
	Store      *media.Store
	Metrics    *metrics.Jobs
	Log        *logger.Logger

	Model           string
	VideoModels     []string
	EnableInference bool
}

// Analyzer turns one AdRecord into an AnalysisResult. It is safe for
// concurrent use: all per-job state lives in the job's scratch area.
type Analyzer struct {
	client     extractor.Client
	fetcher    media.Fetcher
	transcoder media.Transcoder
	store      *media.Store
	metrics    *metrics.Jobs
	log        *logger.Logger

	model   string
	chain   []string
	enabled bool
}

func New(opts Options) *Analyzer {
	log := opts.Log
	if log == nil {
		log = logger.New()
	}
	return &Analyzer{
		client:     opts.Client,
		fetcher:    opts.Fetcher,
		transcoder: opts.Transcoder,
		store:      opts.Store,
		metrics:    opts.Metrics,
		log:        log,
		model:      opts.Model,
		chain:      append([]string(nil), opts.VideoModels...),
		enabled:    opts.EnableInference,
	}
}

// job carries the per-record state threaded through the strategies.
type job struct {
	rec     types.AdRecord
	log     *logrus.Entry
	scratch *media.Scratch // nil when no scratch area could be acquired
}

// Analyze dispatches by ad type. The returned result is always normalized.
func (a *Analyzer) Analyze(ctx context.Context, rec types.AdRecord) types.AnalysisResult {
	log := a.log.WithJob(rec.ID, string(rec.Type))

	if rec.DryRun {
		log.Debug("dry run, skipping analysis")
		return types.AnalysisResult{Summary: DryRunSummary}.Normalize()
	}
	if !a.enabled {
		log.Debug("no inference key configured, skipping")
		return types.Skipped()
	}

	j := &job{rec: rec, log: log}
	if rec.Type == types.AdImage || rec.Type == types.AdVideo {
		s, err := a.store.Acquire(rec.ID)
		if err != nil {
			log.WithError(err).Warn("scratch area unavailable")
		} else {
			j.scratch = s
			defer func() {
				if err := s.Release(); err != nil {
					log.WithError(err).Warn("scratch cleanup failed")
				}
			}()
		}
	}

	var res types.AnalysisResult
	switch rec.Type {
	case types.AdVideo:
		res = a.analyzeVideo(ctx, j)
	case types.AdImage:
		res = a.analyzeImage(ctx, j, rec.ImageURL, true)
	default:
		res = a.analyzeText(ctx, j)
	}
	return res.Normalize()
}

func (a *Analyzer) analyzeText(ctx context.Context, j *job) types.AnalysisResult {
	start := time.Now()
	res := a.client.Analyze(ctx, extractor.Request{Prompt: textPrompt(j.rec.Text), Model: a.model})
	j.log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("text analysis done")
	return types.AnalysisResult{
		Summary: firstString(res.Fields, "summary", extractor.RawResponseKey),
	}
}

// analyzeImage never calls the model when no payload can be produced.
func (a *Analyzer) analyzeImage(ctx context.Context, j *job, url string, normalize bool) types.AnalysisResult {
	uri, ok := a.imagePayload(ctx, j, url, normalize)
	if !ok {
		return types.AnalysisResult{Summary: types.ErrorMarker, ImageDescription: types.ErrorMarker}
	}

	start := time.Now()
	res := a.client.Analyze(ctx, extractor.Request{
		Prompt:    imagePrompt(j.rec.Text),
		MediaURI:  uri,
		MediaKind: media.KindImage,
		Model:     a.model,
	})
	j.log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("image inference done")
	return types.AnalysisResult{
		Summary:          firstString(res.Fields, "summary", extractor.RawResponseKey),
		ImageDescription: firstString(res.Fields, "image_description", "description"),
	}
}

// imagePayload downloads and encodes an image, normalizing it through the
// transcoder when asked. Without normalization the download must already be
// an accepted image type. Intermediate files are dropped as soon as they are
// no longer needed.
func (a *Analyzer) imagePayload(ctx context.Context, j *job, url string, normalize bool) (string, bool) {
	if j.scratch == nil || strings.TrimSpace(url) == "" {
		return "", false
	}
	log := j.log.WithField("url", url)

	start := time.Now()
	src, err := media.Download(ctx, a.fetcher, j.scratch, url)
	if err != nil {
		log.WithError(err).Warn("image download failed")
		return "", false
	}
	log = log.WithField("download_ms", time.Since(start).Milliseconds())

	start = time.Now()
	out, ok := src, true
	if normalize {
		out, ok = a.transcoder.Transcode(ctx, j.scratch, src, media.KindImage, nil)
		if out.Path != src.Path {
			j.scratch.Drop(src)
		}
	} else {
		out.MIME, ok = media.Acceptable(src.Path, media.KindImage)
		if !ok {
			j.scratch.Drop(src)
		}
	}
	if !ok {
		log.Warn("image could not be normalized")
		return "", false
	}

	uri, ok := media.EncodeAsset(out, media.KindImage)
	j.scratch.Drop(out)
	log.WithField("prepare_ms", time.Since(start).Milliseconds()).Debug("image payload prepared")
	return uri, ok
}

// firstString returns the first present, non-blank value among keys.
// Non-string values are rendered as compact JSON.
func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if strings.TrimSpace(s) != "" {
				return s
			}
			continue
		}
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return ""
}
