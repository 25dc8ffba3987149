package processor

import (
	"context"
	"time"

	"ad-insights-go/internal/extractor"
	"ad-insights-go/internal/media"
	"ad-insights-go/internal/metrics"
	"ad-insights-go/internal/types"
)

// Ladder tier names, as logged and counted.
const (
	TierFast     = "fast"
	TierFull     = "full"
	TierPreview  = "preview"
	TierTextOnly = "text_only"
)

// analyzeVideo walks the degradation ladder: full video, then preview
// image, then ad text alone. Fast quality short-circuits to the preview
// image or the text strategy and never transcodes.
func (a *Analyzer) analyzeVideo(ctx context.Context, j *job) types.AnalysisResult {
	q := types.ParseQuality(string(j.rec.Quality))
	if q == types.QualityFast {
		a.metrics.IncTier(TierFast, metrics.OutcomeOK)
		if j.rec.PreviewImageURL != "" {
			return a.analyzeImage(ctx, j, j.rec.PreviewImageURL, false)
		}
		return a.analyzeText(ctx, j)
	}

	if res, ok := a.fullTier(ctx, j, q); ok {
		return res
	}
	if res, ok := a.previewTier(ctx, j); ok {
		return res
	}
	return a.textOnlyTier(ctx, j)
}

func (a *Analyzer) fullTier(ctx context.Context, j *job, q types.Quality) (types.AnalysisResult, bool) {
	preset, ok := media.PresetFor(q)
	if !ok || j.rec.VideoURL == "" || j.scratch == nil {
		a.metrics.IncTier(TierFull, metrics.OutcomeSkipped)
		return types.AnalysisResult{}, false
	}
	log := j.log.WithField("tier", TierFull).WithField("quality", q)

	uri, ok := a.videoPayload(ctx, j, preset)
	if !ok {
		a.metrics.IncTier(TierFull, metrics.OutcomeFailed)
		return types.AnalysisResult{}, false
	}

	for i, model := range a.chain {
		start := time.Now()
		res := a.client.Analyze(ctx, extractor.Request{
			Prompt:    videoPrompt(j.rec.Text),
			MediaURI:  uri,
			MediaKind: media.KindVideo,
			Model:     model,
		})
		mlog := log.WithField("model", model).WithField("duration_ms", time.Since(start).Milliseconds())
		if res.OK() {
			mlog.Info("video analyzed")
			a.metrics.IncTier(TierFull, metrics.OutcomeOK)
			return types.AnalysisResult{
				Summary:          firstString(res.Fields, "summary"),
				VideoDescription: firstString(res.Fields, "video_description", "description"),
			}, true
		}
		mlog.WithError(res.Err).WithField("attempt", i+1).Warn("video model failed, trying next")
		if ctx.Err() != nil {
			break
		}
	}

	log.WithField("models", len(a.chain)).Warn("video model chain exhausted")
	a.metrics.IncTier(TierFull, metrics.OutcomeFailed)
	return types.AnalysisResult{}, false
}

// videoPayload downloads and transcodes the video. The original is dropped
// once a transcoded copy exists; the encoded copy is dropped after encoding.
func (a *Analyzer) videoPayload(ctx context.Context, j *job, preset media.Preset) (string, bool) {
	log := j.log.WithField("tier", TierFull)

	start := time.Now()
	src, err := media.Download(ctx, a.fetcher, j.scratch, j.rec.VideoURL)
	if err != nil {
		log.WithError(err).Warn("video download failed")
		return "", false
	}
	log = log.WithField("download_ms", time.Since(start).Milliseconds())

	start = time.Now()
	out, ok := a.transcoder.Transcode(ctx, j.scratch, src, media.KindVideo, &preset)
	if out.Path != src.Path {
		j.scratch.Drop(src)
	}
	log = log.WithField("transcode_ms", time.Since(start).Milliseconds())
	if !ok {
		log.Warn("video transcode produced no payload")
		return "", false
	}

	start = time.Now()
	uri, ok := media.EncodeAsset(out, media.KindVideo)
	j.scratch.Drop(out)
	log = log.WithField("encode_ms", time.Since(start).Milliseconds())
	if !ok {
		log.Warn("video could not be encoded")
		return "", false
	}
	log.Debug("video payload prepared")
	return uri, true
}

func (a *Analyzer) previewTier(ctx context.Context, j *job) (types.AnalysisResult, bool) {
	if j.rec.PreviewImageURL == "" {
		a.metrics.IncTier(TierPreview, metrics.OutcomeSkipped)
		return types.AnalysisResult{}, false
	}
	uri, ok := a.imagePayload(ctx, j, j.rec.PreviewImageURL, false)
	if !ok {
		a.metrics.IncTier(TierPreview, metrics.OutcomeFailed)
		return types.AnalysisResult{}, false
	}

	start := time.Now()
	res := a.client.Analyze(ctx, extractor.Request{
		Prompt:    videoPreviewPrompt(j.rec.Text),
		MediaURI:  uri,
		MediaKind: media.KindImage,
		Model:     a.model,
	})
	j.log.WithField("tier", TierPreview).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("video analyzed from preview image")
	a.metrics.IncTier(TierPreview, metrics.OutcomeOK)
	return types.AnalysisResult{
		Summary:          firstString(res.Fields, "summary", extractor.RawResponseKey),
		VideoDescription: firstString(res.Fields, "video_description", "description"),
	}, true
}

func (a *Analyzer) textOnlyTier(ctx context.Context, j *job) types.AnalysisResult {
	start := time.Now()
	res := a.client.Analyze(ctx, extractor.Request{Prompt: videoTextOnlyPrompt(j.rec.Text), Model: a.model})
	j.log.WithField("tier", TierTextOnly).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("video analyzed from ad text only")
	a.metrics.IncTier(TierTextOnly, metrics.OutcomeOK)

	desc := firstString(res.Fields, "video_description", "description")
	if desc == "" {
		desc = TextOnlyVideoNote
	}
	return types.AnalysisResult{
		Summary:          firstString(res.Fields, "summary", extractor.RawResponseKey),
		VideoDescription: desc,
	}
}
