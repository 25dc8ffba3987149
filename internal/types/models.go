package types

import "strings"

type AdType string

const (
	AdText  AdType = "Text"
	AdImage AdType = "Image"
	AdVideo AdType = "Video"
)

// Quality selects the video transcode preset. Fast skips transcoding and
// analyzes the preview image instead.
type Quality string

const (
	QualityFast   Quality = "fast"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality maps unknown or empty values to medium.
func ParseQuality(s string) Quality {
	switch Quality(strings.ToLower(strings.TrimSpace(s))) {
	case QualityFast:
		return QualityFast
	case QualityHigh:
		return QualityHigh
	default:
		return QualityMedium
	}
}

// AdMeta is the scraped metadata carried through to the output row.
// Fields typed as any may hold nested scraped values; they are flattened by
// the aggregator.
type AdMeta struct {
	PageName      string `json:"page_name,omitempty"`
	PageURL       string `json:"page_url,omitempty"`
	PageLikes     any    `json:"page_likes,omitempty"`
	StartDate     any    `json:"start_date,omitempty"`
	EndDate       any    `json:"end_date,omitempty"`
	IsActive      any    `json:"is_active,omitempty"`
	Platforms     any    `json:"platforms,omitempty"`
	CTAText       any    `json:"cta_text,omitempty"`
	CTAType       any    `json:"cta_type,omitempty"`
	LinkURL       any    `json:"link_url,omitempty"`
	DisplayFormat any    `json:"display_format,omitempty"`
}

// AdRecord is built once per ad at ingestion and read-only afterwards.
type AdRecord struct {
	ID              string  `json:"id"`
	Type            AdType  `json:"type"`
	Text            string  `json:"text"`
	ImageURL        string  `json:"image_url,omitempty"`
	VideoURL        string  `json:"video_url,omitempty"`
	PreviewImageURL string  `json:"preview_image_url,omitempty"`
	Quality         Quality `json:"quality"`
	DryRun          bool    `json:"dry_run,omitempty"`
	Meta            AdMeta  `json:"meta"`
}

const (
	NotAvailable  = "N/A"
	ErrorMarker   = "Error"
	SkippedMarker = "Skipped (No Key)"
)

type AnalysisResult struct {
	Summary          string `json:"summary"`
	ImageDescription string `json:"image_description"`
	VideoDescription string `json:"video_description"`
}

// Normalize fills every empty field with N/A. Applying it twice is a no-op.
func (r AnalysisResult) Normalize() AnalysisResult {
	if strings.TrimSpace(r.Summary) == "" {
		r.Summary = NotAvailable
	}
	if strings.TrimSpace(r.ImageDescription) == "" {
		r.ImageDescription = NotAvailable
	}
	if strings.TrimSpace(r.VideoDescription) == "" {
		r.VideoDescription = NotAvailable
	}
	return r
}

// Failed is the result recorded for a job that could not be analyzed.
func Failed() AnalysisResult {
	return AnalysisResult{Summary: ErrorMarker, ImageDescription: ErrorMarker, VideoDescription: ErrorMarker}
}

// Skipped is the result when no inference key is configured.
func Skipped() AnalysisResult {
	return AnalysisResult{Summary: SkippedMarker, ImageDescription: SkippedMarker, VideoDescription: SkippedMarker}
}

// Row is one flat output row, cells in aggregator.Headers order.
type Row []string

// IsError reports whether the job produced no usable analysis.
func (r AnalysisResult) IsError() bool { return r.Summary == ErrorMarker }

// IsSkipped reports whether inference was never attempted for lack of a key.
func (r AnalysisResult) IsSkipped() bool { return r.Summary == SkippedMarker }
