package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ad-insights-go/internal/types"
)

// Item is one raw scraped ad, either nested JSON as the scraper emits it or
// a flat row from a CSV/xlsx export with slash-separated keys
// ("snapshot/videos/0/video_sd_url").
type Item map[string]any

// Key alternatives, in order of preference.
var (
	idKeys      = []string{"adArchiveID", "ad_archive_id", "adArchiveId"}
	textKeys    = []string{"adCreativeBody", "snapshot/body/text", "snapshot/body"}
	videoKeys   = []string{"video_sd_url", "video_hd_url", "snapshot/videos/0/video_sd_url", "snapshot/videos/0/video_hd_url"}
	previewKeys = []string{"video_preview_image_url", "snapshot/videos/0/video_preview_image_url"}
	imageKeys   = []string{
		"originalImageUrl", "imageUrl",
		"snapshot/images/0/original_image_url", "snapshot/images/0/resized_image_url",
		"snapshot/cards/0/original_image_url", "snapshot/cards/0/resized_image_url",
	}

	pageNameKeys  = []string{"pageName", "page_name", "snapshot/page_name"}
	pageURLKeys   = []string{"pageProfileUri", "page_profile_uri", "snapshot/page_profile_uri"}
	likesKeys     = []string{"snapshot/page_like_count", "page_like_count", "pageLikeCount"}
	startKeys     = []string{"startDateFormatted", "start_date_formatted", "startDate", "start_date"}
	endKeys       = []string{"endDateFormatted", "end_date_formatted", "endDate", "end_date"}
	activeKeys    = []string{"isActive", "is_active"}
	platformKeys  = []string{"publisherPlatform", "publisher_platform"}
	ctaTextKeys   = []string{"snapshot/cta_text", "cta_text", "ctaText"}
	ctaTypeKeys   = []string{"snapshot/cta_type", "cta_type", "ctaType"}
	linkURLKeys   = []string{"snapshot/link_url", "link_url", "linkUrl"}
	displayFmtKey = []string{"snapshot/display_format", "display_format", "displayFormat"}
)

// BuildOptions applies to every record built from a batch of items.
type BuildOptions struct {
	Quality types.Quality
	DryRun  bool
}

// Records converts items to AdRecords. Items without an archive id get a
// positional id so every record id in the batch is distinct.
func Records(items []Item, opts BuildOptions) []types.AdRecord {
	out := make([]types.AdRecord, 0, len(items))
	for i, it := range items {
		rec := FromItem(it, opts.Quality)
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("item-%d", i+1)
		}
		rec.DryRun = opts.DryRun
		out = append(out, rec)
	}
	return out
}

// FromItem resolves alternate key names once and classifies the ad:
// any video makes it a Video ad, else any image an Image ad, else Text.
func FromItem(it Item, q types.Quality) types.AdRecord {
	rec := types.AdRecord{
		ID:              it.str(idKeys...),
		Text:            it.str(textKeys...),
		VideoURL:        it.str(videoKeys...),
		PreviewImageURL: it.str(previewKeys...),
		ImageURL:        it.str(imageKeys...),
		Quality:         q,
		Meta: types.AdMeta{
			PageName:      it.str(pageNameKeys...),
			PageURL:       it.str(pageURLKeys...),
			PageLikes:     it.first(likesKeys...),
			StartDate:     it.first(startKeys...),
			EndDate:       it.first(endKeys...),
			IsActive:      it.first(activeKeys...),
			Platforms:     it.first(platformKeys...),
			CTAText:       it.first(ctaTextKeys...),
			CTAType:       it.first(ctaTypeKeys...),
			LinkURL:       it.first(linkURLKeys...),
			DisplayFormat: it.first(displayFmtKey...),
		},
	}
	switch {
	case rec.VideoURL != "":
		rec.Type = types.AdVideo
	case rec.ImageURL != "":
		rec.Type = types.AdImage
	default:
		rec.Type = types.AdText
	}
	return rec
}

// first returns the first non-empty value among keys. Each key is tried as
// a literal flat key, then as a path into nested maps and slices.
func (it Item) first(keys ...string) any {
	for _, k := range keys {
		v, ok := it[k]
		if !ok && strings.Contains(k, "/") {
			v, ok = walk(map[string]any(it), strings.Split(k, "/"))
		}
		if ok && !empty(v) {
			return v
		}
	}
	return nil
}

// str is first, restricted to scalar values rendered as text.
func (it Item) str(keys ...string) string {
	for _, k := range keys {
		switch v := it.first(k).(type) {
		case string:
			return strings.TrimSpace(v)
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

func walk(v any, path []string) (any, bool) {
	for _, p := range path {
		switch node := v.(type) {
		case map[string]any:
			next, ok := node[p]
			if !ok {
				return nil, false
			}
			v = next
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			v = node[i]
		default:
			return nil, false
		}
	}
	return v, true
}

func empty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// FilterByLikes keeps records whose page like count is at least minLikes.
// Zero or less disables filtering; unknown counts are zero.
func FilterByLikes(records []types.AdRecord, minLikes int) []types.AdRecord {
	if minLikes <= 0 {
		return records
	}
	out := make([]types.AdRecord, 0, len(records))
	for _, r := range records {
		if likes(r.Meta.PageLikes) >= int64(minLikes) {
			out = append(out, r)
		}
	}
	return out
}

func likes(v any) int64 {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return int64(f)
	case float64:
		return int64(x)
	case int:
		return int64(x)
	case int64:
		return x
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
	}
	return 0
}

// MockItems stands in for a scrape in dry-run mode: one ad of each type.
func MockItems() []Item {
	return []Item{
		{
			"adArchiveID":       "mock_text_1",
			"publisherPlatform": []any{"facebook"},
			"pageName":          "Mock AI Agency",
			"pageProfileUri":    "https://facebook.com/mockpage",
			"adCreativeBody":    "Boost your business with AI automation. Save time and money.",
			"snapshot":          map[string]any{"page_like_count": json.Number("15000")},
			"isActive":          true,
		},
		{
			"adArchiveID":    "mock_image_1",
			"pageName":       "Mock Shoe Store",
			"adCreativeBody": "New season sneakers, 30% off this week only.",
			"snapshot": map[string]any{
				"page_like_count": json.Number("4200"),
				"images":          []any{map[string]any{"original_image_url": "https://example.com/mock/sneaker.jpg"}},
				"cta_text":        "Shop now",
			},
			"isActive": true,
		},
		{
			"adArchiveID":    "mock_video_1",
			"pageName":       "Mock Fitness",
			"adCreativeBody": "Get fit in 20 minutes a day.",
			"snapshot": map[string]any{
				"page_like_count": json.Number("98000"),
				"videos": []any{map[string]any{
					"video_sd_url":            "https://example.com/mock/workout.mp4",
					"video_preview_image_url": "https://example.com/mock/workout.jpg",
				}},
			},
			"isActive": false,
		},
	}
}
