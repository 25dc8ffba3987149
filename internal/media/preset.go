package media

import (
	"time"

	"ad-insights-go/internal/types"
)

// Preset bounds a transcode so the payload stays inference-friendly.
type Preset struct {
	Name         types.Quality
	MaxWidth     int
	MaxHeight    int
	FrameRate    int
	VideoBitrate int // kbit/s
	MaxRate      int // kbit/s
	BufSize      int // kbit
	MaxDuration  time.Duration
}

// Valid reports whether every numeric field is set.
func (p Preset) Valid() bool {
	return p.MaxWidth > 0 && p.MaxHeight > 0 && p.FrameRate > 0 &&
		p.VideoBitrate > 0 && p.MaxRate > 0 && p.BufSize > 0 && p.MaxDuration > 0
}

var presets = map[types.Quality]Preset{
	types.QualityMedium: {
		Name:         types.QualityMedium,
		MaxWidth:     854,
		MaxHeight:    480,
		FrameRate:    24,
		VideoBitrate: 800,
		MaxRate:      1000,
		BufSize:      1600,
		MaxDuration:  60 * time.Second,
	},
	types.QualityHigh: {
		Name:         types.QualityHigh,
		MaxWidth:     1280,
		MaxHeight:    720,
		FrameRate:    30,
		VideoBitrate: 2000,
		MaxRate:      2500,
		BufSize:      4000,
		MaxDuration:  120 * time.Second,
	},
}

// PresetFor returns the transcode preset for q. Fast has none: it never
// transcodes.
func PresetFor(q types.Quality) (Preset, bool) {
	p, ok := presets[q]
	return p, ok
}
