package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"ad-insights-go/internal/types"
)

// MaxWorkers is the hard ceiling on concurrent analysis jobs.
const MaxWorkers = 16

// EnvFFmpegPath overrides transcoder binary lookup.
const EnvFFmpegPath = "FFMPEG_PATH"

// ffmpegCandidates are checked in order after the override.
var ffmpegCandidates = []string{
	"/usr/bin/ffmpeg",
	"/usr/local/bin/ffmpeg",
	"/opt/homebrew/bin/ffmpeg",
}

// Config is resolved once at start-up and never mutated afterwards.
type Config struct {
	APIKey      string   `envconfig:"OPENROUTER_API_KEY"`
	BaseURL     string   `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	Model       string   `envconfig:"ADSPY_MODEL" default:"openai/gpt-4o"`
	VideoModels []string `envconfig:"ADSPY_VIDEO_MODELS" default:"google/gemini-2.5-flash,google/gemini-2.0-flash-001"`

	Workers    int    `envconfig:"ADSPY_WORKERS" default:"4"`
	Quality    string `envconfig:"ADSPY_VIDEO_QUALITY" default:"medium"`
	ScratchDir string `envconfig:"ADSPY_SCRATCH_DIR" default:".tmp"`
	Port       string `envconfig:"PORT" default:"8080"`

	InferenceTimeout   time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"60s"`
	DownloadTimeout    time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"60s"`
	DownloadMaxElapsed time.Duration `envconfig:"DOWNLOAD_MAX_ELAPSED" default:"20s"`
	TranscodeTimeout   time.Duration `envconfig:"TRANSCODE_TIMEOUT" default:"5m"`

	// FFmpegPath is filled by Load from ResolveFFmpeg.
	FFmpegPath string `ignored:"true"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // loads .env

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.FFmpegPath = ResolveFFmpeg(os.Getenv, fileExists)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("ADSPY_MODEL must not be empty"))
	}
	if len(c.VideoModels) == 0 {
		errs = append(errs, errors.New("ADSPY_VIDEO_MODELS must list at least one model"))
	}
	for name, d := range map[string]time.Duration{
		"INFERENCE_TIMEOUT":    c.InferenceTimeout,
		"DOWNLOAD_TIMEOUT":     c.DownloadTimeout,
		"DOWNLOAD_MAX_ELAPSED": c.DownloadMaxElapsed,
		"TRANSCODE_TIMEOUT":    c.TranscodeTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}

// HasAPIKey reports whether inference can run at all.
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// VideoQuality returns the configured default quality.
func (c *Config) VideoQuality() types.Quality {
	return types.ParseQuality(c.Quality)
}

// EffectiveWorkers clamps the configured worker count into [1, MaxWorkers].
func (c *Config) EffectiveWorkers() int {
	return ClampWorkers(c.Workers)
}

func ClampWorkers(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// ResolveFFmpeg checks the override variable, then conventional install
// locations, then falls back to a PATH lookup of "ffmpeg" at exec time.
func ResolveFFmpeg(getenv func(string) string, exists func(string) bool) string {
	if p := strings.TrimSpace(getenv(EnvFFmpegPath)); p != "" && exists(p) {
		return p
	}
	for _, p := range ffmpegCandidates {
		if exists(p) {
			return p
		}
	}
	return "ffmpeg"
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
