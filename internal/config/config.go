package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zarelli/clipforge/internal/shorts"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration. It is loaded once, validated,
// and passed into the pipeline as an immutable value.
type Config struct {
	OutputDir     string `yaml:"output_dir"`
	TempDir       string `yaml:"temp_dir"`
	MaxConcurrent int    `yaml:"max_concurrent"`

	Shorts   ShortsConfig   `yaml:"shorts"`
	Render   RenderConfig   `yaml:"render"`
	Layout   LayoutConfig   `yaml:"layout"`
	Analysis AnalysisConfig `yaml:"analysis"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
}

type ShortsConfig struct {
	Duration      float64 `yaml:"duration"`        // seconds per short
	CountPerVideo int     `yaml:"count_per_video"` // requested shorts per source
	MinSpacing    float64 `yaml:"min_spacing"`     // min seconds between segment starts
}

type RenderConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	FPS          int    `yaml:"fps"`
	VideoCodec   string `yaml:"video_codec"`
	AudioCodec   string `yaml:"audio_codec"`
	VideoBitrate string `yaml:"video_bitrate"`
	AudioBitrate string `yaml:"audio_bitrate"`
	Preset       string `yaml:"preset"`
}

type LayoutConfig struct {
	TopFraction    float64         `yaml:"top_fraction"`
	BottomFraction float64         `yaml:"bottom_fraction"`
	CameraCrop     shorts.CropRect `yaml:"camera_crop"`
	ContentCrop    shorts.CropRect `yaml:"content_crop"`
}

type AnalysisConfig struct {
	SampleRate      int `yaml:"sample_rate"`      // PCM decode rate for scoring
	SmoothingWindow int `yaml:"smoothing_window"` // moving-average width, in windows
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads"`
}

// Load reads configuration from file or returns defaults. A missing file is
// not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Shorts.Duration <= 0 {
		return fmt.Errorf("shorts.duration must be positive, got %v", c.Shorts.Duration)
	}
	if c.Shorts.CountPerVideo <= 0 {
		return fmt.Errorf("shorts.count_per_video must be positive, got %d", c.Shorts.CountPerVideo)
	}
	if c.Shorts.MinSpacing < c.Shorts.Duration {
		return fmt.Errorf("shorts.min_spacing (%v) must be at least shorts.duration (%v)",
			c.Shorts.MinSpacing, c.Shorts.Duration)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent)
	}
	if sum := c.Layout.TopFraction + c.Layout.BottomFraction; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("layout fractions must sum to 1.0, got %v", sum)
	}
	if !c.Layout.CameraCrop.Valid() {
		return fmt.Errorf("layout.camera_crop is outside the unit frame")
	}
	if !c.Layout.ContentCrop.Valid() {
		return fmt.Errorf("layout.content_crop is outside the unit frame")
	}
	if c.Analysis.SampleRate <= 0 {
		return fmt.Errorf("analysis.sample_rate must be positive, got %d", c.Analysis.SampleRate)
	}
	return nil
}

// RenderSpec resolves the fixed output format for a layout. When no explicit
// resolution is configured, passthrough defaults to 720x1280 and split-screen
// to 1080x1920.
func (c *Config) RenderSpec(kind shorts.LayoutKind) shorts.RenderSpec {
	spec := shorts.RenderSpec{
		Width:        c.Render.Width,
		Height:       c.Render.Height,
		FPS:          c.Render.FPS,
		VideoCodec:   c.Render.VideoCodec,
		AudioCodec:   c.Render.AudioCodec,
		VideoBitrate: c.Render.VideoBitrate,
		AudioBitrate: c.Render.AudioBitrate,
		Preset:       c.Render.Preset,
	}
	if spec.Width == 0 || spec.Height == 0 {
		if kind == shorts.LayoutSplitScreen {
			spec.Width, spec.Height = 1080, 1920
		} else {
			spec.Width, spec.Height = 720, 1280
		}
	}
	return spec
}

// LayoutMode resolves the tagged layout variant for a run from the format
// name given on the command line ("normal" or "screen").
func (c *Config) LayoutMode(format string) (shorts.LayoutMode, error) {
	switch format {
	case "", "normal":
		return shorts.Passthrough(), nil
	case "screen":
		return shorts.SplitScreen(
			c.Layout.TopFraction,
			c.Layout.BottomFraction,
			c.Layout.CameraCrop,
			c.Layout.ContentCrop,
		), nil
	default:
		return shorts.LayoutMode{}, fmt.Errorf("unknown format %q (want normal or screen)", format)
	}
}

func defaultConfig() *Config {
	return &Config{
		OutputDir:     "./shorts",
		TempDir:       "",
		MaxConcurrent: 2,
		Shorts: ShortsConfig{
			Duration:      60,
			CountPerVideo: 7,
			MinSpacing:    75,
		},
		Render: RenderConfig{
			FPS:          30,
			VideoCodec:   "libx264",
			AudioCodec:   "aac",
			VideoBitrate: "2M",
			AudioBitrate: "128k",
			Preset:       "medium",
		},
		Layout: LayoutConfig{
			TopFraction:    0.45,
			BottomFraction: 0.55,
			// Camera defaults to the top-right corner overlay common in
			// screen recordings; content to the remaining left portion.
			CameraCrop:  shorts.CropRect{X: 0.70, Y: 0.0, W: 0.30, H: 0.35},
			ContentCrop: shorts.CropRect{X: 0.0, Y: 0.0, W: 0.70, H: 1.0},
		},
		Analysis: AnalysisConfig{
			SampleRate:      16000,
			SmoothingWindow: 5,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			Threads:    0,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".clipforge", "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// WithConfig stores config in context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
