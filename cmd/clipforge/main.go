package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zarelli/clipforge/internal/analyze"
	"github.com/zarelli/clipforge/internal/config"
	"github.com/zarelli/clipforge/internal/ffmpeg"
	"github.com/zarelli/clipforge/internal/highlight"
	"github.com/zarelli/clipforge/internal/logging"
	"github.com/zarelli/clipforge/internal/pipeline"
	"github.com/zarelli/clipforge/pkg/util"
)

var (
	cfgFile string
	verbose bool

	runCount  int
	runFormat string
	runOutput string
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipforge",
	Short: "clipforge - turn long videos into vertical shorts",
	Long:  "Slices a source video into vertical shorts by scoring its audio energy, picking the loudest non-overlapping segments, and rendering each one to a publish-ready file.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	runCmd.Flags().IntVarP(&runCount, "count", "n", 0, "shorts to produce (default: config count_per_video)")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "normal", "layout: normal or screen")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output directory (default: config output_dir)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [input video]",
	Short: "Produce shorts from a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if runCount > 0 {
			cfg.Shorts.CountPerVideo = runCount
		}
		if runOutput != "" {
			cfg.OutputDir = runOutput
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		layout, err := cfg.LayoutMode(runFormat)
		if err != nil {
			return err
		}

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		pipe := pipeline.New(cfg, exec, layout, log.Logger)
		manifest, err := pipe.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for _, a := range manifest.Artifacts {
			log.Info().
				Int("index", a.Index).
				Str("file", a.FilePath).
				Str("start", util.FormatSeconds(a.Segment.Start)).
				Msg("short ready")
		}
		for _, f := range manifest.Failures {
			log.Warn().
				Int("index", f.Index).
				Err(f.Reason).
				Msg("segment skipped")
		}

		if manifest.Produced() == 0 {
			return fmt.Errorf("no shorts produced from %s", args[0])
		}
		log.Info().
			Int("produced", manifest.Produced()).
			Int("requested", manifest.Requested).
			Msg("done")
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input video]",
	Short: "Score a video and print its top segments without rendering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		source, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		analyzer := analyze.New(exec,
			cfg.Analysis.SampleRate,
			cfg.Analysis.SmoothingWindow,
			cfg.Shorts.Duration,
			log.Logger)
		curve, err := analyzer.Score(cmd.Context(), source)
		if err != nil {
			return err
		}

		selector := highlightSelector(cfg)
		segments := selector.Select(curve, source.Duration)

		for i, seg := range segments {
			fmt.Printf("%d\t%s - %s\tscore %.3f\n",
				i+1,
				util.FormatSeconds(seg.Start),
				util.FormatSeconds(seg.End),
				seg.Score)
		}
		if len(segments) < cfg.Shorts.CountPerVideo {
			log.Warn().
				Int("requested", cfg.Shorts.CountPerVideo).
				Int("selected", len(segments)).
				Msg("fewer segments than requested fit the source")
		}
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [input video]",
	Short: "Inspect a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		source, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("title:    %s\n", source.Title)
		fmt.Printf("duration: %s\n", util.FormatSeconds(source.Duration))
		fmt.Printf("size:     %dx%d\n", source.Width, source.Height)
		fmt.Printf("fps:      %.2f\n", source.FPS)
		fmt.Printf("audio:    %v\n", source.HasAudio)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func highlightSelector(cfg *config.Config) *highlight.Selector {
	return highlight.New(highlight.Options{
		Duration:   cfg.Shorts.Duration,
		Count:      cfg.Shorts.CountPerVideo,
		MinSpacing: cfg.Shorts.MinSpacing,
	}, log.Logger)
}
