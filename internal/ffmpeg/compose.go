package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zarelli/clipforge/internal/shorts"
	"github.com/zarelli/clipforge/pkg/util"
)

// ComposeSegment cuts one segment from the source and frames it into the
// target canvas according to the layout. The output is an intermediate clip
// in the caller's scoped temp location; the final format guarantees are the
// encoder's job.
func (e *Executor) ComposeSegment(ctx context.Context, input string, opts ComposeOptions) error {
	seg := opts.Segment
	if seg.Duration() <= 0 {
		return fmt.Errorf("invalid segment duration: end must be after start")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Layout.Kind == shorts.LayoutSplitScreen {
		if sum := opts.Layout.TopFraction + opts.Layout.BottomFraction; sum < 0.999 || sum > 1.001 {
			return fmt.Errorf("split-screen fractions must sum to 1.0, got %v", sum)
		}
		if !opts.Layout.CameraCrop.Valid() || !opts.Layout.ContentCrop.Valid() {
			return fmt.Errorf("split-screen crop rectangles must lie inside the frame")
		}
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0755); err != nil {
		return fmt.Errorf("create compose dir: %w", err)
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Str("layout", opts.Layout.Kind.String()).
		Float64("start", seg.Start).
		Float64("duration", seg.Duration()).
		Msg("composing segment")

	args := []string{
		"-i", input,
		"-ss", util.FormatSeconds(seg.Start),
		"-t", util.FormatSeconds(seg.Duration()),
	}

	switch opts.Layout.Kind {
	case shorts.LayoutSplitScreen:
		args = append(args,
			"-filter_complex", splitScreenGraph(opts.Layout, opts.Spec),
			"-map", "[v]",
			"-map", "0:a:0",
		)
	default:
		args = append(args, "-vf", passthroughChain(opts.Spec))
	}

	args = append(args,
		"-c:v", DefaultVideoCodec,
		"-preset", composePreset,
		"-crf", fmt.Sprintf("%d", composeCRF),
		"-c:a", DefaultAudioCodec,
		opts.Output,
	)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("compose")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		// Never leave a half-written intermediate behind.
		os.Remove(opts.Output)
		return fmt.Errorf("segment composition failed: %w", err)
	}

	e.logger.Debug().Str("output", opts.Output).Msg("compose complete")
	return nil
}
