package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zarelli/clipforge/internal/shorts"
)

// partialPath returns the staging path an encode writes to before the final
// rename. It lives in the same directory as the final path so the rename is
// atomic, and never collides with a published name.
func partialPath(final string) string {
	dir, base := filepath.Split(final)
	return filepath.Join(dir, "."+base+".partial")
}

// EncodeShort finalizes a composed clip into a published artifact. The
// output is verified to carry a video stream at the requested resolution and
// an audio stream; an output that comes back silent is deleted and reported
// as an audio mux failure rather than shipped. The file appears at the final
// path only after verification, via rename from a staging path.
func (e *Executor) EncodeShort(ctx context.Context, input string, opts EncodeOptions) (shorts.ShortArtifact, error) {
	var artifact shorts.ShortArtifact

	if input == "" {
		return artifact, fmt.Errorf("input path is required")
	}
	if opts.Output == "" {
		return artifact, fmt.Errorf("output path is required")
	}
	spec := opts.Spec
	if spec.Width <= 0 || spec.Height <= 0 {
		return artifact, fmt.Errorf("render spec resolution is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0755); err != nil {
		return artifact, fmt.Errorf("create output dir: %w", err)
	}

	staging := partialPath(opts.Output)
	defer os.Remove(staging)

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Int("width", spec.Width).
		Int("height", spec.Height).
		Int("fps", spec.FPS).
		Msg("encoding short")

	videoCodec := spec.VideoCodec
	if videoCodec == "" {
		videoCodec = DefaultVideoCodec
	}
	audioCodec := spec.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	preset := spec.Preset
	if preset == "" {
		preset = DefaultPreset
	}

	filters := NewFilterBuilder().
		Scale(spec.Width, spec.Height).
		FPS(spec.FPS).
		Build()

	args := []string{
		"-i", input,
		"-vf", filters,
		"-c:v", videoCodec,
		"-preset", preset,
		"-c:a", audioCodec,
	}
	if spec.VideoBitrate != "" {
		args = append(args, "-b:v", spec.VideoBitrate)
	}
	if spec.AudioBitrate != "" {
		args = append(args, "-b:a", spec.AudioBitrate)
	}
	args = append(args,
		"-movflags", "+faststart",
		"-f", "mp4",
		staging,
	)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("encode")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return artifact, fmt.Errorf("encode failed: %w", err)
	}

	info, err := os.Stat(staging)
	if err != nil {
		return artifact, fmt.Errorf("encoded file missing: %w", err)
	}
	if info.Size() == 0 {
		return artifact, fmt.Errorf("encoded file is empty")
	}

	// Verify the hard invariants before publishing.
	probed, err := e.ProbeVideo(ctx, staging)
	if err != nil {
		return artifact, fmt.Errorf("verify encoded file: %w", err)
	}
	if !probed.HasAudio {
		return artifact, shorts.ErrAudioMuxFailure
	}
	if probed.Width != spec.Width || probed.Height != spec.Height {
		return artifact, fmt.Errorf("encoded resolution %dx%d does not match spec %dx%d",
			probed.Width, probed.Height, spec.Width, spec.Height)
	}

	if err := os.Rename(staging, opts.Output); err != nil {
		return artifact, fmt.Errorf("publish encoded file: %w", err)
	}

	artifact = shorts.ShortArtifact{
		Segment:   opts.Segment,
		Index:     opts.Index,
		FilePath:  opts.Output,
		SizeBytes: info.Size(),
		HasAudio:  true,
	}

	e.logger.Info().
		Str("output", opts.Output).
		Int64("size_bytes", artifact.SizeBytes).
		Msg("short encoded")
	return artifact, nil
}
