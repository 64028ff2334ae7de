package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/zarelli/clipforge/internal/shorts"
	"github.com/zarelli/clipforge/pkg/util"
)

// ProbeVideo inspects a media file and returns its immutable handle. It is
// read-only: nothing is written anywhere. Failures wrap *shorts.ProbeError.
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (shorts.SourceVideo, error) {
	if filePath == "" {
		return shorts.SourceVideo{}, &shorts.ProbeError{Path: filePath, Err: fmt.Errorf("file path is required")}
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return shorts.SourceVideo{}, &shorts.ProbeError{Path: filePath, Err: fmt.Errorf("ffprobe failed: %w", err)}
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return shorts.SourceVideo{}, &shorts.ProbeError{Path: filePath, Err: fmt.Errorf("parse ffprobe output: %w", err)}
	}

	src := shorts.SourceVideo{
		Path:  filePath,
		Title: util.BaseTitle(filePath),
	}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		src.Duration = dur
	}

	hasVideo := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			hasVideo = true
			src.Width = stream.Width
			src.Height = stream.Height
			if stream.RFrameRate != "" {
				src.FPS = util.ParseFrameRate(stream.RFrameRate)
			}
		case "audio":
			src.HasAudio = true
		}
	}

	if !hasVideo {
		return shorts.SourceVideo{}, &shorts.ProbeError{Path: filePath, Err: fmt.Errorf("no video stream in container")}
	}
	if src.Duration <= 0 {
		return shorts.SourceVideo{}, &shorts.ProbeError{Path: filePath, Err: fmt.Errorf("zero or unknown duration")}
	}

	return src, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}
