package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
)

// ExtractPCM decodes the first audio track to mono signed 16-bit
// little-endian samples at the given rate, streamed over stdout. The result
// depends only on the file contents, which keeps downstream scoring pure.
func (e *Executor) ExtractPCM(ctx context.Context, input string, sampleRate int) ([]int16, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	e.logger.Debug().
		Str("input", input).
		Int("sample_rate", sampleRate).
		Msg("extracting pcm samples")

	args := []string{
		"-v", "error",
		"-i", input,
		"-vn",
		"-map", "0:a:0",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", "1",
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	raw, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pcm extraction failed: %w (%s)", err, stderr.String())
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}

	e.logger.Debug().Int("samples", len(samples)).Msg("pcm extraction complete")
	return samples, nil
}
