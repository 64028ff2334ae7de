// Package analyze turns a source's audio into a per-second excitement curve.
// The curve is the only signal the selector sees, so everything here is
// deterministic: the same PCM always yields the same scores.
package analyze

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/zarelli/clipforge/internal/shorts"
)

// ScoreCurve holds one smoothed, normalized score per window of source time.
// Scores are in [0,1]; the loudest window in the source is 1.0.
type ScoreCurve struct {
	Step   float64 // window width in seconds
	Scores []float64
}

// Duration returns the span of source time the curve covers.
func (c ScoreCurve) Duration() float64 {
	return float64(len(c.Scores)) * c.Step
}

// PCMSource decodes a media file's first audio track to mono signed 16-bit
// samples at the requested rate.
type PCMSource interface {
	ExtractPCM(ctx context.Context, input string, sampleRate int) ([]int16, error)
}

// Analyzer computes energy curves from source audio.
type Analyzer struct {
	pcm             PCMSource
	sampleRate      int
	smoothingWindow int
	minDuration     float64
	logger          zerolog.Logger
}

// New creates an analyzer. minDuration is the shortest source worth scoring,
// normally the configured short length.
func New(pcm PCMSource, sampleRate, smoothingWindow int, minDuration float64, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		pcm:             pcm,
		sampleRate:      sampleRate,
		smoothingWindow: smoothingWindow,
		minDuration:     minDuration,
		logger:          logger.With().Str("component", "analyze").Logger(),
	}
}

// Score produces the energy curve for a probed source. Sources without an
// audio track or shorter than one short cannot be scored; both are fatal to
// the run and reported as analysis errors.
func (a *Analyzer) Score(ctx context.Context, source shorts.SourceVideo) (ScoreCurve, error) {
	if !source.HasAudio {
		return ScoreCurve{}, &shorts.AnalysisError{Err: shorts.ErrNoAudioTrack}
	}
	if source.Duration < a.minDuration {
		return ScoreCurve{}, &shorts.AnalysisError{
			Err: fmt.Errorf("%w: %.1fs < %.1fs", shorts.ErrTooShort, source.Duration, a.minDuration),
		}
	}

	a.logger.Debug().
		Str("path", source.Path).
		Float64("duration", source.Duration).
		Int("sample_rate", a.sampleRate).
		Msg("extracting audio for scoring")

	samples, err := a.pcm.ExtractPCM(ctx, source.Path, a.sampleRate)
	if err != nil {
		return ScoreCurve{}, &shorts.AnalysisError{Err: fmt.Errorf("extract pcm: %w", err)}
	}
	if len(samples) == 0 {
		return ScoreCurve{}, &shorts.AnalysisError{Err: fmt.Errorf("decoded audio is empty")}
	}

	windows := int(math.Ceil(source.Duration))
	scores := windowRMS(samples, a.sampleRate, windows)
	normalize(scores)
	scores = smooth(scores, a.smoothingWindow)

	a.logger.Debug().Int("windows", len(scores)).Msg("score curve ready")
	return ScoreCurve{Step: 1.0, Scores: scores}, nil
}

// windowRMS computes the root-mean-square level of each one-window slice of
// samples. Windows past the end of the decoded audio score zero, so the curve
// always covers the full probed duration.
func windowRMS(samples []int16, samplesPerWindow, windows int) []float64 {
	scores := make([]float64, windows)
	for w := 0; w < windows; w++ {
		lo := w * samplesPerWindow
		if lo >= len(samples) {
			break
		}
		hi := lo + samplesPerWindow
		if hi > len(samples) {
			hi = len(samples)
		}
		var sum float64
		for _, s := range samples[lo:hi] {
			v := float64(s)
			sum += v * v
		}
		scores[w] = math.Sqrt(sum / float64(hi-lo))
	}
	return scores
}

// normalize scales scores in place so the peak is 1.0. A silent source stays
// all zeros rather than dividing by zero.
func normalize(scores []float64) {
	var peak float64
	for _, s := range scores {
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		return
	}
	for i := range scores {
		scores[i] /= peak
	}
}

// smooth applies a centered moving average of the given width. The window is
// clamped at both edges, so the result has the same length as the input.
func smooth(scores []float64, width int) []float64 {
	if width <= 1 || len(scores) == 0 {
		return scores
	}
	half := width / 2
	out := make([]float64, len(scores))
	for i := range scores {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(scores) {
			hi = len(scores)
		}
		var sum float64
		for _, s := range scores[lo:hi] {
			sum += s
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
