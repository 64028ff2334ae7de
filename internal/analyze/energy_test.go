package analyze

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zarelli/clipforge/internal/shorts"
)

type fakePCM struct {
	samples []int16
	err     error
}

func (f *fakePCM) ExtractPCM(ctx context.Context, input string, sampleRate int) ([]int16, error) {
	return f.samples, f.err
}

func testAnalyzer(pcm *fakePCM) *Analyzer {
	return New(pcm, 100, 5, 60, zerolog.Nop())
}

func toneSamples(windows, samplesPerWindow int, amplitudes []int16) []int16 {
	out := make([]int16, 0, windows*samplesPerWindow)
	for w := 0; w < windows; w++ {
		amp := amplitudes[w%len(amplitudes)]
		for i := 0; i < samplesPerWindow; i++ {
			out = append(out, amp)
		}
	}
	return out
}

func TestScoreRejectsSilentSource(t *testing.T) {
	a := testAnalyzer(&fakePCM{})
	_, err := a.Score(context.Background(), shorts.SourceVideo{Duration: 300, HasAudio: false})

	if !errors.Is(err, shorts.ErrNoAudioTrack) {
		t.Fatalf("expected ErrNoAudioTrack, got %v", err)
	}
	var analysisErr *shorts.AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Errorf("expected an AnalysisError, got %T", err)
	}
}

func TestScoreRejectsShortSource(t *testing.T) {
	a := testAnalyzer(&fakePCM{})
	_, err := a.Score(context.Background(), shorts.SourceVideo{Duration: 30, HasAudio: true})

	if !errors.Is(err, shorts.ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestScoreWrapsExtractionFailure(t *testing.T) {
	a := testAnalyzer(&fakePCM{err: errors.New("decode blew up")})
	_, err := a.Score(context.Background(), shorts.SourceVideo{Duration: 120, HasAudio: true})

	var analysisErr *shorts.AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("expected an AnalysisError, got %v", err)
	}
}

func TestScoreCurveCoversFullDuration(t *testing.T) {
	// 90s source but only 80 windows of decoded audio.
	pcm := &fakePCM{samples: toneSamples(80, 100, []int16{1000})}
	a := testAnalyzer(pcm)

	curve, err := a.Score(context.Background(), shorts.SourceVideo{Duration: 90, HasAudio: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(curve.Scores) != 90 {
		t.Fatalf("expected 90 windows, got %d", len(curve.Scores))
	}
	if curve.Scores[89] != 0 {
		t.Errorf("window past the decoded audio should score 0, got %v", curve.Scores[89])
	}
}

func TestScoreNormalizedToPeak(t *testing.T) {
	pcm := &fakePCM{samples: toneSamples(100, 100, []int16{100, 200, 400, 800})}
	a := testAnalyzer(pcm)

	curve, err := a.Score(context.Background(), shorts.SourceVideo{Duration: 100, HasAudio: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var peak float64
	for _, s := range curve.Scores {
		if s < 0 || s > 1+1e-9 {
			t.Fatalf("score out of [0,1]: %v", s)
		}
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Error("non-silent source produced an all-zero curve")
	}
}

func TestWindowRMS(t *testing.T) {
	samples := make([]int16, 200)
	for i := 100; i < 200; i++ {
		samples[i] = 100
	}

	scores := windowRMS(samples, 100, 2)
	if scores[0] != 0 {
		t.Errorf("silent window should be 0, got %v", scores[0])
	}
	if math.Abs(scores[1]-100) > 1e-9 {
		t.Errorf("constant-amplitude window RMS should equal the amplitude, got %v", scores[1])
	}
}

func TestNormalizeSilentStaysZero(t *testing.T) {
	scores := []float64{0, 0, 0}
	normalize(scores)
	for i, s := range scores {
		if s != 0 {
			t.Errorf("score %d changed on silent input: %v", i, s)
		}
	}
}

func TestSmoothAveragesNeighbors(t *testing.T) {
	in := []float64{0, 0, 10, 0, 0}
	out := smooth(in, 5)

	if len(out) != len(in) {
		t.Fatalf("smoothing changed length: %d -> %d", len(in), len(out))
	}
	if math.Abs(out[2]-2.0) > 1e-9 {
		t.Errorf("center window should average to 2.0, got %v", out[2])
	}
	// Edge windows see a clamped neighborhood.
	if math.Abs(out[0]-10.0/3.0) > 1e-9 {
		t.Errorf("edge window should average over 3 values, got %v", out[0])
	}
}

func TestSmoothWidthOneIsIdentity(t *testing.T) {
	in := []float64{1, 2, 3}
	out := smooth(in, 1)
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("width-1 smoothing changed value %d: %v -> %v", i, in[i], out[i])
		}
	}
}
