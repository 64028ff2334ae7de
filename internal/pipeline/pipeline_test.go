package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zarelli/clipforge/internal/config"
	"github.com/zarelli/clipforge/internal/ffmpeg"
	"github.com/zarelli/clipforge/internal/shorts"
)

// fakeMedia satisfies Media without touching ffmpeg. Segments whose start
// appears in failCompose or failEncode fail at that stage.
type fakeMedia struct {
	source      shorts.SourceVideo
	probeErr    error
	samples     []int16
	failCompose map[float64]bool
	failEncode  map[float64]bool

	mu       sync.Mutex
	composed []string
	encoded  []string

	active  int32
	maxSeen int32
}

func (f *fakeMedia) ProbeVideo(ctx context.Context, filePath string) (shorts.SourceVideo, error) {
	if f.probeErr != nil {
		return shorts.SourceVideo{}, f.probeErr
	}
	return f.source, nil
}

func (f *fakeMedia) ExtractPCM(ctx context.Context, input string, sampleRate int) ([]int16, error) {
	return f.samples, nil
}

func (f *fakeMedia) enter() {
	n := atomic.AddInt32(&f.active, 1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, n) {
			break
		}
	}
}

func (f *fakeMedia) exit() {
	atomic.AddInt32(&f.active, -1)
}

func (f *fakeMedia) ComposeSegment(ctx context.Context, input string, opts ffmpeg.ComposeOptions) error {
	f.enter()
	defer f.exit()
	if f.failCompose[opts.Segment.Start] {
		return errors.New("compose exploded")
	}
	f.mu.Lock()
	f.composed = append(f.composed, opts.Output)
	f.mu.Unlock()
	return nil
}

func (f *fakeMedia) EncodeShort(ctx context.Context, input string, opts ffmpeg.EncodeOptions) (shorts.ShortArtifact, error) {
	f.enter()
	defer f.exit()
	if f.failEncode[opts.Segment.Start] {
		return shorts.ShortArtifact{}, shorts.ErrAudioMuxFailure
	}
	f.mu.Lock()
	f.encoded = append(f.encoded, opts.Output)
	f.mu.Unlock()
	return shorts.ShortArtifact{
		Segment:   opts.Segment,
		Index:     opts.Index,
		FilePath:  opts.Output,
		SizeBytes: 1024,
		HasAudio:  true,
	}, nil
}

// longSamples yields a loud constant tone covering the given duration at the
// test sample rate, so every window scores equally.
func longSamples(seconds, rate int) []int16 {
	out := make([]int16, seconds*rate)
	for i := range out {
		out[i] = 1000
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.OutputDir = t.TempDir()
	cfg.TempDir = t.TempDir()
	cfg.Analysis.SampleRate = 100
	return cfg
}

func testSource(duration float64) shorts.SourceVideo {
	return shorts.SourceVideo{
		Path:     "/videos/My Stream.mp4",
		Title:    "My Stream",
		Duration: duration,
		FPS:      30,
		Width:    1920,
		Height:   1080,
		HasAudio: true,
	}
}

func newTestPipeline(cfg *config.Config, media Media) *Pipeline {
	return New(cfg, media, shorts.Passthrough(), zerolog.Nop())
}

func TestRunProducesFullBatch(t *testing.T) {
	cfg := testConfig(t)
	media := &fakeMedia{
		source:  testSource(600),
		samples: longSamples(600, cfg.Analysis.SampleRate),
	}

	manifest, err := newTestPipeline(cfg, media).Run(context.Background(), media.source.Path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if manifest.Produced() != 7 {
		t.Fatalf("produced %d shorts, want 7", manifest.Produced())
	}
	if manifest.Partial {
		t.Error("a 600s source should not be partial")
	}
	if len(manifest.Failures) != 0 {
		t.Errorf("unexpected failures: %+v", manifest.Failures)
	}
	for i, a := range manifest.Artifacts {
		if a.Index != i+1 {
			t.Errorf("artifact %d has index %d; want selection order", i, a.Index)
		}
		want := fmt.Sprintf("My_Stream_short_%d.mp4", a.Index)
		if filepath.Base(a.FilePath) != want {
			t.Errorf("artifact name %q, want %q", filepath.Base(a.FilePath), want)
		}
		if filepath.Dir(a.FilePath) != cfg.OutputDir {
			t.Errorf("artifact written outside output dir: %q", a.FilePath)
		}
	}
}

func TestRunPartialSelectionIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	media := &fakeMedia{
		source:  testSource(90),
		samples: longSamples(90, cfg.Analysis.SampleRate),
	}

	manifest, err := newTestPipeline(cfg, media).Run(context.Background(), media.source.Path)
	if err != nil {
		t.Fatalf("partial selection must not fail the run: %v", err)
	}
	if !manifest.Partial {
		t.Error("manifest should be marked partial")
	}
	if manifest.Selected != 1 || manifest.Produced() != 1 {
		t.Errorf("selected %d produced %d, want 1/1", manifest.Selected, manifest.Produced())
	}
	if manifest.Requested != 7 {
		t.Errorf("requested = %d, want 7", manifest.Requested)
	}
}

func TestRunIsolatesSegmentFailures(t *testing.T) {
	cfg := testConfig(t)
	media := &fakeMedia{
		source:      testSource(600),
		samples:     longSamples(600, cfg.Analysis.SampleRate),
		failCompose: map[float64]bool{75: true},
		failEncode:  map[float64]bool{150: true},
	}

	manifest, err := newTestPipeline(cfg, media).Run(context.Background(), media.source.Path)
	if err != nil {
		t.Fatalf("segment failures must not fail the run: %v", err)
	}

	if manifest.Produced() != 5 {
		t.Errorf("produced %d, want 5", manifest.Produced())
	}
	if len(manifest.Failures) != 2 {
		t.Fatalf("recorded %d failures, want 2", len(manifest.Failures))
	}

	var composeFailed, encodeFailed bool
	for _, f := range manifest.Failures {
		var ce *shorts.ComposeError
		var ee *shorts.EncodeError
		switch {
		case errors.As(f.Reason, &ce):
			composeFailed = true
		case errors.As(f.Reason, &ee):
			encodeFailed = true
			if !errors.Is(f.Reason, shorts.ErrAudioMuxFailure) {
				t.Errorf("encode failure should unwrap to the mux sentinel: %v", f.Reason)
			}
		default:
			t.Errorf("unexpected failure type: %v", f.Reason)
		}
	}
	if !composeFailed || !encodeFailed {
		t.Errorf("expected one compose and one encode failure, got %+v", manifest.Failures)
	}
}

func TestRunProbeFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	probeErr := &shorts.ProbeError{Path: "x.mp4", Err: errors.New("no such file")}
	media := &fakeMedia{probeErr: probeErr}

	pipe := newTestPipeline(cfg, media)
	_, err := pipe.Run(context.Background(), "x.mp4")
	if err == nil {
		t.Fatal("probe failure must abort the run")
	}
	var pe *shorts.ProbeError
	if !errors.As(err, &pe) {
		t.Errorf("expected a ProbeError, got %v", err)
	}
	if pipe.State() != StateFailed {
		t.Errorf("state = %v, want failed", pipe.State())
	}
}

func TestRunSilentSourceIsFatal(t *testing.T) {
	cfg := testConfig(t)
	src := testSource(600)
	src.HasAudio = false
	media := &fakeMedia{source: src}

	_, err := newTestPipeline(cfg, media).Run(context.Background(), src.Path)
	if !errors.Is(err, shorts.ErrNoAudioTrack) {
		t.Fatalf("expected ErrNoAudioTrack, got %v", err)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrent = 2
	media := &fakeMedia{
		source:  testSource(600),
		samples: longSamples(600, cfg.Analysis.SampleRate),
	}

	if _, err := newTestPipeline(cfg, media).Run(context.Background(), media.source.Path); err != nil {
		t.Fatalf("run: %v", err)
	}
	if max := atomic.LoadInt32(&media.maxSeen); max > 2 {
		t.Errorf("observed %d concurrent renders, limit is 2", max)
	}
}

func TestRunCleansUpTempWorkspace(t *testing.T) {
	cfg := testConfig(t)
	media := &fakeMedia{
		source:  testSource(600),
		samples: longSamples(600, cfg.Analysis.SampleRate),
	}

	if _, err := newTestPipeline(cfg, media).Run(context.Background(), media.source.Path); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries, err := os.ReadDir(cfg.TempDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "clipforge-") {
			t.Errorf("temp workspace %q left behind", e.Name())
		}
	}

	// Intermediates lived under the run workspace, not the output dir.
	for _, c := range media.composed {
		if filepath.Dir(c) == cfg.OutputDir {
			t.Errorf("intermediate %q written to the output dir", c)
		}
	}
}

func TestStateProgressesToDone(t *testing.T) {
	cfg := testConfig(t)
	media := &fakeMedia{
		source:  testSource(600),
		samples: longSamples(600, cfg.Analysis.SampleRate),
	}

	pipe := newTestPipeline(cfg, media)
	if pipe.State() != StateIdle {
		t.Errorf("fresh pipeline state = %v, want idle", pipe.State())
	}
	if _, err := pipe.Run(context.Background(), media.source.Path); err != nil {
		t.Fatal(err)
	}
	if pipe.State() != StateDone {
		t.Errorf("state after run = %v, want done", pipe.State())
	}
}
