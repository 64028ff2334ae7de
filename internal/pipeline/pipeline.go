// Package pipeline runs a source video through probe, scoring, selection and
// rendering, and reports the outcome as a manifest. A failed segment skips
// that segment; only probe and analysis failures abort a run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zarelli/clipforge/internal/analyze"
	"github.com/zarelli/clipforge/internal/config"
	"github.com/zarelli/clipforge/internal/ffmpeg"
	"github.com/zarelli/clipforge/internal/highlight"
	"github.com/zarelli/clipforge/internal/shorts"
	"github.com/zarelli/clipforge/pkg/util"
)

const (
	// Sources below this length still run, but are unlikely to yield the
	// full requested count.
	shortSourceWarning = 300.0
	lowFPSWarning      = 15.0
)

// Pipeline orchestrates one source video into a batch of shorts.
type Pipeline struct {
	cfg    *config.Config
	media  Media
	layout shorts.LayoutMode
	logger zerolog.Logger

	mu    sync.Mutex
	state State
}

// New creates a pipeline for the given layout. The media executor is shared
// across runs; the pipeline itself is single-use per Run call but safe to
// query for state concurrently.
func New(cfg *config.Config, media Media, layout shorts.LayoutMode, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		media:  media,
		layout: layout,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run processes one source file and returns its manifest. The returned error
// is non-nil only for fatal failures (probe, analysis, workspace setup);
// per-segment render failures are recorded in the manifest instead.
func (p *Pipeline) Run(ctx context.Context, sourcePath string) (*shorts.Manifest, error) {
	p.setState(StateProbing)
	source, err := p.media.ProbeVideo(ctx, sourcePath)
	if err != nil {
		p.setState(StateFailed)
		return nil, err
	}
	p.warnOnSource(source)

	p.setState(StateAnalyzing)
	analyzer := analyze.New(p.media,
		p.cfg.Analysis.SampleRate,
		p.cfg.Analysis.SmoothingWindow,
		p.cfg.Shorts.Duration,
		p.logger)
	curve, err := analyzer.Score(ctx, source)
	if err != nil {
		p.setState(StateFailed)
		return nil, err
	}

	p.setState(StateSelecting)
	selector := highlight.New(highlight.Options{
		Duration:   p.cfg.Shorts.Duration,
		Count:      p.cfg.Shorts.CountPerVideo,
		MinSpacing: p.cfg.Shorts.MinSpacing,
	}, p.logger)
	segments := selector.Select(curve, source.Duration)

	manifest := &shorts.Manifest{
		Source:    source,
		Requested: p.cfg.Shorts.CountPerVideo,
		Selected:  len(segments),
		Partial:   len(segments) < p.cfg.Shorts.CountPerVideo,
	}
	if manifest.Partial {
		p.logger.Warn().
			Int("requested", manifest.Requested).
			Int("selected", manifest.Selected).
			Msg("fewer segments than requested fit the source")
	}
	if len(segments) == 0 {
		p.setState(StateDone)
		return manifest, nil
	}

	tempDir, err := os.MkdirTemp(p.cfg.TempDir, "clipforge-*")
	if err != nil {
		p.setState(StateFailed)
		return nil, fmt.Errorf("create temp workspace: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := util.EnsureDir(p.cfg.OutputDir); err != nil {
		p.setState(StateFailed)
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	p.setState(StateRendering)
	artifacts, failures := p.renderAll(ctx, source, segments, tempDir)
	manifest.Artifacts = artifacts
	manifest.Failures = failures

	p.setState(StateDone)
	p.logger.Info().
		Int("produced", manifest.Produced()).
		Int("failed", len(manifest.Failures)).
		Bool("partial", manifest.Partial).
		Msg("run complete")
	return manifest, nil
}

// renderAll composes and encodes every segment through a bounded worker
// pool. Workers never share files: each job gets its own subdirectory under
// the run's temp workspace.
func (p *Pipeline) renderAll(ctx context.Context, source shorts.SourceVideo, segments []shorts.Segment, tempDir string) ([]shorts.ShortArtifact, []shorts.SegmentFailure) {
	jobs := make(chan segmentJob)
	results := make(chan segmentResult, len(segments))

	workers := p.cfg.MaxConcurrent
	if workers > len(segments) {
		workers = len(segments)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- p.renderOne(ctx, source, job, tempDir)
			}
		}()
	}

	for i, seg := range segments {
		jobs <- segmentJob{segment: seg, index: i + 1}
	}
	close(jobs)
	wg.Wait()
	close(results)

	var artifacts []shorts.ShortArtifact
	var failures []shorts.SegmentFailure
	for res := range results {
		if res.failure != nil {
			failures = append(failures, *res.failure)
			continue
		}
		artifacts = append(artifacts, res.artifact)
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Index < artifacts[j].Index
	})
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Index < failures[j].Index
	})
	return artifacts, failures
}

// renderOne takes one segment from cut to published file. Any error becomes
// a segment failure; the rest of the batch is unaffected.
func (p *Pipeline) renderOne(ctx context.Context, source shorts.SourceVideo, job segmentJob, tempDir string) segmentResult {
	fail := func(err error) segmentResult {
		p.logger.Error().
			Err(err).
			Int("index", job.index).
			Float64("start", job.segment.Start).
			Msg("segment failed")
		return segmentResult{failure: &shorts.SegmentFailure{
			Segment: job.segment,
			Index:   job.index,
			Reason:  err,
		}}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	segDir := filepath.Join(tempDir, fmt.Sprintf("seg_%02d", job.index))
	if err := os.MkdirAll(segDir, 0755); err != nil {
		return fail(fmt.Errorf("segment workspace: %w", err))
	}

	spec := p.cfg.RenderSpec(p.layout.Kind)
	composed := filepath.Join(segDir, "composed.mp4")

	p.logger.Info().
		Int("index", job.index).
		Str("start", util.FormatSeconds(job.segment.Start)).
		Str("end", util.FormatSeconds(job.segment.End)).
		Str("layout", p.layout.Kind.String()).
		Msg("rendering segment")

	err := p.media.ComposeSegment(ctx, source.Path, ffmpeg.ComposeOptions{
		Segment: job.segment,
		Layout:  p.layout,
		Spec:    spec,
		Output:  composed,
	})
	if err != nil {
		return fail(&shorts.ComposeError{Segment: job.segment, Err: err})
	}

	output := filepath.Join(p.cfg.OutputDir, p.outputName(source, job.index))
	artifact, err := p.media.EncodeShort(ctx, composed, ffmpeg.EncodeOptions{
		Segment: job.segment,
		Index:   job.index,
		Spec:    spec,
		Output:  output,
	})
	if err != nil {
		return fail(&shorts.EncodeError{Segment: job.segment, Err: err})
	}
	return segmentResult{artifact: artifact}
}

func (p *Pipeline) outputName(source shorts.SourceVideo, index int) string {
	return fmt.Sprintf("%s_short_%d.mp4", util.SanitizeTitle(source.Title), index)
}

func (p *Pipeline) warnOnSource(source shorts.SourceVideo) {
	if source.Duration < shortSourceWarning {
		p.logger.Warn().
			Float64("duration", source.Duration).
			Msg("source is short; selection will likely be partial")
	}
	if source.FPS > 0 && source.FPS < lowFPSWarning {
		p.logger.Warn().
			Float64("fps", source.FPS).
			Msg("source frame rate is low")
	}
}
