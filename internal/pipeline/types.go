package pipeline

import (
	"context"

	"github.com/zarelli/clipforge/internal/ffmpeg"
	"github.com/zarelli/clipforge/internal/shorts"
)

// Media is the slice of the ffmpeg executor the pipeline drives. Tests swap
// in a fake; production wires *ffmpeg.Executor.
type Media interface {
	ProbeVideo(ctx context.Context, filePath string) (shorts.SourceVideo, error)
	ExtractPCM(ctx context.Context, input string, sampleRate int) ([]int16, error)
	ComposeSegment(ctx context.Context, input string, opts ffmpeg.ComposeOptions) error
	EncodeShort(ctx context.Context, input string, opts ffmpeg.EncodeOptions) (shorts.ShortArtifact, error)
}

// State tracks where a run is in its lifecycle. States only move forward.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateAnalyzing
	StateSelecting
	StateRendering
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateProbing:
		return "probing"
	case StateAnalyzing:
		return "analyzing"
	case StateSelecting:
		return "selecting"
	case StateRendering:
		return "rendering"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// segmentJob is one unit of render work handed to the worker pool.
type segmentJob struct {
	segment shorts.Segment
	index   int // 1-based, selection order
}

// segmentResult is what a worker sends back for one job.
type segmentResult struct {
	artifact shorts.ShortArtifact
	failure  *shorts.SegmentFailure
}
