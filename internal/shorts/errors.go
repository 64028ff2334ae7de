package shorts

import (
	"errors"
	"fmt"
)

// Analysis failure reasons. Both are fatal to a run: without a score curve
// no segments can be chosen.
var (
	ErrNoAudioTrack = errors.New("source has no audio track")
	ErrTooShort     = errors.New("source shorter than one short")
)

// ErrAudioMuxFailure marks an encode whose output ended up without an audio
// stream. The artifact is dropped rather than shipped silent.
var ErrAudioMuxFailure = errors.New("audio mux failure")

// ProbeError wraps a failure to inspect the source file. Fatal.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// AnalysisError wraps a failure to produce a score curve. Fatal.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// ComposeError is a per-segment composition failure. The run continues.
type ComposeError struct {
	Segment Segment
	Err     error
}

func (e *ComposeError) Error() string {
	return fmt.Sprintf("compose segment %.1fs-%.1fs: %v", e.Segment.Start, e.Segment.End, e.Err)
}

func (e *ComposeError) Unwrap() error { return e.Err }

// EncodeError is a per-segment encode failure. The run continues.
type EncodeError struct {
	Segment Segment
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode segment %.1fs-%.1fs: %v", e.Segment.Start, e.Segment.End, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
