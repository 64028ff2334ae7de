package ffmpeg

import "github.com/zarelli/clipforge/internal/shorts"

// Progress represents ffmpeg progress data
type Progress struct {
	Frame int
	FPS   float64
	Time  string
	Speed string
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
type ProgressFunc func(*Progress)

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
	DefaultPreset     = "medium"

	// composePreset favors speed for the intermediate clip; quality is
	// settled at the final encode.
	composePreset = "veryfast"
	composeCRF    = 18
)

// ComposeOptions configures segment composition into the target canvas.
type ComposeOptions struct {
	Segment      shorts.Segment
	Layout       shorts.LayoutMode
	Spec         shorts.RenderSpec
	Output       string
	ProgressFunc ProgressFunc
}

// EncodeOptions configures the final export encode.
type EncodeOptions struct {
	Segment      shorts.Segment
	Index        int // 1-based output index
	Spec         shorts.RenderSpec
	Output       string // final published path
	ProgressFunc ProgressFunc
}
