package shorts

import "context"

// SourceVideo is an immutable handle to a probed media file. It is created
// once at pipeline start and only ever read afterwards.
type SourceVideo struct {
	Path     string
	Title    string
	Duration float64 // seconds
	FPS      float64
	Width    int
	Height   int
	HasAudio bool
}

// Segment is a fixed-length slice of the source timeline, carrying the
// selection score it won with.
type Segment struct {
	Start float64 // seconds
	End   float64 // seconds
	Score float64
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Overlaps reports whether two segments share any part of the timeline.
func (s Segment) Overlaps(other Segment) bool {
	return s.Start < other.End && other.Start < s.End
}

// LayoutKind selects how a segment is framed into the output canvas.
type LayoutKind int

const (
	// LayoutPassthrough center-crops the full frame to the target aspect.
	LayoutPassthrough LayoutKind = iota
	// LayoutSplitScreen stacks a camera band over a content band.
	LayoutSplitScreen
)

func (k LayoutKind) String() string {
	if k == LayoutSplitScreen {
		return "split-screen"
	}
	return "passthrough"
}

// CropRect is a sub-region of the source frame, expressed as fractions of
// the frame size so it survives resolution changes. All fields are in [0,1].
type CropRect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Valid reports whether the rectangle lies inside the unit frame and has
// positive area.
func (r CropRect) Valid() bool {
	return r.W > 0 && r.H > 0 &&
		r.X >= 0 && r.Y >= 0 &&
		r.X+r.W <= 1.0+1e-9 && r.Y+r.H <= 1.0+1e-9
}

// LayoutMode is the resolved layout for a run. The crop rectangles are
// explicit configuration, never inferred from the frame contents, so a given
// input always composes the same way.
type LayoutMode struct {
	Kind           LayoutKind
	TopFraction    float64
	BottomFraction float64
	CameraCrop     CropRect
	ContentCrop    CropRect
}

// Passthrough returns the plain center-crop layout.
func Passthrough() LayoutMode {
	return LayoutMode{Kind: LayoutPassthrough}
}

// SplitScreen returns a camera-over-content layout. Fractions are of the
// output canvas height and must sum to 1.
func SplitScreen(top, bottom float64, camera, content CropRect) LayoutMode {
	return LayoutMode{
		Kind:           LayoutSplitScreen,
		TopFraction:    top,
		BottomFraction: bottom,
		CameraCrop:     camera,
		ContentCrop:    content,
	}
}

// BandHeights splits the canvas height between the two bands. The top band
// is truncated and the bottom band absorbs the remainder, so the two always
// sum to canvasHeight exactly.
func (m LayoutMode) BandHeights(canvasHeight int) (top, bottom int) {
	top = int(m.TopFraction * float64(canvasHeight))
	return top, canvasHeight - top
}

// RenderSpec fixes the output format for a whole run. It is threaded through
// compose and encode unchanged.
type RenderSpec struct {
	Width        int
	Height       int
	FPS          int
	VideoCodec   string
	AudioCodec   string
	VideoBitrate string
	AudioBitrate string
	Preset       string
}

// ShortArtifact is one finished output file. Immutable once written.
type ShortArtifact struct {
	Segment   Segment
	Index     int // 1-based, selection order
	FilePath  string
	SizeBytes int64
	HasAudio  bool
}

// SegmentFailure records a per-segment compose or encode failure that did
// not abort the run.
type SegmentFailure struct {
	Segment Segment
	Index   int
	Reason  error
}

// Manifest is the terminal result of a pipeline run: what was produced and
// what was skipped. Partial success is a first-class outcome, not an error.
type Manifest struct {
	Source    SourceVideo
	Artifacts []ShortArtifact
	Failures  []SegmentFailure
	Requested int
	Selected  int
	Partial   bool // fewer segments selected than requested
}

// Produced returns the number of successfully written artifacts.
func (m *Manifest) Produced() int {
	return len(m.Artifacts)
}

// Acquirer fetches a remote video to a local path the pipeline can probe.
// Downloading is an upstream collaborator; the core only consumes its output.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (localPath string, err error)
}

// Publisher pushes a finished artifact to a remote platform. The core never
// calls this itself; it only produces artifacts for a publisher to consume.
type Publisher interface {
	Publish(ctx context.Context, artifact ShortArtifact, hashtags []string) error
}
