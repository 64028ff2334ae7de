package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/zarelli/clipforge/internal/shorts"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// ScaleToHeight scales to a target height keeping aspect, with an even width.
func (fb *FilterBuilder) ScaleToHeight(height int) *FilterBuilder {
	if height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=-2:%d", height))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps int) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%d", fps))
	return fb
}

// CenterCrop crops a width x height window centered horizontally, anchored
// to the top of the frame.
func (fb *FilterBuilder) CenterCrop(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("crop=%d:%d:(in_w-%d)/2:0", width, height, width))
	return fb
}

// CropFraction crops a fractional sub-region of the input frame. Using
// iw/ih expressions keeps the chain independent of the source resolution.
func (fb *FilterBuilder) CropFraction(r shorts.CropRect) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf(
		"crop=iw*%.4f:ih*%.4f:iw*%.4f:ih*%.4f", r.W, r.H, r.X, r.Y))
	return fb
}

// SetSAR pins the sample aspect ratio to 1:1 so stacked bands line up.
func (fb *FilterBuilder) SetSAR() *FilterBuilder {
	fb.filters = append(fb.filters, "setsar=1")
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// passthroughChain re-frames the full frame to the target portrait canvas:
// scale to target height keeping aspect, then center-crop the width.
func passthroughChain(spec shorts.RenderSpec) string {
	return NewFilterBuilder().
		ScaleToHeight(spec.Height).
		CenterCrop(spec.Width, spec.Height).
		Build()
}

// splitScreenGraph builds the filter_complex graph for the camera-over-
// content layout: each configured crop is scaled to its band and the two
// bands are stacked into the full canvas. The output pad is [v].
func splitScreenGraph(layout shorts.LayoutMode, spec shorts.RenderSpec) string {
	topH, bottomH := layout.BandHeights(spec.Height)

	camera := NewFilterBuilder().
		CropFraction(layout.CameraCrop).
		Scale(spec.Width, topH).
		SetSAR().
		Build()
	content := NewFilterBuilder().
		CropFraction(layout.ContentCrop).
		Scale(spec.Width, bottomH).
		SetSAR().
		Build()

	return fmt.Sprintf("[0:v]%s[cam];[0:v]%s[scr];[cam][scr]vstack=inputs=2[v]",
		camera, content)
}
