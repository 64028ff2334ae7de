package util

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatSeconds converts a position in seconds to the HH:MM:SS.mmm form
// ffmpeg expects for -ss and -t.
func FormatSeconds(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}

// ParseFrameRate parses ffprobe's rational frame rate form (e.g. "30/1").
// Returns 0 on any malformed input.
func ParseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
