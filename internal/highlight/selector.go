// Package highlight picks the segments worth exporting from a score curve.
// Selection is pure: no I/O, no randomness, same curve in, same segments out.
package highlight

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/zarelli/clipforge/internal/analyze"
	"github.com/zarelli/clipforge/internal/shorts"
)

// Options bound what the selector may pick.
type Options struct {
	Duration   float64 // segment length in seconds
	Count      int     // how many segments are wanted
	MinSpacing float64 // minimum seconds between accepted segment starts
}

// Selector chooses non-overlapping fixed-length segments by aggregate score.
type Selector struct {
	opts   Options
	logger zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Selector {
	return &Selector{
		opts:   opts,
		logger: logger.With().Str("component", "highlight").Logger(),
	}
}

// Select returns up to Count segments, ordered by start time. Candidates are
// taken greedily by highest aggregate score, with ties going to the earlier
// start, and a candidate is rejected if it overlaps an accepted segment or
// starts within MinSpacing of one. Fewer than Count segments is a valid
// result; the caller decides what a partial selection means.
func (s *Selector) Select(curve analyze.ScoreCurve, sourceDuration float64) []shorts.Segment {
	if s.opts.Count <= 0 || s.opts.Duration <= 0 {
		return nil
	}

	candidates := s.windowSums(curve, sourceDuration)
	if len(candidates) == 0 {
		return nil
	}

	// Greedy by score. Sort is stable over an already start-ordered slice,
	// so equal scores keep the earlier start first.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	var picked []shorts.Segment
	for _, cand := range candidates {
		if len(picked) == s.opts.Count {
			break
		}
		if s.conflicts(cand, picked) {
			continue
		}
		picked = append(picked, cand)
	}

	sort.Slice(picked, func(i, j int) bool {
		return picked[i].Start < picked[j].Start
	})

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Int("selected", len(picked)).
		Msg("segments selected")
	return picked
}

// windowSums builds one candidate per whole-second start position whose full
// segment fits inside the source, scored by the sum of curve windows it spans.
func (s *Selector) windowSums(curve analyze.ScoreCurve, sourceDuration float64) []shorts.Segment {
	if curve.Step <= 0 || len(curve.Scores) == 0 {
		return nil
	}
	span := int(s.opts.Duration / curve.Step)
	if span <= 0 {
		span = 1
	}

	var out []shorts.Segment
	for start := 0; ; start++ {
		startSec := float64(start) * curve.Step
		if startSec+s.opts.Duration > sourceDuration {
			break
		}
		var sum float64
		for w := start; w < start+span && w < len(curve.Scores); w++ {
			sum += curve.Scores[w]
		}
		out = append(out, shorts.Segment{
			Start: startSec,
			End:   startSec + s.opts.Duration,
			Score: sum,
		})
	}
	return out
}

func (s *Selector) conflicts(cand shorts.Segment, accepted []shorts.Segment) bool {
	for _, a := range accepted {
		if cand.Overlaps(a) {
			return true
		}
		gap := cand.Start - a.Start
		if gap < 0 {
			gap = -gap
		}
		if gap < s.opts.MinSpacing {
			return true
		}
	}
	return false
}
