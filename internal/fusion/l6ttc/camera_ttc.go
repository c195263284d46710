package l6ttc

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
)

// CameraStats describes the pairwise ratio computation behind a camera TTC.
type CameraStats struct {
	Matches      int     // Correspondences considered
	InvalidIndex int     // Matches with out-of-range keypoint indices
	Pairs        int     // Unordered correspondence pairs examined
	Retained     int     // Pairs passing the separation filters
	MaxDistCurr  float64 // Largest current-frame pair separation (pixels)
	MedianRatio  float64 // Median distCurr/distPrev over retained pairs
}

type pairDist struct {
	prev, curr float64
}

// ComputeTTCCamera estimates TTC from the scale change of a region's
// keypoint constellation between two frames.
//
// For every unordered pair of matches the pixel separation is measured in
// both frames. Pairs with zero previous separation, or whose current
// separation is at most half the largest current separation, are dropped:
// short baselines make the ratio noise-dominated. The median ratio r then
// gives TTC = 1 / (frameRate * (r - 1)).
func ComputeTTCCamera(kptsPrev, kptsCurr []l2frames.Keypoint, matches []l2frames.Match, frameRate float64) (Result, CameraStats, error) {
	stats := CameraStats{Matches: len(matches)}
	if err := CheckFrameRate(frameRate); err != nil {
		return Result{Outcome: OutcomeInsufficientData, Detail: "invalid frame rate"}, stats, err
	}

	type endpoints struct{ prev, curr l2frames.Point2 }
	pts := make([]endpoints, 0, len(matches))
	for _, m := range matches {
		p, c, ok := m.Endpoints(kptsPrev, kptsCurr)
		if !ok {
			stats.InvalidIndex++
			continue
		}
		pts = append(pts, endpoints{p, c})
	}
	if len(pts) < 2 {
		r, err := insufficient(fmt.Sprintf("%d usable matches", len(pts)))
		return r, stats, err
	}

	pairs := make([]pairDist, 0, len(pts)*(len(pts)-1)/2)
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			d := pairDist{
				prev: l2frames.Dist(pts[j].prev, pts[i].prev),
				curr: l2frames.Dist(pts[j].curr, pts[i].curr),
			}
			if d.curr > stats.MaxDistCurr {
				stats.MaxDistCurr = d.curr
			}
			pairs = append(pairs, d)
		}
	}
	stats.Pairs = len(pairs)

	ratios := make([]float64, 0, len(pairs))
	minCurr := stats.MaxDistCurr / 2
	for _, d := range pairs {
		if d.prev > 0 && d.curr > minCurr {
			ratios = append(ratios, d.curr/d.prev)
		}
	}
	stats.Retained = len(ratios)

	median, ok := Median(ratios)
	if !ok {
		r, err := insufficient("no pairs passed separation filter")
		return r, stats, err
	}
	stats.MedianRatio = median

	if median == 1 {
		r, err := indeterminate("no scale change")
		return r, stats, err
	}
	ttc := 1 / (frameRate * (median - 1))
	if math.IsNaN(ttc) || math.IsInf(ttc, 0) {
		r, err := indeterminate(fmt.Sprintf("median ratio %v", median))
		return r, stats, err
	}
	return estimate(ttc), stats, nil
}

// Median returns the exact median of values without modifying them. For an
// even count it is the mean of the two central order statistics. ok is
// false for an empty input.
func Median(values []float64) (float64, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2], true
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, true
}
