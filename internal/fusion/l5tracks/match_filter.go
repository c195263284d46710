package l5tracks

import (
	"sort"

	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
	"gonum.org/v1/gonum/stat"
)

// MatchFilterConfig controls motion-outlier rejection for one region.
// A match is kept when its pixel displacement is at most
// Multiplier*mean + SlackPx.
type MatchFilterConfig struct {
	Multiplier float64 // Tolerated ratio to the mean displacement
	SlackPx    float64 // Additive slack absorbing sub-pixel quantisation (pixels)
	MaxMatches int     // Cap on retained matches; 0 means unlimited
}

// DefaultMatchFilterConfig returns the production filter settings.
func DefaultMatchFilterConfig() MatchFilterConfig {
	return MatchFilterConfig{
		Multiplier: 2.0,
		SlackPx:    1.0,
		MaxMatches: 0,
	}
}

// FilterStats reports what happened to the frame pair's matches for one
// region.
type FilterStats struct {
	Considered       int     // Matches examined
	InvalidIndex     int     // Matches with out-of-range keypoint indices
	InROI            int     // Matches whose current endpoint is inside the ROI
	MeanDisplacement float64 // Mean pixel displacement of the InROI matches
	Threshold        float64 // Displacement threshold applied
	Outliers         int     // InROI matches rejected as motion outliers
	Capped           int     // Matches dropped by MaxMatches
	Retained         int     // Matches attached to the region
}

type displacedMatch struct {
	match l2frames.Match
	dist  float64
	order int
}

// ClusterMatchesWithROI attaches to region the matches whose current
// endpoint lies inside its ROI and whose displacement is not a motion
// outlier. Containment is tested against the current frame only.
//
// When no match lands inside the ROI the region keeps an empty match set
// and the returned stats have a zero mean.
func ClusterMatchesWithROI(region *l2frames.ObjectRegion, kptsPrev, kptsCurr []l2frames.Keypoint, matches []l2frames.Match, cfg MatchFilterConfig) FilterStats {
	stats := FilterStats{Considered: len(matches)}

	inROI := make([]displacedMatch, 0, len(matches))
	dists := make([]float64, 0, len(matches))
	for _, m := range matches {
		pPrev, pCurr, ok := m.Endpoints(kptsPrev, kptsCurr)
		if !ok {
			stats.InvalidIndex++
			continue
		}
		if !region.ROI.Contains(pCurr) {
			continue
		}
		d := l2frames.Dist(pCurr, pPrev)
		inROI = append(inROI, displacedMatch{match: m, dist: d, order: len(inROI)})
		dists = append(dists, d)
	}
	stats.InROI = len(inROI)
	if len(inROI) == 0 {
		return stats
	}

	stats.MeanDisplacement = stat.Mean(dists, nil)
	stats.Threshold = stats.MeanDisplacement*cfg.Multiplier + cfg.SlackPx

	kept := inROI[:0]
	for _, dm := range inROI {
		if dm.dist <= stats.Threshold {
			kept = append(kept, dm)
		}
	}
	stats.Outliers = stats.InROI - len(kept)

	if cfg.MaxMatches > 0 && len(kept) > cfg.MaxMatches {
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].dist < kept[j].dist
		})
		stats.Capped = len(kept) - cfg.MaxMatches
		kept = kept[:cfg.MaxMatches]
		sort.Slice(kept, func(i, j int) bool { return kept[i].order < kept[j].order })
	}

	for _, dm := range kept {
		region.Matches = append(region.Matches, dm.match)
		region.Keypoints = append(region.Keypoints, kptsCurr[dm.match.CurrIdx])
	}
	stats.Retained = len(kept)
	return stats
}
