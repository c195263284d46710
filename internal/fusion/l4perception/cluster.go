package l4perception

import (
	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
)

// ClusterStats counts where each range point ended up during one
// ClusterRangePointsWithROI call.
type ClusterStats struct {
	Total         int // Points considered
	Assigned      int // Points appended to exactly one region
	Ambiguous     int // Points inside more than one shrunk region (dropped)
	Outside       int // Points inside no shrunk region (dropped)
	Unprojectable int // Points with a degenerate homogeneous scale (dropped)
}

// Add accumulates o into s.
func (s *ClusterStats) Add(o ClusterStats) {
	s.Total += o.Total
	s.Assigned += o.Assigned
	s.Ambiguous += o.Ambiguous
	s.Outside += o.Outside
	s.Unprojectable += o.Unprojectable
}

// ClusterRangePointsWithROI projects every range point into the image and
// appends it to the single region whose shrunk ROI contains it. Points that
// fall in zero regions or in more than one region are discarded: a point
// shared by two overlapping objects says nothing reliable about either.
//
// shrinkFactor is the fraction of each ROI dimension removed before the
// containment test, split evenly between opposite edges.
func ClusterRangePointsWithROI(regions []l2frames.ObjectRegion, points []l2frames.RangePoint, shrinkFactor float64, proj *Projector) ClusterStats {
	stats := ClusterStats{Total: len(points)}
	if len(regions) == 0 {
		stats.Outside = len(points)
		return stats
	}

	shrunk := make([]l2frames.Rect, len(regions))
	for i := range regions {
		shrunk[i] = regions[i].ROI.Shrink(shrinkFactor)
	}

	for _, p := range points {
		px, ok := proj.Project(p)
		if !ok {
			stats.Unprojectable++
			continue
		}

		enclosing := -1
		count := 0
		for i := range shrunk {
			if shrunk[i].Contains(px) {
				enclosing = i
				count++
				if count > 1 {
					break
				}
			}
		}

		switch count {
		case 0:
			stats.Outside++
		case 1:
			regions[enclosing].RangePoints = append(regions[enclosing].RangePoints, p)
			stats.Assigned++
		default:
			stats.Ambiguous++
		}
	}

	return stats
}
