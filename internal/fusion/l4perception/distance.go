package l4perception

import (
	"math"
	"sort"

	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
	"gonum.org/v1/gonum/floats"
)

// FarDistance is returned for a region with no range points. It is far
// enough that any real measurement compares as closer, so the range TTC
// estimator reports "no risk" rather than a spurious collision.
const FarDistance = 1e8

// Default order-statistic parameters. With more than DefaultMinPoints
// points the 5th-smallest forward distance is used, which discards a lone
// spurious near return while staying close to the true rear bumper.
const (
	DefaultOrderIndex = 4
	DefaultMinPoints  = 9
)

// DistanceEstimator reduces a point cluster to one robust closest
// forward distance.
type DistanceEstimator struct {
	// OrderIndex is the ascending sorted index used when the cluster is
	// large enough.
	OrderIndex int
	// MinPoints is the cluster size at or below which the raw minimum is
	// used instead of the order statistic.
	MinPoints int
}

// DefaultDistanceEstimator returns the production estimator.
func DefaultDistanceEstimator() DistanceEstimator {
	return DistanceEstimator{OrderIndex: DefaultOrderIndex, MinPoints: DefaultMinPoints}
}

// Estimate returns the robust closest X of points, or FarDistance when
// points is empty.
func (e DistanceEstimator) Estimate(points []l2frames.RangePoint) float64 {
	if len(points) == 0 {
		return FarDistance
	}

	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
	}
	minX := floats.Min(xs)

	if len(xs) <= e.MinPoints || e.OrderIndex >= len(xs) {
		return minX
	}

	sort.Float64s(xs)
	return xs[e.OrderIndex]
}

// RobustDistance applies the default estimator to points.
func RobustDistance(points []l2frames.RangePoint) float64 {
	return DefaultDistanceEstimator().Estimate(points)
}

// RegionSummary describes one region's range cluster.
type RegionSummary struct {
	BoxID        int
	PointCount   int
	MinX         float64 // Raw closest forward distance (metres)
	RobustX      float64 // Order-statistic closest forward distance (metres)
	LateralWidth float64 // Extent along Y (metres)
	ClosestZ     float64 // Height of the first point (input order) at RobustX (metres)
}

// Summarize computes a RegionSummary for region using e.
func (e DistanceEstimator) Summarize(region *l2frames.ObjectRegion) RegionSummary {
	s := RegionSummary{
		BoxID:      region.BoxID,
		PointCount: len(region.RangePoints),
		MinX:       FarDistance,
		RobustX:    e.Estimate(region.RangePoints),
	}
	if s.PointCount == 0 {
		return s
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	foundZ := false
	for _, p := range region.RangePoints {
		if p.X < s.MinX {
			s.MinX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
		if !foundZ && p.X == s.RobustX {
			s.ClosestZ = p.Z
			foundZ = true
		}
	}
	s.LateralWidth = maxY - minY
	return s
}
