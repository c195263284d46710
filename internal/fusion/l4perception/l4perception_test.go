package l4perception

import (
	"math"
	"testing"

	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
	"github.com/banshee-data/collision.report/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xs(vals ...float64) []l2frames.RangePoint {
	pts := make([]l2frames.RangePoint, len(vals))
	for i, v := range vals {
		pts[i] = l2frames.RangePoint{X: v}
	}
	return pts
}

func TestRobustDistance(t *testing.T) {
	tests := []struct {
		name   string
		points []l2frames.RangePoint
		want   float64
	}{
		{"empty cluster is far", nil, FarDistance},
		{"small cluster uses minimum", xs(8, 5, 9), 5},
		{"nine points uses minimum", xs(9, 8, 7, 6, 5, 4, 3, 2, 1), 1},
		{"ten points uses fifth smallest", xs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), 5},
		{"unsorted input", xs(10, 3, 7, 1, 9, 5, 2, 8, 4, 6), 5},
		{"single near outlier is discarded", xs(2.1, 7.90, 7.91, 7.92, 7.93, 7.94, 7.95, 7.96, 7.97, 7.98, 7.99), 7.93},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RobustDistance(tt.points); got != tt.want {
				t.Errorf("RobustDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRobustDistance_DoesNotReorderInput(t *testing.T) {
	pts := xs(10, 3, 7, 1, 9, 5, 2, 8, 4, 6)
	RobustDistance(pts)
	assert.Equal(t, 10.0, pts[0].X)
	assert.Equal(t, 6.0, pts[9].X)
}

func TestDistanceEstimator_CustomOrder(t *testing.T) {
	e := DistanceEstimator{OrderIndex: 1, MinPoints: 2}
	assert.Equal(t, 2.0, e.Estimate(xs(4, 1, 3, 2)))
	assert.Equal(t, 1.0, e.Estimate(xs(4, 1)))
}

func TestProjector_MatchesPinhole(t *testing.T) {
	proj, err := NewProjector(testutil.DefaultCalibration())
	require.NoError(t, err)

	for _, p := range []l2frames.RangePoint{
		{X: 10, Y: 0, Z: 0},
		{X: 15, Y: 1.2, Z: -0.4},
		{X: 7.5, Y: -2, Z: 0.9},
	} {
		got, ok := proj.Project(p)
		require.True(t, ok)
		want := testutil.ProjectPinhole(p.X, p.Y, p.Z)
		assert.InDelta(t, want.X, got.X, 1e-9)
		assert.InDelta(t, want.Y, got.Y, 1e-9)
	}
}

func TestProjector_DegenerateScale(t *testing.T) {
	proj, err := NewProjector(testutil.DefaultCalibration())
	require.NoError(t, err)

	_, ok := proj.Project(l2frames.RangePoint{X: 0, Y: 1, Z: 1})
	assert.False(t, ok, "a point on the camera plane has no pixel")
}

func TestProjector_RejectsInvalidCalibration(t *testing.T) {
	_, err := NewProjector(l2frames.Calibration{})
	assert.ErrorIs(t, err, l2frames.ErrInvalidCalibration)
}

func TestProjector_MatrixProduct(t *testing.T) {
	proj, err := NewProjector(testutil.DefaultCalibration())
	require.NoError(t, err)

	// P·R·RT for the pinhole fixture: row 2 selects platform X as depth.
	m := proj.Matrix()
	assert.Equal(t, [4]float64{1, 0, 0, 0}, [4]float64{m[8], m[9], m[10], m[11]})
	assert.Equal(t, testutil.CX, m[0])
	assert.Equal(t, -testutil.FocalPx, m[1])
}

func TestClusterRangePointsWithROI(t *testing.T) {
	proj, err := NewProjector(testutil.DefaultCalibration())
	require.NoError(t, err)

	// Point straight ahead projects to (CX, CY).
	centre := l2frames.RangePoint{X: 10}
	// 1 m to the left projects 70 px left of centre.
	left := l2frames.RangePoint{X: 10, Y: 1}
	// Far right, outside every region.
	outside := l2frames.RangePoint{X: 10, Y: -5}

	regions := []l2frames.ObjectRegion{
		{BoxID: 1, ROI: l2frames.Rect{X: testutil.CX - 100, Y: testutil.CY - 20, Width: 120, Height: 40}},
		{BoxID: 2, ROI: l2frames.Rect{X: testutil.CX - 20, Y: testutil.CY - 20, Width: 120, Height: 40}},
	}

	stats := ClusterRangePointsWithROI(regions, []l2frames.RangePoint{centre, left, outside}, 0.1, proj)

	assert.Equal(t, ClusterStats{Total: 3, Assigned: 1, Ambiguous: 1, Outside: 1}, stats)
	require.Len(t, regions[0].RangePoints, 1)
	assert.Equal(t, left, regions[0].RangePoints[0])
	assert.Empty(t, regions[1].RangePoints, "the shared centre point must not be assigned to either region")
}

func TestClusterRangePointsWithROI_ShrinkExcludesEdge(t *testing.T) {
	proj, err := NewProjector(testutil.DefaultCalibration())
	require.NoError(t, err)

	// 100 px wide box starting at CX-95: the centre point is 95 px in,
	// inside the full box but outside the 20% shrunk box (inset 10 px).
	regions := []l2frames.ObjectRegion{
		{BoxID: 1, ROI: l2frames.Rect{X: testutil.CX - 95, Y: testutil.CY - 50, Width: 100, Height: 100}},
	}
	pts := []l2frames.RangePoint{{X: 10}}

	stats := ClusterRangePointsWithROI(regions, pts, 0, proj)
	assert.Equal(t, 1, stats.Assigned)

	regions[0].RangePoints = nil
	stats = ClusterRangePointsWithROI(regions, pts, 0.2, proj)
	assert.Equal(t, 1, stats.Outside)
	assert.Empty(t, regions[0].RangePoints)
}

func TestClusterRangePointsWithROI_Scene(t *testing.T) {
	proj, err := NewProjector(testutil.DefaultCalibration())
	require.NoError(t, err)

	pair := testutil.DefaultApproachScene().FramePair()
	stats := ClusterRangePointsWithROI(pair.Curr.Regions, pair.Curr.RangePoints, 0.1, proj)

	assert.Equal(t, len(pair.Curr.RangePoints), stats.Assigned)
	assert.Equal(t, 18.0, RobustDistance(pair.Curr.Regions[0].RangePoints))
}

func TestClusterRangePointsWithROI_NoRegions(t *testing.T) {
	proj, err := NewProjector(testutil.DefaultCalibration())
	require.NoError(t, err)

	stats := ClusterRangePointsWithROI(nil, xs(5, 6), 0.1, proj)
	assert.Equal(t, 2, stats.Outside)
}

func TestSummarize(t *testing.T) {
	region := &l2frames.ObjectRegion{BoxID: 4}
	for i := 0; i < 12; i++ {
		region.RangePoints = append(region.RangePoints, l2frames.RangePoint{
			X: 10 + float64(i)*0.1,
			Y: -0.7 + float64(i)*0.1,
			Z: float64(i),
		})
	}

	s := DefaultDistanceEstimator().Summarize(region)
	assert.Equal(t, 4, s.BoxID)
	assert.Equal(t, 12, s.PointCount)
	assert.Equal(t, 10.0, s.MinX)
	assert.Equal(t, region.RangePoints[4].X, s.RobustX)
	assert.InDelta(t, 1.1, s.LateralWidth, 1e-9)
	assert.Equal(t, 4.0, s.ClosestZ)
}

func TestSummarize_ClosestZTieUsesFirstPoint(t *testing.T) {
	points := []l2frames.RangePoint{
		{X: 7, Z: 1},
		{X: 5, Z: 2},
		{X: 5, Z: 3},
	}
	s := DefaultDistanceEstimator().Summarize(&l2frames.ObjectRegion{RangePoints: points})
	assert.Equal(t, 5.0, s.RobustX)
	assert.Equal(t, 2.0, s.ClosestZ)

	points[1], points[2] = points[2], points[1]
	s = DefaultDistanceEstimator().Summarize(&l2frames.ObjectRegion{RangePoints: points})
	assert.Equal(t, 3.0, s.ClosestZ)
}

func TestSummarize_Empty(t *testing.T) {
	s := DefaultDistanceEstimator().Summarize(&l2frames.ObjectRegion{BoxID: 9})
	assert.Equal(t, 0, s.PointCount)
	assert.Equal(t, float64(FarDistance), s.RobustX)
	assert.False(t, math.IsInf(s.LateralWidth, 0))
}
