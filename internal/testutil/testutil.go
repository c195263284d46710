// Package testutil provides shared test utilities and fixtures.
//
// This package centralises synthetic calibration and scene builders so the
// fusion layer tests exercise the same geometry instead of each file
// hand-rolling its own pinhole maths.
package testutil

import "github.com/banshee-data/collision.report/internal/fusion/l2frames"

// Default pinhole intrinsics used by the synthetic scenes. They are close
// to a 1242x375 automotive camera.
const (
	FocalPx = 700.0
	CX      = 620.0
	CY      = 190.0
)

// PinholeCalibration returns a calibration for an ideal camera at the
// platform origin looking along +X. The extrinsic swaps platform axes
// (X fwd, Y left, Z up) into camera axes (x right, y down, z fwd).
func PinholeCalibration(f, cx, cy float64) l2frames.Calibration {
	return l2frames.Calibration{
		P: [12]float64{
			f, 0, cx, 0,
			0, f, cy, 0,
			0, 0, 1, 0,
		},
		R: l2frames.Identity4(),
		RT: [16]float64{
			0, -1, 0, 0,
			0, 0, -1, 0,
			1, 0, 0, 0,
			0, 0, 0, 1,
		},
	}
}

// DefaultCalibration is PinholeCalibration with the package intrinsics.
func DefaultCalibration() l2frames.Calibration {
	return PinholeCalibration(FocalPx, CX, CY)
}

// ProjectPinhole is the closed-form projection for DefaultCalibration.
func ProjectPinhole(x, y, z float64) l2frames.Point2 {
	return l2frames.Point2{X: FocalPx*(-y)/x + CX, Y: FocalPx*(-z)/x + CY}
}

// PlaneROI returns the image rectangle covering a fronto-parallel plate at
// forward distance d spanning [yMin,yMax] x [zMin,zMax], grown by margin
// pixels on every side.
func PlaneROI(d, yMin, yMax, zMin, zMax, margin float64) l2frames.Rect {
	tl := ProjectPinhole(d, yMax, zMax)
	br := ProjectPinhole(d, yMin, zMin)
	return l2frames.Rect{
		X:      tl.X - margin,
		Y:      tl.Y - margin,
		Width:  br.X - tl.X + 2*margin,
		Height: br.Y - tl.Y + 2*margin,
	}
}

// PlanePoints returns an nY x nZ grid of range points on a plate at
// forward distance d. Grid cells are sampled at their centres so no point
// lands on the plate edge.
func PlanePoints(d, yMin, yMax, zMin, zMax float64, nY, nZ int) []l2frames.RangePoint {
	pts := make([]l2frames.RangePoint, 0, nY*nZ)
	for i := 0; i < nY; i++ {
		y := yMin + (float64(i)+0.5)*(yMax-yMin)/float64(nY)
		for j := 0; j < nZ; j++ {
			z := zMin + (float64(j)+0.5)*(zMax-zMin)/float64(nZ)
			pts = append(pts, l2frames.RangePoint{X: d, Y: y, Z: z})
		}
	}
	return pts
}

// PlaneKeypoints projects the same grid as PlanePoints into keypoints.
func PlaneKeypoints(d, yMin, yMax, zMin, zMax float64, nY, nZ int) []l2frames.Keypoint {
	pts := PlanePoints(d, yMin, yMax, zMin, zMax, nY, nZ)
	kpts := make([]l2frames.Keypoint, len(pts))
	for i, p := range pts {
		kpts[i] = l2frames.Keypoint{Pt: ProjectPinhole(p.X, p.Y, p.Z)}
	}
	return kpts
}

// IdentityMatches returns matches pairing keypoint i with keypoint i.
func IdentityMatches(n int) []l2frames.Match {
	m := make([]l2frames.Match, n)
	for i := range m {
		m[i] = l2frames.Match{PrevIdx: i, CurrIdx: i}
	}
	return m
}

// ApproachScene describes a single plate closing on the platform.
type ApproachScene struct {
	BoxID      int
	DistPrev   float64
	DistCurr   float64
	HalfWidth  float64 // Plate half-extent along Y (metres)
	HalfHeight float64 // Plate half-extent along Z (metres)
	Grid       int     // Points per axis for range points and keypoints
}

// DefaultApproachScene is a 1.6 m x 1.0 m plate moving from 20 m to 18 m.
func DefaultApproachScene() ApproachScene {
	return ApproachScene{BoxID: 1, DistPrev: 20, DistCurr: 18, HalfWidth: 0.8, HalfHeight: 0.5, Grid: 6}
}

// FramePair builds previous and current frames for s. Range points and
// keypoints share one grid so image scaling matches the distance change
// exactly.
func (s ApproachScene) FramePair() *l2frames.FramePair {
	build := func(idx int, d float64) *l2frames.Frame {
		return &l2frames.Frame{
			Index: idx,
			Regions: []l2frames.ObjectRegion{{
				BoxID: s.BoxID,
				ROI:   PlaneROI(d, -s.HalfWidth, s.HalfWidth, -s.HalfHeight, s.HalfHeight, 4),
			}},
			Keypoints:   PlaneKeypoints(d, -s.HalfWidth, s.HalfWidth, -s.HalfHeight, s.HalfHeight, s.Grid, s.Grid),
			RangePoints: PlanePoints(d, -s.HalfWidth, s.HalfWidth, -s.HalfHeight, s.HalfHeight, s.Grid, s.Grid),
		}
	}
	return &l2frames.FramePair{
		Prev:    build(0, s.DistPrev),
		Curr:    build(1, s.DistCurr),
		Matches: IdentityMatches(s.Grid * s.Grid),
	}
}

// ExpectedTTC returns the constant-velocity TTC for s at frameRate.
func (s ApproachScene) ExpectedTTC(frameRate float64) float64 {
	return s.DistCurr / ((s.DistPrev - s.DistCurr) * frameRate)
}
