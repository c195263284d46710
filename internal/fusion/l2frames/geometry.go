package l2frames

import "math"

// RangePoint is one range-sensor return in platform coordinates.
// Coordinate convention: X=forward, Y=left, Z=up (metres).
type RangePoint struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
	Reflectivity float64 `json:"r,omitempty"`
}

// Point2 is an image-plane location in pixels.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point2) Sub(q Point2) Point2 {
	return Point2{X: p.X - q.X, Y: p.Y - q.Y}
}

// Norm returns the Euclidean length of p.
func (p Point2) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Dist returns the Euclidean pixel distance between p and q.
func Dist(p, q Point2) float64 {
	return p.Sub(q).Norm()
}

// Rect is an axis-aligned image rectangle. X, Y is the top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside r. The left and top edges are
// inclusive, the right and bottom edges exclusive, so two rectangles that
// share an edge never both contain a point on it.
func (r Rect) Contains(p Point2) bool {
	return r.X <= p.X && p.X < r.X+r.Width &&
		r.Y <= p.Y && p.Y < r.Y+r.Height
}

// Shrink returns r inset on every side by factor/2 of that side's extent.
// A factor of 0.1 removes 5% from each of the four edges.
func (r Rect) Shrink(factor float64) Rect {
	return Rect{
		X:      r.X + factor*r.Width/2.0,
		Y:      r.Y + factor*r.Height/2.0,
		Width:  r.Width * (1 - factor),
		Height: r.Height * (1 - factor),
	}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}
