package l4perception

import (
	"fmt"
	"math"

	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
	"gonum.org/v1/gonum/mat"
)

// Projector maps platform-frame range points to image pixels. The full
// P·R·RT chain is multiplied once at construction so projecting a point
// is a single 3x4 matrix-vector product.
type Projector struct {
	m *mat.Dense // 3x4
}

// NewProjector validates cal and precomputes the combined projection.
func NewProjector(cal l2frames.Calibration) (*Projector, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	p := mat.NewDense(3, 4, cal.P[:])
	r := mat.NewDense(4, 4, cal.R[:])
	rt := mat.NewDense(4, 4, cal.RT[:])

	var rrt mat.Dense
	rrt.Mul(r, rt)

	var full mat.Dense
	full.Mul(p, &rrt)

	return &Projector{m: &full}, nil
}

// Matrix returns a copy of the combined 3x4 projection in row-major order.
func (pr *Projector) Matrix() [12]float64 {
	var out [12]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = pr.m.At(i, j)
		}
	}
	return out
}

// Project returns the pixel location of p. ok is false when the
// homogeneous scale is zero or the result is not finite.
func (pr *Projector) Project(p l2frames.RangePoint) (px l2frames.Point2, ok bool) {
	x := mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1})
	var y mat.VecDense
	y.MulVec(pr.m, x)

	w := y.AtVec(2)
	if w == 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return l2frames.Point2{}, false
	}
	u := y.AtVec(0) / w
	v := y.AtVec(1) / w
	if math.IsNaN(u) || math.IsInf(u, 0) || math.IsNaN(v) || math.IsInf(v, 0) {
		return l2frames.Point2{}, false
	}
	return l2frames.Point2{X: u, Y: v}, true
}

// String implements fmt.Stringer for debug logging.
func (pr *Projector) String() string {
	return fmt.Sprintf("%v", mat.Formatted(pr.m, mat.Squeeze()))
}
