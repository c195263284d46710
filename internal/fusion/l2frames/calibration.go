package l2frames

import (
	"errors"
	"fmt"
	"math"
)

// Calibration holds the fixed camera/range-sensor transform chain. All
// matrices are row-major.
//
//	P  3x4 rectified projection matrix
//	R  4x4 rectifying rotation (homogeneous)
//	RT 4x4 platform-to-camera extrinsic (homogeneous)
//
// A platform point X maps to the image via P·R·RT·X.
type Calibration struct {
	P  [12]float64 `json:"p_rect"`
	R  [16]float64 `json:"r_rect"`
	RT [16]float64 `json:"rt"`
}

// ErrInvalidCalibration is returned by Validate for unusable matrices.
var ErrInvalidCalibration = errors.New("invalid calibration")

// Validate rejects non-finite entries and an all-zero projection matrix.
func (c Calibration) Validate() error {
	check := func(name string, vals []float64) error {
		for i, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s[%d] is not finite", ErrInvalidCalibration, name, i)
			}
		}
		return nil
	}
	if err := check("p_rect", c.P[:]); err != nil {
		return err
	}
	if err := check("r_rect", c.R[:]); err != nil {
		return err
	}
	if err := check("rt", c.RT[:]); err != nil {
		return err
	}
	for _, v := range c.P {
		if v != 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: p_rect is all zeros", ErrInvalidCalibration)
}

// Identity4 returns a 4x4 identity matrix in row-major order.
func Identity4() [16]float64 {
	return [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}
