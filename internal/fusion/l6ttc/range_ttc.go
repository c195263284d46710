package l6ttc

import (
	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
	"github.com/banshee-data/collision.report/internal/fusion/l4perception"
)

// TTCFromDistances computes a constant-velocity TTC from two robust
// closest distances one frame apart.
//
// A non-closing object (distCurr >= distPrev) yields OutcomeNoRisk with a
// nil error: that is a normal answer, not a failure. A previous distance at
// or beyond l4perception.FarDistance means the object had no range data in
// the previous frame and also yields OutcomeNoRisk.
func TTCFromDistances(distPrev, distCurr, frameRate float64) (Result, error) {
	if err := CheckFrameRate(frameRate); err != nil {
		return Result{Outcome: OutcomeInsufficientData, Detail: "invalid frame rate"}, err
	}
	if distPrev >= l4perception.FarDistance {
		return noRisk("no previous range data"), nil
	}
	if distCurr >= distPrev {
		return noRisk("not closing"), nil
	}

	closingSpeed := (distPrev - distCurr) * frameRate // m/s
	return estimate(distCurr / closingSpeed), nil
}

// ComputeTTCRange estimates TTC from the previous and current range
// clusters of one object. Empty clusters resolve to FarDistance, so a lost
// or newly seen object reports OutcomeNoRisk.
func ComputeTTCRange(prev, curr []l2frames.RangePoint, frameRate float64, est l4perception.DistanceEstimator) (Result, error) {
	return TTCFromDistances(est.Estimate(prev), est.Estimate(curr), frameRate)
}

// ClosingSpeed returns the closing speed (m/s) implied by two distances,
// or zero when the object is not closing or has no previous range data.
func ClosingSpeed(distPrev, distCurr, frameRate float64) float64 {
	if distPrev >= l4perception.FarDistance || distCurr >= distPrev || frameRate <= 0 {
		return 0
	}
	return (distPrev - distCurr) * frameRate
}
