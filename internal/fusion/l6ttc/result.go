package l6ttc

import (
	"errors"
	"fmt"
	"math"
)

// Outcome tags a TTC result.
type Outcome string

const (
	// OutcomeEstimate is a finite TTC in seconds.
	OutcomeEstimate Outcome = "estimate"
	// OutcomeNoRisk means the object is not closing over this frame pair.
	OutcomeNoRisk Outcome = "no_risk"
	// OutcomeInsufficientData means there was not enough input to estimate.
	OutcomeInsufficientData Outcome = "insufficient_data"
	// OutcomeIndeterminate means the input implied zero relative motion
	// or an otherwise unbounded estimate.
	OutcomeIndeterminate Outcome = "indeterminate"
)

// NoRiskSeconds is the display value carried by OutcomeNoRisk results.
const NoRiskSeconds = 1000.0

// Sentinel errors returned alongside non-estimate results.
var (
	ErrInvalidFrameRate = errors.New("frame rate must be positive and finite")
	ErrInsufficientData = errors.New("insufficient correspondences")
	ErrIndeterminate    = errors.New("indeterminate time to collision")
)

// Result is one TTC value with its outcome tag. Seconds is only a
// collision estimate when Outcome is OutcomeEstimate.
type Result struct {
	Outcome Outcome
	Seconds float64
	Detail  string
}

// Valid reports whether r holds a finite estimate.
func (r Result) Valid() bool {
	return r.Outcome == OutcomeEstimate
}

// String formats r for logs.
func (r Result) String() string {
	switch r.Outcome {
	case OutcomeEstimate:
		return fmt.Sprintf("%.3fs", r.Seconds)
	case OutcomeNoRisk:
		return "no risk"
	default:
		if r.Detail != "" {
			return fmt.Sprintf("%s (%s)", r.Outcome, r.Detail)
		}
		return string(r.Outcome)
	}
}

func estimate(seconds float64) Result {
	return Result{Outcome: OutcomeEstimate, Seconds: seconds}
}

func noRisk(detail string) Result {
	return Result{Outcome: OutcomeNoRisk, Seconds: NoRiskSeconds, Detail: detail}
}

func insufficient(detail string) (Result, error) {
	return Result{Outcome: OutcomeInsufficientData, Detail: detail},
		fmt.Errorf("%w: %s", ErrInsufficientData, detail)
}

func indeterminate(detail string) (Result, error) {
	return Result{Outcome: OutcomeIndeterminate, Detail: detail},
		fmt.Errorf("%w: %s", ErrIndeterminate, detail)
}

// CheckFrameRate returns ErrInvalidFrameRate unless frameRate is positive
// and finite.
func CheckFrameRate(frameRate float64) error {
	if !(frameRate > 0) || math.IsInf(frameRate, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidFrameRate, frameRate)
	}
	return nil
}
