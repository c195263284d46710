// Package units provides speed unit constants, validation and formatting
// for closing speeds reported alongside TTC estimates.
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

var labels = map[string]string{
	MPS:  "m/s",
	MPH:  "mph",
	KMPH: "km/h",
	KPH:  "km/h",
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	_, ok := labels[unit]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Closing speeds are computed in m/s; unknown units return the input unchanged.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// Label returns the display suffix for a unit, falling back to m/s.
func Label(unit string) string {
	if l, ok := labels[unit]; ok {
		return l
	}
	return labels[MPS]
}

// FormatSpeed converts speedMPS and renders it with one decimal and a unit label.
func FormatSpeed(speedMPS float64, unit string) string {
	return fmt.Sprintf("%.1f %s", ConvertSpeed(speedMPS, unit), Label(unit))
}
