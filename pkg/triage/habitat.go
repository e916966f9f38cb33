package triage

import "math"

// Conservative habitable zone in Earth insolation units.
const (
	hzInner = 0.25
	hzOuter = 1.75
)

// InHabitableZone reports whether insolation is present, positive and within
// the conservative zone [0.25, 1.75].
func InHabitableZone(insol *float64) bool {
	if insol == nil || *insol <= 0 {
		return false
	}
	return *insol >= hzInner && *insol <= hzOuter
}

// SizeClass labels a planet radius (Earth radii). Negative radii count as 0.
func SizeClass(radius float64) string {
	r := math.Max(0, radius)
	switch {
	case r < 1:
		return "Sub-Earth"
	case r < 2:
		return "Earth-size"
	case r < 4:
		return "Super-Earth"
	case r < 8:
		return "Neptune-size"
	case r < 15:
		return "Jupiter-size"
	default:
		return "Super-Jupiter"
	}
}
