package export

import "math"

func roundPercent(v float64) float64 {
	return math.Round(v)
}

// optional renders a missing value as an empty cell.
func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return roundPercent(*v)
}

func optionalRaw(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalMinutes(seconds *float64) interface{} {
	if seconds == nil {
		return ""
	}
	return roundPercent(*seconds / 60)
}
