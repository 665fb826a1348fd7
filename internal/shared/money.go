package shared

import "math"

// Round2 rounds a monetary amount to two decimal places, half away from
// zero. Totals are rounded at every accumulation step so stored amounts
// always match what a receipt shows.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
