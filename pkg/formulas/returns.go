package formulas

// RollingReturn computes the percentage return between the current price
// and the close daysAgo trading days back in a date-sorted series.
//
// Returns 0 when the series is too short (fewer than daysAgo+1 points)
// or the reference price is 0. The zero fallback is the documented
// degrade policy for symbols with thin history, not an error.
func RollingReturn(closes []float64, currentPrice float64, daysAgo int) float64 {
	if len(closes) < daysAgo+1 {
		return 0
	}

	pastPrice := closes[len(closes)-1-daysAgo]
	if pastPrice == 0 {
		return 0
	}

	return (currentPrice - pastPrice) / pastPrice * 100
}
