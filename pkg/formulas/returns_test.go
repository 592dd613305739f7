package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRollingReturnInsufficientHistory tests the zero fallback for
// series shorter than daysAgo+1.
func TestRollingReturnInsufficientHistory(t *testing.T) {
	closes := []float64{100, 101, 102}

	assert.Equal(t, 0.0, RollingReturn(closes, 102, 30))
	assert.Equal(t, 0.0, RollingReturn(closes, 102, 3))
	assert.Equal(t, 0.0, RollingReturn(nil, 102, 1))
}

// TestRollingReturnDay1 tests the one-day return over a 31-point series.
func TestRollingReturnDay1(t *testing.T) {
	closes := make([]float64, 31)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	// (p[30] - p[29]) / p[29] * 100
	expected := (closes[30] - closes[29]) / closes[29] * 100
	assert.InDelta(t, expected, RollingReturn(closes, closes[30], 1), 1e-9)
}

// TestRollingReturnExactBoundary tests a series of exactly daysAgo+1 points.
func TestRollingReturnExactBoundary(t *testing.T) {
	closes := []float64{100, 110, 120, 130, 140, 150}

	// 5 days ago is the first element.
	assert.InDelta(t, 50.0, RollingReturn(closes, 150, 5), 1e-9)
}

// TestRollingReturnZeroReference tests the guard against dividing by a
// zero past price.
func TestRollingReturnZeroReference(t *testing.T) {
	closes := []float64{0, 100}
	assert.Equal(t, 0.0, RollingReturn(closes, 100, 1))
}

func TestRollingReturnNegative(t *testing.T) {
	closes := []float64{200, 100}
	assert.InDelta(t, -50.0, RollingReturn(closes, 100, 1), 1e-9)
}

// TestBollingerBands sanity-checks band ordering.
func TestBollingerBands(t *testing.T) {
	closes := []float64{10, 11, 12, 11, 10, 11, 12, 13, 12, 11,
		10, 11, 12, 11, 10, 11, 12, 13, 12, 11}

	middle, upper, lower := BollingerBands(closes, 20, 2)
	assert.Greater(t, upper, middle)
	assert.Less(t, lower, middle)
}

func TestBollingerBandsShortSeries(t *testing.T) {
	middle, upper, lower := BollingerBands([]float64{1, 2, 3}, 20, 2)
	assert.Zero(t, middle)
	assert.Zero(t, upper)
	assert.Zero(t, lower)
}

// TestRSISignal tests zone mapping.
func TestRSISignal(t *testing.T) {
	assert.Equal(t, "overbought", RSISignal(71.2))
	assert.Equal(t, "oversold", RSISignal(28.0))
	assert.Equal(t, "neutral", RSISignal(50.0))
}

// TestCalculateRSIShortSeries tests the nil return for thin series.
func TestCalculateRSIShortSeries(t *testing.T) {
	closes := []float64{100, 101, 102}
	assert.Nil(t, CalculateRSI(closes, 14))
}
