package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateRSI returns the current Relative Strength Index over the
// given period (typically 14), or nil when the series is too short.
//
//	RSI = 100 - (100 / (1 + RS))
//	RS  = Average Gain / Average Loss over N periods
func CalculateRSI(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}

	rsi := talib.Rsi(closes, period)
	return lastValid(rsi)
}

// RSISignal maps an RSI value onto the conventional zones.
func RSISignal(rsi float64) string {
	switch {
	case rsi >= 70:
		return "overbought"
	case rsi <= 30:
		return "oversold"
	default:
		return "neutral"
	}
}

// SMA returns the current simple moving average, or nil when the
// series is shorter than the period.
func SMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	return lastValid(talib.Sma(closes, period))
}

// EMA returns the current exponential moving average, or nil when the
// series is shorter than the period.
func EMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	return lastValid(talib.Ema(closes, period))
}

// lastValid returns a pointer to the final non-NaN value of a talib
// output series. talib pads the warmup window with zeros, so only the
// tail is meaningful.
func lastValid(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if v != v { // NaN
		return nil
	}
	return &v
}
