package indicators

// MACD periods and the signal-line approximation factor.
const (
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalFactor = 0.8
)

// SMA returns the mean of the last period prices, rounded to 2 decimals.
func SMA(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	return round2(mean(prices[len(prices)-period:])), true
}

// EMA seeds with the SMA of the first period prices and applies the
// 2/(period+1) multiplier over the remainder in order.
func EMA(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}

	multiplier := 2.0 / float64(period+1)
	ema := round2(mean(prices[:period]))
	for _, p := range prices[period:] {
		ema = (p-ema)*multiplier + ema
	}

	return round2(ema), true
}

// MACDResult holds the MACD line, its signal and the histogram.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD calculates EMA(12) - EMA(26). The signal line is approximated as
// MACDSignalFactor times the MACD value rather than an EMA(9) of the MACD
// series, so the histogram is always 20% of the MACD value.
func MACD(prices []float64) (MACDResult, bool) {
	if len(prices) < MACDSlowPeriod {
		return MACDResult{}, false
	}

	fast, okFast := EMA(prices, MACDFastPeriod)
	slow, okSlow := EMA(prices, MACDSlowPeriod)
	if !okFast || !okSlow {
		return MACDResult{}, false
	}

	macd := fast - slow
	signal := macd * MACDSignalFactor

	return MACDResult{
		MACD:      round2(macd),
		Signal:    round2(signal),
		Histogram: round2(macd - signal),
	}, true
}
