// Package indicators provides pure technical indicator calculations over
// price series ordered oldest to newest. An indicator that cannot be computed
// from the given input reports ok == false instead of an error.
package indicators

import (
	"trade-journal/internal/models"
)

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// highest returns the highest value in a slice.
func highest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

// lowest returns the lowest value in a slice.
func lowest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return l
}

// highPrices extracts bar highs, using the close when a high is missing.
func highPrices(bars []models.PriceBar) []float64 {
	highs := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		if highs[i] == 0 {
			highs[i] = b.Close
		}
	}
	return highs
}

// lowPrices extracts bar lows, using the close when a low is missing.
func lowPrices(bars []models.PriceBar) []float64 {
	lows := make([]float64, len(bars))
	for i, b := range bars {
		lows[i] = b.Low
		if lows[i] == 0 {
			lows[i] = b.Close
		}
	}
	return lows
}

func round2(v float64) float64 {
	return models.Round2(v)
}
