// Package analysis provides the shared result types of the technical analysis
// pipeline: indicator snapshots and direction reports.
package analysis

import (
	"time"

	"trade-journal/internal/models"
)

// Direction represents the expected direction of a stock.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// IndicatorSnapshot holds the latest indicator values behind a prediction.
// Nil fields were undefined for the fetched history.
type IndicatorSnapshot struct {
	RSI           *float64 `json:"rsi"`
	MACD          *float64 `json:"macd"`
	MACDSignal    *float64 `json:"macdSignal"`
	MACDHistogram *float64 `json:"macdHistogram"`
	SMA50         *float64 `json:"sma50"`
	SMA200        *float64 `json:"sma200"`
	CurrentPrice  float64  `json:"currentPrice"`
}

// DirectionReport is the outcome of a direction prediction for one symbol.
type DirectionReport struct {
	Symbol     string            `json:"symbol"`
	Exchange   models.Exchange   `json:"exchange"`
	Direction  Direction         `json:"direction"`
	Confidence float64           `json:"confidence"`
	Indicators IndicatorSnapshot `json:"indicators"`
	Support    *float64          `json:"support"`
	Resistance *float64          `json:"resistance"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Votes accumulates weighted bullish and bearish signals.
type Votes struct {
	Bullish float64
	Bearish float64
	Total   int
}

// Bull records a bullish vote of the given weight.
func (v *Votes) Bull(weight float64) {
	v.Bullish += weight
	v.Total++
}

// Bear records a bearish vote of the given weight.
func (v *Votes) Bear(weight float64) {
	v.Bearish += weight
	v.Total++
}

// Scores returns the bullish and bearish percentages of all votes cast.
func (v Votes) Scores() (bullish, bearish float64) {
	if v.Total == 0 {
		return 0, 0
	}
	return v.Bullish / float64(v.Total) * 100, v.Bearish / float64(v.Total) * 100
}

// Verdict turns the vote scores into a direction and a confidence. A side
// must lead by more than 10 points; its confidence is clamped to [55, 95].
func (v Votes) Verdict() (Direction, float64) {
	bull, bear := v.Scores()
	switch {
	case bull > bear+10:
		return Bullish, models.Round(clamp(bull, 55, 95), 1)
	case bear > bull+10:
		return Bearish, models.Round(clamp(bear, 55, 95), 1)
	default:
		return Neutral, 50
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
