package indicators

import (
	"trade-journal/internal/models"
)

// Support/resistance needs this many bars and looks at the most recent
// fraction of them.
const (
	MinLevelBars      = 20
	RecentLevelWindow = 0.2
)

// Levels represents nearby support and resistance prices.
type Levels struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// SupportResistance takes the lowest low and highest high of the most recent
// 20% of bars (floored).
func SupportResistance(bars []models.PriceBar) (Levels, bool) {
	if len(bars) < MinLevelBars {
		return Levels{}, false
	}

	window := int(float64(len(bars)) * RecentLevelWindow)
	recent := bars[len(bars)-window:]

	return Levels{
		Support:    round2(lowest(lowPrices(recent))),
		Resistance: round2(highest(highPrices(recent))),
	}, true
}

// Position reports where price sits between support (0) and resistance (1).
// ok is false when support equals resistance, since a flat range has no
// position.
func (l Levels) Position(price float64) (float64, bool) {
	width := l.Resistance - l.Support
	if width == 0 {
		return 0, false
	}
	return (price - l.Support) / width, true
}
