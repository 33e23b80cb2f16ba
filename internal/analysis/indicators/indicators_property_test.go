package indicators

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"trade-journal/internal/models"
)

func priceSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.IntRange(minLen, maxLen).FlatMap(func(n interface{}) gopter.Gen {
		return gen.SliceOfN(n.(int), gen.Float64Range(100.0, 1000.0))
	}, reflect.TypeOf([]float64{}))
}

func barsFrom(closes []float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestRSIMonotonicIncreaseIs100(t *testing.T) {
	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	rsi, ok := RSI(prices, 14)
	assert.True(t, ok)
	assert.Equal(t, 100.0, rsi)
}

func TestRSIUndefined(t *testing.T) {
	_, ok := RSI(make([]float64, 14), 14)
	assert.False(t, ok)
	_, ok = RSI([]float64{1, 2, 3}, 0)
	assert.False(t, ok)
}

func TestRSIKnownValue(t *testing.T) {
	// Alternating +2/-1 deltas: avgGain 1, avgLoss 0.5 over 14 deltas -> RS 2.
	prices := []float64{100}
	for i := 0; i < 14; i++ {
		last := prices[len(prices)-1]
		if i%2 == 0 {
			prices = append(prices, last+2)
		} else {
			prices = append(prices, last-1)
		}
	}
	rsi, ok := RSI(prices, 14)
	assert.True(t, ok)
	assert.Equal(t, 66.67, rsi)
}

func TestSMA(t *testing.T) {
	v, ok := SMA([]float64{10, 20, 30}, 3)
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	v, ok = SMA([]float64{5, 10, 20, 30}, 3)
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	_, ok = SMA([]float64{10, 20}, 3)
	assert.False(t, ok)
}

func TestEMA(t *testing.T) {
	// Seed SMA(1,2,3)=2, multiplier 0.5: 4 -> 3, 5 -> 4.
	v, ok := EMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)

	_, ok = EMA([]float64{1, 2}, 3)
	assert.False(t, ok)
}

func TestMACD(t *testing.T) {
	_, ok := MACD(make([]float64, 25))
	assert.False(t, ok)

	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	m, ok := MACD(rising)
	assert.True(t, ok)
	assert.Greater(t, m.MACD, 0.0)
	assert.InDelta(t, m.MACD*MACDSignalFactor, m.Signal, 0.011)
	assert.InDelta(t, m.MACD-m.Signal, m.Histogram, 0.02)
}

func TestSupportResistance(t *testing.T) {
	_, ok := SupportResistance(barsFrom(make([]float64, 19)))
	assert.False(t, ok)

	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	// Spike early in the series must be ignored: only the last 10 bars count.
	closes[5] = 1000
	levels, ok := SupportResistance(barsFrom(closes))
	assert.True(t, ok)
	assert.Equal(t, 161.0, levels.Resistance)
	assert.Equal(t, 150.0, levels.Support)

	pos, ok := levels.Position(levels.Support)
	assert.True(t, ok)
	assert.Equal(t, 0.0, pos)
	pos, ok = levels.Position(levels.Resistance)
	assert.True(t, ok)
	assert.Equal(t, 1.0, pos)

	_, ok = Levels{Support: 10, Resistance: 10}.Position(10)
	assert.False(t, ok, "flat range has no position")
}

func TestProperty_RSIWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("RSI values are within [0, 100]", prop.ForAll(
		func(prices []float64) bool {
			v, ok := RSI(prices, DefaultRSIPeriod)
			if !ok {
				return len(prices) < DefaultRSIPeriod+1
			}
			return v >= 0 && v <= 100
		},
		priceSliceGen(5, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_SMAIsAverageOfPrices(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("SMA is the arithmetic mean of the last period prices", prop.ForAll(
		func(prices []float64, period int) bool {
			v, ok := SMA(prices, period)
			if len(prices) < period {
				return !ok
			}
			expected := mean(prices[len(prices)-period:])
			return ok && math.Abs(v-expected) <= 0.005+1e-9
		},
		priceSliceGen(1, 60),
		gen.IntRange(1, 30),
	))

	properties.Property("EMA stays within the price range", prop.ForAll(
		func(prices []float64, period int) bool {
			v, ok := EMA(prices, period)
			if len(prices) < period {
				return !ok
			}
			return ok && v >= lowest(prices)-0.01 && v <= highest(prices)+0.01
		},
		priceSliceGen(1, 60),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

func TestProperty_SupportBelowResistance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("support <= resistance", prop.ForAll(
		func(prices []float64) bool {
			levels, ok := SupportResistance(barsFrom(prices))
			if len(prices) < MinLevelBars {
				return !ok
			}
			return ok && levels.Support <= levels.Resistance
		},
		priceSliceGen(10, 120),
	))

	properties.TestingRun(t)
}
