package psychology

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

var base = time.Date(2024, 5, 6, 9, 15, 0, 0, time.UTC)

func trade(symbol string, entry, exit time.Time, pnl float64, emotion models.Emotion) models.TradeRecord {
	return models.TradeRecord{
		Symbol:     symbol,
		Exchange:   models.NSE,
		TradeType:  models.Long,
		EntryPrice: 1000,
		Quantity:   10,
		EntryDate:  entry,
		ExitDate:   &exit,
		ProfitLoss: pnl,
		Status:     models.StatusClosed,
		Emotion:    emotion,
	}
}

func TestEmpty(t *testing.T) {
	r := NewAnalyzer(nil).Analyze(nil)
	assert.Empty(t, r.EmotionDistribution)
	assert.Empty(t, r.Insights)
	assert.Nil(t, r.BestEmotionalState)
	assert.Equal(t, BehaviorPatterns{}, r.BehaviorPatterns)
}

func TestEmotionDistribution(t *testing.T) {
	records := []models.TradeRecord{
		trade("A", base, base, 1, models.EmotionCalm),
		trade("B", base, base, 1, models.EmotionCalm),
		trade("C", base, base, 1, models.EmotionFear),
		trade("D", base, base, 1, models.EmotionUnset),
	}
	records[1].Status = models.StatusOpen

	shares, tagged := EmotionDistribution(records)
	assert.Equal(t, 3, tagged)
	require.Len(t, shares, 5)
	assert.Equal(t, EmotionShare{Emotion: models.EmotionFear, Count: 1, Percentage: 33.3}, shares[0])
	assert.Equal(t, EmotionShare{Emotion: models.EmotionGreed}, shares[1])
	assert.Equal(t, EmotionShare{Emotion: models.EmotionCalm, Count: 2, Percentage: 66.7}, shares[4])
}

func TestRevengeWindow(t *testing.T) {
	loss := trade("TCS", base.Add(-time.Hour), base, -500, models.EmotionUnset)

	tests := []struct {
		name  string
		after time.Duration
		want  int
	}{
		{"five hours later", 5 * time.Hour, 1},
		{"thirty hours later", 30 * time.Hour, 0},
		{"at the loss exit", 0, 1},
		{"exactly 24 hours", 24 * time.Hour, 0},
		{"entered before the loss exit", -time.Minute, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := trade("INFY", base.Add(tt.after), base.Add(tt.after+48*time.Hour), 100, models.EmotionUnset)
			pairs := RevengeTrades(exitOrder([]models.TradeRecord{next, loss}))
			assert.Len(t, pairs, tt.want)
		})
	}

	next := trade("INFY", base.Add(5*time.Hour+6*time.Minute), base.Add(6*time.Hour), 100, models.EmotionUnset)
	pairs := RevengeTrades(exitOrder([]models.TradeRecord{loss, next}))
	require.Len(t, pairs, 1)
	assert.Equal(t, RevengePair{PreviousTrade: "TCS", CurrentTrade: "INFY", HoursAfter: 5.1}, pairs[0])
}

func TestFearExits(t *testing.T) {
	day := func(d int) time.Time { return base.AddDate(0, 0, d) }
	trades := []models.TradeRecord{
		trade("A", day(0), day(1), -200, models.EmotionFear),
		trade("B", day(1), day(2), 50, models.EmotionFear),   // 0.5% of 10000: fear exit
		trade("C", day(2), day(3), 20, models.EmotionFear),   // no pending loss
		trade("D", day(3), day(4), -10, models.EmotionFear),  // loss
		trade("E", day(4), day(5), 0, models.EmotionFear),    // breakeven keeps the flag
		trade("F", day(5), day(6), 500, models.EmotionFear),  // 5%: clears the flag
		trade("G", day(6), day(7), 30, models.EmotionFear),   // no pending loss
	}
	assert.Equal(t, 1, FearExits(trades))
}

func TestOvertradingDays(t *testing.T) {
	var records []models.TradeRecord
	for i := 0; i < 5; i++ {
		records = append(records, models.TradeRecord{Symbol: "X", EntryDate: base.Add(time.Duration(i) * time.Hour), Status: models.StatusOpen})
	}
	for i := 0; i < 4; i++ {
		records = append(records, models.TradeRecord{Symbol: "Y", EntryDate: base.AddDate(0, 0, 1).Add(time.Duration(i) * time.Hour), Status: models.StatusOpen})
	}
	assert.Equal(t, 1, NewAnalyzer(time.UTC).OvertradingDays(records))

	// 09:15 UTC plus hours stays within one day in IST too.
	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, 1, NewAnalyzer(ist).OvertradingDays(records))
}

func TestBestEmotions(t *testing.T) {
	d := func(i int) time.Time { return base.AddDate(0, 0, i) }
	records := []models.TradeRecord{
		trade("A", d(0), d(0), 300, models.EmotionCalm),
		trade("B", d(1), d(1), 100, models.EmotionCalm),
		trade("C", d(2), d(2), 50, models.EmotionConfidence),
		trade("D", d(3), d(3), -10, models.EmotionConfidence),
		trade("E", d(4), d(4), -100, models.EmotionGreed),
		trade("F", d(5), d(5), -50, models.EmotionGreed),
		trade("G", d(6), d(6), 1000, models.EmotionFear),
	}
	ranked := EmotionRanking(records)
	require.Len(t, ranked, 3)
	assert.Equal(t, EmotionPerformance{Emotion: models.EmotionCalm, AvgPnL: 200, WinRate: 100, Count: 2, TotalPnL: 400}, ranked[0])
	assert.Equal(t, models.EmotionConfidence, ranked[1].Emotion)
	assert.Equal(t, 50.0, ranked[1].WinRate)
	assert.Equal(t, models.EmotionGreed, ranked[2].Emotion)
}

func TestAnalyzeInsights(t *testing.T) {
	h := func(n int) time.Time { return base.Add(time.Duration(n) * time.Hour) }
	records := []models.TradeRecord{
		trade("TCS", h(0), h(1), -100, models.EmotionAnxiety),
		trade("INFY", h(2), h(3), 40, models.EmotionAnxiety),
		trade("SBIN", h(4), h(5), -100, models.EmotionCalm),
		trade("ITC", h(6), h(7), 300, models.EmotionCalm),
	}
	r := NewAnalyzer(time.UTC).Analyze(records)

	assert.Equal(t, 1, r.BehaviorPatterns.FearExits)
	assert.Equal(t, 2, r.BehaviorPatterns.RevengeTrades)
	assert.Equal(t, 0, r.BehaviorPatterns.OvertradingPatterns)
	assert.Equal(t, 4, r.BehaviorPatterns.TotalTradesWithEmotions)
	require.NotNil(t, r.BestEmotionalState)
	assert.Equal(t, models.EmotionCalm, r.BestEmotionalState.Emotion)

	var got []string
	for _, in := range r.Insights {
		got = append(got, in.Title)
	}
	assert.Equal(t, []string{
		"Fear Exits Detected",
		"Revenge Trading Pattern Detected",
		"Your Best Trading Emotion",
		"High Anxiety Levels",
		"Emotional Performance Analysis",
	}, got)
	assert.Equal(t, SeverityMedium, r.Insights[0].Severity)
	assert.Equal(t, "Your most profitable trades occur when you're feeling calm (avg P&L: ₹100, win rate: 50%). Try to cultivate this emotional state before trading.", r.Insights[2].Message)
	assert.Equal(t, "50% of your trades were made with anxiety. High anxiety often leads to poor decisions. Consider meditation, reducing position sizes, or taking breaks when feeling anxious.", r.Insights[3].Message)
}

func TestNoEmotionsTracked(t *testing.T) {
	r := NewAnalyzer(nil).Analyze([]models.TradeRecord{trade("TCS", base, base, 10, models.EmotionUnset)})
	require.Len(t, r.Insights, 1)
	assert.Equal(t, "Start Tracking Emotions", r.Insights[0].Title)
	assert.Equal(t, SeverityLow, r.Insights[0].Severity)
}

func TestProperty_RevengeBoundary(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("entry within [0,24) hours of a loss is revenge", prop.ForAll(
		func(minutes int) bool {
			loss := trade("A", base.Add(-time.Hour), base, -1, models.EmotionUnset)
			entry := base.Add(time.Duration(minutes) * time.Minute)
			next := trade("B", entry, entry.Add(72*time.Hour), 1, models.EmotionUnset)
			counted := len(RevengeTrades([]models.TradeRecord{loss, next})) == 1
			return counted == (minutes >= 0 && minutes < 24*60)
		},
		gen.IntRange(-600, 3000),
	))

	properties.Property("emotion percentages sum to about 100", prop.ForAll(
		func(picks []int) bool {
			records := make([]models.TradeRecord, len(picks))
			for i, p := range picks {
				records[i] = trade("X", base, base, 0, models.Emotions[p])
			}
			shares, tagged := EmotionDistribution(records)
			if tagged == 0 {
				return true
			}
			var sum float64
			for _, s := range shares {
				sum += s.Percentage
			}
			return sum > 99.7 && sum < 100.3
		},
		gen.SliceOf(gen.IntRange(0, len(models.Emotions)-1)),
	))

	properties.TestingRun(t)
}
