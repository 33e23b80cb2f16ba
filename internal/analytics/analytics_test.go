package analytics

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer() *Analyzer {
	a := NewAnalyzer(time.UTC)
	a.now = func() time.Time { return now }
	return a
}

func closed(symbol string, pnl float64, exit time.Time, tags ...string) models.TradeRecord {
	entry := exit.Add(-2 * time.Hour)
	return models.TradeRecord{
		Symbol:     symbol,
		Exchange:   models.NSE,
		TradeType:  models.Long,
		EntryPrice: 100,
		Quantity:   10,
		EntryDate:  entry,
		ExitDate:   &exit,
		ProfitLoss: pnl,
		Status:     models.StatusClosed,
		Tags:       tags,
	}
}

func open(symbol string) models.TradeRecord {
	return models.TradeRecord{Symbol: symbol, Exchange: models.NSE, TradeType: models.Long, Status: models.StatusOpen, EntryDate: now}
}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 10, 0, 0, 0, time.UTC)
}

func titles(findings []Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Title
	}
	return out
}

func TestAnalyzeEmpty(t *testing.T) {
	report := newTestAnalyzer().Analyze(nil)

	assert.Equal(t, 0, report.TotalTrades)
	assert.Equal(t, 0.0, report.TotalPnL)
	assert.Empty(t, report.Insights)
	assert.NotNil(t, report.Metrics.BestPerformingStocks)
	assert.NotNil(t, report.EquityCurve)
	assert.Equal(t, Float(0), report.Metrics.ProfitFactor)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bestPerformingStocks":[]`)
}

func TestAnalyzeOnlyOpenTrades(t *testing.T) {
	report := newTestAnalyzer().Analyze([]models.TradeRecord{open("TCS"), open("INFY")})
	assert.Equal(t, 2, report.OpenPositions)
	require.Len(t, report.Insights, 1)
	assert.Equal(t, "Start Trading to See Insights", report.Insights[0].Title)
	assert.Empty(t, report.Strengths)
}

func TestHighWinRatePortfolio(t *testing.T) {
	var records []models.TradeRecord
	for i := 1; i <= 8; i++ {
		records = append(records, closed("RELIANCE", 100, day(i)))
	}
	records = append(records, closed("RELIANCE", -50, day(9)), closed("RELIANCE", -50, day(10)))

	report := newTestAnalyzer().Analyze(records)
	m := report.Metrics

	assert.Equal(t, 80.0, m.WinRate)
	assert.Equal(t, 20.0, m.LossRate)
	assert.Equal(t, 100.0, m.AverageWin)
	assert.Equal(t, 50.0, m.AverageLoss)
	assert.Equal(t, Float(8), m.ProfitFactor)

	require.NotEmpty(t, report.Strengths)
	assert.Equal(t, "High Win Rate", report.Strengths[0].Title)
	assert.Equal(t, "Your win rate is 80.0%, which is excellent. You're picking winning trades consistently.", report.Strengths[0].Description)
	assert.Contains(t, titles(report.Strengths), "Excellent Profit Factor")
	assert.Contains(t, titles(report.Strengths), "Strong Performance in RELIANCE")
	assert.Contains(t, titles(report.Strengths), "Strong Strategy: Untagged")

	for _, w := range report.Weaknesses {
		assert.NotEqual(t, "Low Win Rate", w.Title)
		assert.NotEqual(t, "Below Average Win Rate", w.Title)
	}
	for _, in := range report.Insights {
		assert.NotEqual(t, "Win Rate Below 50%", in.Title)
	}

	require.Len(t, report.Insights, 4)
	assert.Equal(t, "Overall Profitable Trading", report.Insights[0].Title)
	assert.Equal(t, "You're currently profitable with ₹700.00 total P&L. Keep up the good work and focus on maintaining consistency.", report.Insights[0].Message)
	assert.Equal(t, "Excellent Risk-Reward Ratio", report.Insights[1].Title)
	assert.Equal(t, "Consider Diversification", report.Insights[2].Title)
	assert.Equal(t, "Key Strength: High Win Rate", report.Insights[3].Title)

	assert.Equal(t, Distribution{Wins: 8, Losses: 2}, report.WinLossDistribution)
	assert.Equal(t, 700.0, report.TotalPnL)
}

func TestProfitFactorInfinity(t *testing.T) {
	records := []models.TradeRecord{closed("TCS", 100, day(1)), closed("TCS", 200, day(2))}
	m := newTestAnalyzer().Metrics(records)

	assert.True(t, m.ProfitFactor.IsInf())
	assert.False(t, math.IsNaN(float64(m.ProfitFactor)))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profitFactor":"Infinity"`)

	var decoded Metrics
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.ProfitFactor.IsInf())

	strengths := Strengths(m)
	require.Len(t, strengths, 2)
	assert.Equal(t, "Your profit factor is Infinity. This means your average wins are significantly larger than your average losses.", strengths[1].Description)
	assert.Empty(t, Weaknesses(m))
}

func TestProfitFactor(t *testing.T) {
	assert.Equal(t, Float(0), ProfitFactor(0, 0))
	assert.Equal(t, Float(0), ProfitFactor(0, 100))
	assert.True(t, ProfitFactor(300, 0).IsInf())
	assert.Equal(t, Float(1.33), ProfitFactor(400, 300))
}

func TestStrategiesAndStocks(t *testing.T) {
	records := []models.TradeRecord{
		closed("TCS", 300, day(1), "breakout", "momentum"),
		closed("TCS", -100, day(2), "breakout"),
		closed("INFY", -200, day(3), "scalp"),
		closed("SBIN", 50, day(4)),
		closed("SBIN", 25, day(5)),
	}
	m := newTestAnalyzer().Metrics(records)

	require.Len(t, m.BestPerformingStocks, 3)
	assert.Equal(t, "TCS", m.BestPerformingStocks[0].Symbol)
	assert.Equal(t, 200.0, m.BestPerformingStocks[0].PnL)
	assert.Equal(t, 100.0, m.BestPerformingStocks[0].AvgPnL)
	assert.Equal(t, 50.0, m.BestPerformingStocks[0].WinRate)
	assert.Equal(t, "INFY", m.WorstPerformingStocks[0].Symbol)

	// Strategies with a single trade are dropped.
	var names []string
	for _, s := range m.BestPerformingStrategies {
		names = append(names, s.Strategy)
	}
	assert.Equal(t, []string{"breakout", "Untagged"}, names)
	assert.Equal(t, 75.0, m.BestPerformingStrategies[1].PnL)
	assert.Equal(t, "Untagged", m.WorstPerformingStrategies[0].Strategy)
}

func TestMonthlyWeeklyAndConsistency(t *testing.T) {
	records := []models.TradeRecord{
		closed("TCS", 100, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)),
		closed("TCS", -300, time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC)),
		closed("TCS", -20, time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)),
		closed("TCS", 10, time.Date(2024, 6, 24, 10, 0, 0, 0, time.UTC)),
		closed("TCS", 5, time.Date(2024, 6, 25, 10, 0, 0, 0, time.UTC)),
	}
	m := newTestAnalyzer().Metrics(records)

	require.Len(t, m.MonthlyPerformance, 4)
	assert.Equal(t, "2024-03", m.MonthlyPerformance[0].Month)
	assert.Equal(t, "2024-06", m.MonthlyPerformance[3].Month)
	assert.Equal(t, 15.0, m.MonthlyPerformance[3].PnL)
	assert.Equal(t, 2, m.MonthlyPerformance[3].Count)

	// Only exits in the last twelve weeks are bucketed.
	require.Len(t, m.WeeklyPerformance, 2)
	assert.Equal(t, "2024-W19", m.WeeklyPerformance[0].Week)
	assert.Equal(t, "2024-W26", m.WeeklyPerformance[1].Week)
	assert.Equal(t, 2, m.WeeklyPerformance[1].Wins)

	weaknesses := titles(Weaknesses(m))
	assert.Contains(t, weaknesses, "Inconsistent Performance")
	assert.Contains(t, weaknesses, "Poor Performance in TCS")
	assert.Contains(t, weaknesses, "Large Average Loss")
}

func TestLosingPortfolioInsights(t *testing.T) {
	records := []models.TradeRecord{
		closed("TCS", -100, day(1)),
		closed("INFY", -100, day(2)),
		closed("SBIN", 50, day(3)),
	}
	report := newTestAnalyzer().Analyze(records)

	assert.Equal(t, "Low Win Rate", report.Weaknesses[0].Title)
	require.NotEmpty(t, report.Insights)
	assert.Equal(t, "Focus on Becoming Profitable", report.Insights[0].Title)
	assert.Equal(t, "You're currently at ₹-150.00 total P&L. Review your trading plan and focus on Review your entry strategies and be more selective with trade setups..", report.Insights[0].Message)
	assert.Equal(t, "Win Rate Below 50%", report.Insights[1].Title)
	assert.Equal(t, InsightDanger, report.Insights[2].Type)
	last := report.Insights[len(report.Insights)-1]
	assert.Equal(t, "Key Area for Improvement: Low Win Rate", last.Title)
	assert.Equal(t, PriorityHigh, last.Priority)
}

func TestEquityCurve(t *testing.T) {
	records := []models.TradeRecord{
		closed("TCS", 50.25, day(3)),
		closed("TCS", 100, day(1)),
		open("INFY"),
		closed("INFY", -30, day(2)),
	}
	curve := newTestAnalyzer().EquityCurve(records)

	require.Len(t, curve, 3)
	assert.Equal(t, EquityPoint{Date: "1 Jun", PnL: 100, DateValue: "2024-06-01T10:00:00.000Z"}, curve[0])
	assert.Equal(t, 70.0, curve[1].PnL)
	assert.Equal(t, 120.25, curve[2].PnL)
	// Labels are day first, as in en-IN.
	assert.Equal(t, "3 Jun", curve[2].Date)
}

func TestSummarize(t *testing.T) {
	short := closed("INFY", -40, day(2))
	short.TradeType = models.Short
	short.Exchange = models.BSE
	records := []models.TradeRecord{
		closed("TCS", 120, day(1)),
		short,
		closed("SBIN", 0, day(3)),
		open("HDFC"),
	}
	records[0].ID = "best"
	records[1].ID = "worst"

	s := Summarize(records)
	assert.Equal(t, 4, s.Summary.TotalTrades)
	assert.Equal(t, 1, s.Summary.OpenTrades)
	assert.Equal(t, 3, s.Summary.ClosedTrades)
	assert.Equal(t, 80.0, s.Summary.TotalProfitLoss)
	assert.Equal(t, 33.33, s.Summary.WinRate)
	assert.Equal(t, 1, s.Summary.BreakevenTrades)
	assert.Equal(t, Float(3), s.Summary.ProfitFactor)
	assert.Equal(t, "best", s.BestTrade.ID)
	assert.Equal(t, "worst", s.WorstTrade.ID)
	assert.Equal(t, 2, s.ByExchange[models.NSE])
	assert.Equal(t, 1, s.ByExchange[models.BSE])
	assert.Equal(t, TypeStat{Count: 1, TotalPnL: -40}, s.ByTradeType["short"])
	assert.Equal(t, TypeStat{Count: 2, TotalPnL: 120}, s.ByTradeType["long"])

	empty := Summarize(nil)
	assert.Nil(t, empty.BestTrade)
	assert.Equal(t, Float(0), empty.Summary.ProfitFactor)
}

func genClosedTrades() gopter.Gen {
	return gen.SliceOfN(30, gen.Float64Range(-5000, 5000)).FlatMap(func(v interface{}) gopter.Gen {
		pnls := v.([]float64)
		records := make([]models.TradeRecord, len(pnls))
		symbols := []string{"TCS", "INFY", "SBIN", "ITC"}
		for i, p := range pnls {
			records[i] = closed(symbols[i%len(symbols)], models.Round2(p), day(1).AddDate(0, 0, -i))
		}
		return gen.Const(records)
	}, reflect.TypeOf([]models.TradeRecord{}))
}

func TestProperty_PerformanceInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	a := newTestAnalyzer()

	properties.Property("win and loss rates never exceed 100", prop.ForAll(
		func(records []models.TradeRecord) bool {
			m := a.Metrics(records)
			return m.WinRate >= 0 && m.LossRate >= 0 && m.WinRate+m.LossRate <= 100.01
		},
		genClosedTrades(),
	))

	properties.Property("equity curve ends at total P&L", prop.ForAll(
		func(records []models.TradeRecord) bool {
			curve := a.EquityCurve(records)
			if len(curve) != len(records) {
				return false
			}
			if len(curve) == 0 {
				return true
			}
			var total float64
			for _, r := range records {
				total += r.ProfitLoss
			}
			return math.Abs(curve[len(curve)-1].PnL-models.Round2(total)) < 0.011
		},
		genClosedTrades(),
	))

	properties.Property("profit factor is non-negative", prop.ForAll(
		func(records []models.TradeRecord) bool {
			return a.Metrics(records).ProfitFactor >= 0
		},
		genClosedTrades(),
	))

	properties.Property("report always encodes", prop.ForAll(
		func(records []models.TradeRecord) bool {
			_, err := json.Marshal(a.Analyze(records))
			return err == nil
		},
		genClosedTrades(),
	))

	properties.TestingRun(t)
}
