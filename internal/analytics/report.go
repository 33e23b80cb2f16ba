package analytics

import (
	"sort"
	"time"

	"trade-journal/internal/models"
)

// EquityPoint is the cumulative P&L after one closed trade.
type EquityPoint struct {
	Date      string  `json:"date"`
	PnL       float64 `json:"pnl"`
	DateValue string  `json:"dateValue"`
}

// Distribution counts closed trades by outcome.
type Distribution struct {
	Wins      int `json:"wins"`
	Losses    int `json:"losses"`
	Breakeven int `json:"breakeven"`
}

// StockPnL is the compact per-symbol view used by charts.
type StockPnL struct {
	Symbol string  `json:"symbol"`
	PnL    float64 `json:"pnl"`
	Count  int     `json:"count"`
}

// PerformanceReport is the full analytics payload for one user.
type PerformanceReport struct {
	TotalPnL            float64       `json:"totalPnL"`
	WinRate             float64       `json:"winRate"`
	TotalTrades         int           `json:"totalTrades"`
	OpenPositions       int           `json:"openPositions"`
	Metrics             Metrics       `json:"metrics"`
	Strengths           []Finding     `json:"strengths"`
	Weaknesses          []Finding     `json:"weaknesses"`
	Insights            []Insight     `json:"insights"`
	WinLossDistribution Distribution  `json:"winLossDistribution"`
	StockPerformance    []StockPnL    `json:"stockPerformance"`
	EquityCurve         []EquityPoint `json:"equityCurve"`
}

// Analyzer computes performance reports. Calendar buckets and chart labels
// use loc.
type Analyzer struct {
	loc *time.Location
	now func() time.Time
}

// NewAnalyzer creates an analyzer. A nil location means UTC.
func NewAnalyzer(loc *time.Location) *Analyzer {
	if loc == nil {
		loc = time.UTC
	}
	return &Analyzer{loc: loc, now: time.Now}
}

// Metrics returns the aggregate statistics for records.
func (a *Analyzer) Metrics(records []models.TradeRecord) Metrics {
	return a.metrics(records)
}

// Analyze builds the report. An empty record set yields a zeroed report.
func (a *Analyzer) Analyze(records []models.TradeRecord) *PerformanceReport {
	m := a.metrics(records)
	report := &PerformanceReport{
		TotalTrades:      len(records),
		Metrics:          m,
		Strengths:        []Finding{},
		Weaknesses:       []Finding{},
		Insights:         []Insight{},
		StockPerformance: []StockPnL{},
		EquityCurve:      []EquityPoint{},
	}
	if len(records) == 0 {
		return report
	}

	report.Strengths = Strengths(m)
	report.Weaknesses = Weaknesses(m)
	report.Insights = Insights(m, report.Strengths, report.Weaknesses)
	report.WinLossDistribution = Distribution{Wins: m.winners, Losses: m.losers, Breakeven: m.breakeven}
	report.TotalPnL = models.Round2(m.totalPnL)
	report.WinRate = m.WinRate

	for _, r := range records {
		if r.Status == models.StatusOpen {
			report.OpenPositions++
		}
	}
	for _, s := range m.BestPerformingStocks {
		report.StockPerformance = append(report.StockPerformance, StockPnL{Symbol: s.Symbol, PnL: s.PnL, Count: s.Count})
	}
	report.EquityCurve = a.EquityCurve(records)
	return report
}

// EquityCurve accumulates P&L over closed trades with an exit date, in exit
// order, one point per trade.
func (a *Analyzer) EquityCurve(records []models.TradeRecord) []EquityPoint {
	var exited []models.TradeRecord
	for _, r := range ClosedTrades(records) {
		if r.ExitDate != nil {
			exited = append(exited, r)
		}
	}
	sort.SliceStable(exited, func(i, j int) bool { return exited[i].ExitDate.Before(*exited[j].ExitDate) })

	curve := make([]EquityPoint, 0, len(exited))
	var cumulative float64
	for _, r := range exited {
		cumulative += r.ProfitLoss
		curve = append(curve, EquityPoint{
			Date:      r.ExitDate.In(a.loc).Format("2 Jan"),
			PnL:       models.Round2(cumulative),
			DateValue: r.ExitDate.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return curve
}
