// Package psychology detects emotional and behavioral trading patterns: fear
// exits, revenge trades, overtrading days and emotion-correlated results.
package psychology

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"trade-journal/internal/models"
)

const (
	fearExitMaxPercent  = 1.0
	revengeWindow       = 24 * time.Hour
	overtradingPerDay   = 5
	minEmotionTrades    = 2
	topEmotions         = 3
	emotionShareWarning = 30.0
)

// Severity ranks an insight.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// EmotionShare is the count and share of one emotion among tagged trades.
type EmotionShare struct {
	Emotion    models.Emotion `json:"emotion"`
	Count      int            `json:"count"`
	Percentage float64        `json:"percentage"`
}

// EmotionPerformance summarizes closed trades entered under one emotion.
type EmotionPerformance struct {
	Emotion  models.Emotion `json:"emotion"`
	AvgPnL   float64        `json:"avgPnL"`
	WinRate  float64        `json:"winRate"`
	Count    int            `json:"count"`
	TotalPnL float64        `json:"totalPnL"`
}

// RevengePair links a losing trade to the trade opened soon after it.
type RevengePair struct {
	PreviousTrade string  `json:"previousTrade"`
	CurrentTrade  string  `json:"currentTrade"`
	HoursAfter    float64 `json:"hoursAfter"`
}

// BehaviorPatterns holds the pattern counters.
type BehaviorPatterns struct {
	FearExits               int `json:"fearExits"`
	RevengeTrades           int `json:"revengeTrades"`
	OvertradingPatterns     int `json:"overtradingPatterns"`
	TotalTradesWithEmotions int `json:"totalTradesWithEmotions"`
}

// Insight is a psychology observation with a severity.
type Insight struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Report is the full psychology analysis for one user.
type Report struct {
	EmotionDistribution []EmotionShare       `json:"emotionDistribution"`
	BehaviorPatterns    BehaviorPatterns     `json:"behaviorPatterns"`
	BestEmotions        []EmotionPerformance `json:"bestEmotions"`
	BestEmotionalState  *EmotionPerformance  `json:"bestEmotionalState"`
	Insights            []Insight            `json:"insights"`
	RevengeTradePairs   []RevengePair        `json:"revengeTradePairs"`
}

// Analyzer computes psychology reports. Overtrading days are calendar days
// in loc.
type Analyzer struct {
	loc *time.Location
}

// NewAnalyzer creates an analyzer. A nil location means UTC.
func NewAnalyzer(loc *time.Location) *Analyzer {
	if loc == nil {
		loc = time.UTC
	}
	return &Analyzer{loc: loc}
}

// Analyze builds the report. An empty record set yields an empty report.
func (a *Analyzer) Analyze(records []models.TradeRecord) *Report {
	report := &Report{
		EmotionDistribution: []EmotionShare{},
		BestEmotions:        []EmotionPerformance{},
		Insights:            []Insight{},
		RevengeTradePairs:   []RevengePair{},
	}
	if len(records) == 0 {
		return report
	}

	var tagged int
	report.EmotionDistribution, tagged = EmotionDistribution(records)
	report.BehaviorPatterns.TotalTradesWithEmotions = tagged

	exited := exitOrder(records)
	report.BehaviorPatterns.FearExits = FearExits(exited)
	report.RevengeTradePairs = RevengeTrades(exited)
	report.BehaviorPatterns.RevengeTrades = len(report.RevengeTradePairs)
	report.BehaviorPatterns.OvertradingPatterns = a.OvertradingDays(records)

	report.BestEmotions = EmotionRanking(records)
	if len(report.BestEmotions) > 0 {
		best := report.BestEmotions[0]
		report.BestEmotionalState = &best
	}
	if len(report.BestEmotions) > topEmotions {
		report.BestEmotions = report.BestEmotions[:topEmotions]
	}

	report.Insights = insights(len(records), report)
	return report
}

// EmotionDistribution counts each emotion among tagged trades, open or
// closed. Every emotion is listed, in a fixed order, even at zero.
func EmotionDistribution(records []models.TradeRecord) ([]EmotionShare, int) {
	counts := make(map[models.Emotion]int, len(models.Emotions))
	tagged := 0
	for _, r := range records {
		if r.Emotion == models.EmotionUnset {
			continue
		}
		tagged++
		counts[r.Emotion]++
	}

	shares := make([]EmotionShare, len(models.Emotions))
	for i, e := range models.Emotions {
		shares[i] = EmotionShare{Emotion: e, Count: counts[e]}
		if tagged > 0 {
			shares[i].Percentage = models.Round(float64(counts[e])/float64(tagged)*100, 1)
		}
	}
	return shares, tagged
}

// exitOrder returns closed trades with an exit date, oldest exit first.
func exitOrder(records []models.TradeRecord) []models.TradeRecord {
	var out []models.TradeRecord
	for _, r := range records {
		if r.IsClosed() && r.ExitDate != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExitDate.Before(*out[j].ExitDate) })
	return out
}

// FearExits counts small wins taken right after a loss. trades must be in
// exit order. A win is small when its profit is under 1% of the position
// value. Any win clears the pending loss.
func FearExits(trades []models.TradeRecord) int {
	count := 0
	afterLoss := false
	for _, t := range trades {
		switch {
		case t.ProfitLoss < 0:
			afterLoss = true
		case t.ProfitLoss > 0 && afterLoss:
			if value := t.EntryPrice * float64(t.Quantity); value > 0 {
				pct := t.ProfitLoss / value * 100
				if pct > 0 && pct < fearExitMaxPercent {
					count++
				}
			}
			afterLoss = false
		}
	}
	return count
}

// RevengeTrades pairs each losing trade with the next trade in exit order
// when that trade was entered within 24 hours of the loss.
func RevengeTrades(trades []models.TradeRecord) []RevengePair {
	pairs := []RevengePair{}
	for i := 1; i < len(trades); i++ {
		prev, cur := trades[i-1], trades[i]
		if prev.ProfitLoss >= 0 {
			continue
		}
		gap := cur.EntryDate.Sub(*prev.ExitDate)
		if gap < 0 || gap >= revengeWindow {
			continue
		}
		pairs = append(pairs, RevengePair{
			PreviousTrade: prev.Symbol,
			CurrentTrade:  cur.Symbol,
			HoursAfter:    math.Round(gap.Hours()*10) / 10,
		})
	}
	return pairs
}

// OvertradingDays counts calendar days with five or more entries.
func (a *Analyzer) OvertradingDays(records []models.TradeRecord) int {
	perDay := make(map[string]int)
	for _, r := range records {
		if r.EntryDate.IsZero() {
			continue
		}
		perDay[r.EntryDate.In(a.loc).Format("2006-01-02")]++
	}
	days := 0
	for _, n := range perDay {
		if n >= overtradingPerDay {
			days++
		}
	}
	return days
}

// EmotionRanking returns emotions with at least two closed trades, best
// average P&L first. Ties keep the fixed emotion order.
func EmotionRanking(records []models.TradeRecord) []EmotionPerformance {
	type agg struct {
		total       float64
		count, wins int
	}
	byEmotion := make(map[models.Emotion]*agg)
	for _, r := range records {
		if !r.IsClosed() || r.Emotion == models.EmotionUnset {
			continue
		}
		g, ok := byEmotion[r.Emotion]
		if !ok {
			g = &agg{}
			byEmotion[r.Emotion] = g
		}
		g.total += r.ProfitLoss
		g.count++
		if r.ProfitLoss > 0 {
			g.wins++
		}
	}

	ranked := []EmotionPerformance{}
	for _, e := range models.Emotions {
		g, ok := byEmotion[e]
		if !ok || g.count < minEmotionTrades {
			continue
		}
		ranked = append(ranked, EmotionPerformance{
			Emotion:  e,
			AvgPnL:   models.Round2(g.total / float64(g.count)),
			WinRate:  models.Round(float64(g.wins)/float64(g.count)*100, 1),
			Count:    g.count,
			TotalPnL: models.Round2(g.total),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].AvgPnL > ranked[j].AvgPnL })
	return ranked
}

func shareOf(shares []EmotionShare, e models.Emotion) float64 {
	for _, s := range shares {
		if s.Emotion == e {
			return s.Percentage
		}
	}
	return 0
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func insights(total int, r *Report) []Insight {
	out := []Insight{}
	bp := r.BehaviorPatterns

	if bp.FearExits > 0 {
		sev := SeverityMedium
		if bp.FearExits > 3 {
			sev = SeverityHigh
		}
		out = append(out, Insight{
			Type:     "warning",
			Title:    "Fear Exits Detected",
			Message:  fmt.Sprintf("You've exited %d trade(s) early after losses, taking small profits when you should hold. This suggests fear-based decision making. Consider trusting your analysis and letting winning trades run.", bp.FearExits),
			Severity: sev,
		})
	}

	if bp.RevengeTrades > 0 {
		sev := SeverityMedium
		if bp.RevengeTrades > 2 {
			sev = SeverityHigh
		}
		out = append(out, Insight{
			Type:     "danger",
			Title:    "Revenge Trading Pattern Detected",
			Message:  fmt.Sprintf("You've made %d trade(s) within 24 hours after losses. Revenge trading often leads to more losses. Take time to analyze and cool down before trading again after a loss.", bp.RevengeTrades),
			Severity: sev,
		})
	}

	if bp.OvertradingPatterns > 0 {
		out = append(out, Insight{
			Type:     "warning",
			Title:    "Overtrading Detected",
			Message:  fmt.Sprintf("You've had %d day(s) with 5 or more trades. Quality over quantity - focus on high-probability setups rather than frequent trading.", bp.OvertradingPatterns),
			Severity: SeverityMedium,
		})
	}

	if best := r.BestEmotionalState; best != nil {
		out = append(out, Insight{
			Type:     "success",
			Title:    "Your Best Trading Emotion",
			Message:  fmt.Sprintf("Your most profitable trades occur when you're feeling %s (avg P&L: ₹%s, win rate: %s%%). Try to cultivate this emotional state before trading.", best.Emotion, num(best.AvgPnL), num(best.WinRate)),
			Severity: SeverityLow,
		})
	}

	if share := shareOf(r.EmotionDistribution, models.EmotionAnxiety); share > emotionShareWarning {
		out = append(out, Insight{
			Type:     "info",
			Title:    "High Anxiety Levels",
			Message:  fmt.Sprintf("%s%% of your trades were made with anxiety. High anxiety often leads to poor decisions. Consider meditation, reducing position sizes, or taking breaks when feeling anxious.", num(share)),
			Severity: SeverityMedium,
		})
	}
	if share := shareOf(r.EmotionDistribution, models.EmotionGreed); share > emotionShareWarning {
		out = append(out, Insight{
			Type:     "warning",
			Title:    "High Greed Levels",
			Message:  fmt.Sprintf("%s%% of your trades were made with greed. Greed can lead to overtrading and ignoring risk management. Stick to your trading plan regardless of emotions.", num(share)),
			Severity: SeverityMedium,
		})
	}

	if len(r.BestEmotions) > 0 && r.BestEmotions[0].AvgPnL > 0 {
		top := r.BestEmotions[0]
		out = append(out, Insight{
			Type:     "success",
			Title:    "Emotional Performance Analysis",
			Message:  fmt.Sprintf("Top performing emotion: %s with average P&L of ₹%s and %s%% win rate across %d trades.", top.Emotion, num(top.AvgPnL), num(top.WinRate), top.Count),
			Severity: SeverityLow,
		})
	}

	if bp.TotalTradesWithEmotions == 0 && total > 0 {
		out = append(out, Insight{
			Type:     "info",
			Title:    "Start Tracking Emotions",
			Message:  "You haven't tracked emotions for your trades yet. Adding emotion tags to your trades will help identify psychological patterns and improve your trading performance.",
			Severity: SeverityLow,
		})
	}
	return out
}
