package analytics

import (
	"fmt"
	"math"
	"strings"
)

// InsightType classifies an insight for display.
type InsightType string

const (
	InsightSuccess InsightType = "success"
	InsightWarning InsightType = "warning"
	InsightDanger  InsightType = "danger"
	InsightInfo    InsightType = "info"
)

// Priority orders insights for display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Finding is a strength or weakness derived from the metrics.
type Finding struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	Value          Float  `json:"value"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Insight is a prioritized, actionable message.
type Insight struct {
	Type     InsightType `json:"type"`
	Title    string      `json:"title"`
	Message  string      `json:"message"`
	Priority Priority    `json:"priority"`
}

func rupees(v float64) string {
	return fmt.Sprintf("₹%.2f", v)
}

// Strengths lists what is working, in a fixed order: win rate, profit
// factor, top stock, top strategy, monthly consistency.
func Strengths(m Metrics) []Finding {
	strengths := []Finding{}
	if m.closed == 0 {
		return strengths
	}

	switch {
	case m.WinRate >= 60:
		strengths = append(strengths, Finding{
			Title:       "High Win Rate",
			Description: fmt.Sprintf("Your win rate is %.1f%%, which is excellent. You're picking winning trades consistently.", m.WinRate),
			Category:    "performance",
			Value:       Float(m.WinRate),
		})
	case m.WinRate >= 50:
		strengths = append(strengths, Finding{
			Title:       "Good Win Rate",
			Description: fmt.Sprintf("Your win rate is %.1f%%, which is above average. Keep refining your entry criteria.", m.WinRate),
			Category:    "performance",
			Value:       Float(m.WinRate),
		})
	}

	switch {
	case m.ProfitFactor >= 2.0:
		strengths = append(strengths, Finding{
			Title:       "Excellent Profit Factor",
			Description: fmt.Sprintf("Your profit factor is %s. This means your average wins are significantly larger than your average losses.", m.ProfitFactor),
			Category:    "risk_management",
			Value:       m.ProfitFactor,
		})
	case m.ProfitFactor >= 1.5:
		strengths = append(strengths, Finding{
			Title:       "Good Profit Factor",
			Description: fmt.Sprintf("Your profit factor is %s. Your wins are larger than your losses on average.", m.ProfitFactor),
			Category:    "risk_management",
			Value:       m.ProfitFactor,
		})
	}

	if len(m.BestPerformingStocks) > 0 {
		top := m.BestPerformingStocks[0]
		if top.PnL > 0 && top.Count >= 3 {
			strengths = append(strengths, Finding{
				Title: "Strong Performance in " + top.Symbol,
				Description: fmt.Sprintf("%s has been your best performer with %s total P&L across %d trades (avg: %s, win rate: %.1f%%).",
					top.Symbol, rupees(top.PnL), top.Count, rupees(top.AvgPnL), top.WinRate),
				Category: "stock_selection",
				Value:    Float(top.PnL),
			})
		}
	}

	if len(m.BestPerformingStrategies) > 0 {
		top := m.BestPerformingStrategies[0]
		if top.PnL > 0 && top.Count >= 3 {
			strengths = append(strengths, Finding{
				Title: "Strong Strategy: " + top.Strategy,
				Description: fmt.Sprintf("Your \"%s\" strategy is working well with %s total P&L across %d trades (avg: %s, win rate: %.1f%%).",
					top.Strategy, rupees(top.PnL), top.Count, rupees(top.AvgPnL), top.WinRate),
				Category: "strategy",
				Value:    Float(top.PnL),
			})
		}
	}

	if months := len(m.MonthlyPerformance); months >= 3 {
		profitable := 0
		for _, p := range m.MonthlyPerformance {
			if p.PnL > 0 {
				profitable++
			}
		}
		pct := float64(profitable) / float64(months) * 100
		if pct >= 70 {
			strengths = append(strengths, Finding{
				Title:       "Consistent Monthly Performance",
				Description: fmt.Sprintf("You've been profitable in %d out of %d months (%.0f%%), showing strong consistency.", profitable, months, pct),
				Category:    "consistency",
				Value:       Float(pct),
			})
		}
	}
	return strengths
}

// Weaknesses lists areas for improvement with a recommendation each.
func Weaknesses(m Metrics) []Finding {
	weaknesses := []Finding{}
	if m.closed == 0 {
		return weaknesses
	}

	switch {
	case m.WinRate < 40:
		weaknesses = append(weaknesses, Finding{
			Title:          "Low Win Rate",
			Description:    fmt.Sprintf("Your win rate is %.1f%%, which is below optimal. Focus on improving entry criteria and wait for high-probability setups.", m.WinRate),
			Category:       "performance",
			Value:          Float(m.WinRate),
			Recommendation: "Review your entry strategies and be more selective with trade setups.",
		})
	case m.WinRate < 50:
		weaknesses = append(weaknesses, Finding{
			Title:          "Below Average Win Rate",
			Description:    fmt.Sprintf("Your win rate is %.1f%%. There's room for improvement in trade selection.", m.WinRate),
			Category:       "performance",
			Value:          Float(m.WinRate),
			Recommendation: "Focus on quality over quantity in trade selection.",
		})
	}

	if m.ProfitFactor < 1.0 && m.ProfitFactor != 0 {
		weaknesses = append(weaknesses, Finding{
			Title:          "Profit Factor Below 1.0",
			Description:    fmt.Sprintf("Your profit factor is %s. This means your losses are larger than your wins on average. Focus on risk management.", m.ProfitFactor),
			Category:       "risk_management",
			Value:          m.ProfitFactor,
			Recommendation: "Work on cutting losses quickly and letting winners run. Consider using stop-loss orders.",
		})
	}

	if len(m.WorstPerformingStocks) > 0 {
		worst := m.WorstPerformingStocks[0]
		if worst.PnL < 0 && worst.Count >= 3 {
			weaknesses = append(weaknesses, Finding{
				Title: "Poor Performance in " + worst.Symbol,
				Description: fmt.Sprintf("%s has been losing money with %s total loss across %d trades (avg: %s, win rate: %.1f%%).",
					worst.Symbol, rupees(math.Abs(worst.PnL)), worst.Count, rupees(worst.AvgPnL), worst.WinRate),
				Category:       "stock_selection",
				Value:          Float(worst.PnL),
				Recommendation: fmt.Sprintf("Consider avoiding %s or revisiting your approach to trading this stock.", worst.Symbol),
			})
		}
	}

	if len(m.WorstPerformingStrategies) > 0 {
		worst := m.WorstPerformingStrategies[0]
		if worst.PnL < 0 && worst.Count >= 3 {
			weaknesses = append(weaknesses, Finding{
				Title: "Weak Strategy: " + worst.Strategy,
				Description: fmt.Sprintf("Your \"%s\" strategy is underperforming with %s total loss across %d trades (avg: %s, win rate: %.1f%%).",
					worst.Strategy, rupees(math.Abs(worst.PnL)), worst.Count, rupees(worst.AvgPnL), worst.WinRate),
				Category:       "strategy",
				Value:          Float(worst.PnL),
				Recommendation: fmt.Sprintf("Revise or eliminate the \"%s\" strategy, or reduce position sizes when using it.", worst.Strategy),
			})
		}
	}

	if months := len(m.MonthlyPerformance); months >= 3 {
		losing := 0
		for _, p := range m.MonthlyPerformance {
			if p.PnL < 0 {
				losing++
			}
		}
		pct := float64(losing) / float64(months) * 100
		if pct >= 50 {
			weaknesses = append(weaknesses, Finding{
				Title:          "Inconsistent Performance",
				Description:    fmt.Sprintf("You've had losses in %d out of %d months (%.0f%%), indicating inconsistency.", losing, months, pct),
				Category:       "consistency",
				Value:          Float(pct),
				Recommendation: "Focus on developing consistent trading habits and sticking to your proven strategies.",
			})
		}
	}

	if m.AverageWin > 0 && m.AverageLoss > m.AverageWin*1.5 {
		weaknesses = append(weaknesses, Finding{
			Title: "Large Average Loss",
			Description: fmt.Sprintf("Your average loss (%s) is significantly larger than your average win (%s). This suggests poor risk management.",
				rupees(m.AverageLoss), rupees(m.AverageWin)),
			Category:       "risk_management",
			Value:          Float(m.AverageLoss),
			Recommendation: "Implement strict stop-loss orders and exit losing trades faster.",
		})
	}
	return weaknesses
}

// Insights combines the profitability verdict, win-rate, risk/reward,
// diversification and frequency checks, then restates the top strength and
// weakness.
func Insights(m Metrics, strengths, weaknesses []Finding) []Insight {
	if m.closed == 0 {
		return []Insight{{
			Type:     InsightInfo,
			Title:    "Start Trading to See Insights",
			Message:  "Add and close some trades to get performance insights and recommendations.",
			Priority: PriorityLow,
		}}
	}

	var insights []Insight
	if m.totalPnL > 0 {
		insights = append(insights, Insight{
			Type:     InsightSuccess,
			Title:    "Overall Profitable Trading",
			Message:  fmt.Sprintf("You're currently profitable with %s total P&L. Keep up the good work and focus on maintaining consistency.", rupees(m.totalPnL)),
			Priority: PriorityHigh,
		})
	} else {
		focus := "improving your win rate and risk management"
		if len(weaknesses) > 0 {
			focus = weaknesses[0].Recommendation
		}
		insights = append(insights, Insight{
			Type:     InsightWarning,
			Title:    "Focus on Becoming Profitable",
			Message:  fmt.Sprintf("You're currently at %s total P&L. Review your trading plan and focus on %s.", rupees(m.totalPnL), focus),
			Priority: PriorityHigh,
		})
	}

	if m.WinRate < 50 {
		insights = append(insights, Insight{
			Type:     InsightWarning,
			Title:    "Win Rate Below 50%",
			Message:  fmt.Sprintf("Your win rate is %.1f%%. While you can still be profitable with proper risk management, improving your win rate will make trading easier. Focus on higher probability setups.", m.WinRate),
			Priority: PriorityMedium,
		})
	}

	if m.AverageWin > 0 && m.AverageLoss > 0 {
		ratio := m.AverageWin / m.AverageLoss
		switch {
		case ratio < 1.0:
			insights = append(insights, Insight{
				Type:     InsightDanger,
				Title:    "Poor Risk-Reward Ratio",
				Message:  fmt.Sprintf("Your average win (%s) is smaller than your average loss (%s). Aim for at least a 2:1 risk-reward ratio by letting winners run and cutting losses quickly.", rupees(m.AverageWin), rupees(m.AverageLoss)),
				Priority: PriorityHigh,
			})
		case ratio >= 2.0:
			insights = append(insights, Insight{
				Type:     InsightSuccess,
				Title:    "Excellent Risk-Reward Ratio",
				Message:  fmt.Sprintf("Your risk-reward ratio is %.2f:1. This means you're letting winners run while cutting losses quickly - excellent risk management!", ratio),
				Priority: PriorityLow,
			})
		}
	}

	if m.uniqueSymbols < 3 && m.closed > 5 {
		insights = append(insights, Insight{
			Type:     InsightInfo,
			Title:    "Consider Diversification",
			Message:  fmt.Sprintf("You've traded only %d stock(s) across %d trades. While focus can be good, consider diversifying to reduce concentration risk.", m.uniqueSymbols, m.closed),
			Priority: PriorityLow,
		})
	}

	if m.closed > 100 {
		months := len(m.MonthlyPerformance)
		if months == 0 {
			months = 1
		}
		if perMonth := float64(m.closed) / float64(months); perMonth > 20 {
			insights = append(insights, Insight{
				Type:     InsightWarning,
				Title:    "High Trade Frequency",
				Message:  fmt.Sprintf("You're averaging %.1f trades per month. Quality over quantity - focus on high-probability setups rather than frequent trading.", perMonth),
				Priority: PriorityMedium,
			})
		}
	}

	if len(strengths) > 0 {
		insights = append(insights, Insight{
			Type:     InsightSuccess,
			Title:    "Key Strength: " + strengths[0].Title,
			Message:  strengths[0].Description,
			Priority: PriorityLow,
		})
	}
	if len(weaknesses) > 0 {
		insights = append(insights, Insight{
			Type:     InsightWarning,
			Title:    "Key Area for Improvement: " + weaknesses[0].Title,
			Message:  strings.TrimSpace(weaknesses[0].Description + " " + weaknesses[0].Recommendation),
			Priority: PriorityHigh,
		})
	}
	return insights
}
