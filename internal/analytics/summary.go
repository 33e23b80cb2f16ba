package analytics

import (
	"math"

	"trade-journal/internal/models"
)

// TradeRef identifies the best or worst closed trade.
type TradeRef struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Exchange   models.Exchange `json:"exchange"`
	ProfitLoss float64         `json:"profitLoss"`
}

// TypeStat aggregates closed trades of one trade type.
type TypeStat struct {
	Count    int     `json:"count"`
	TotalPnL float64 `json:"totalPnL"`
}

// SummaryTotals are the headline counters.
type SummaryTotals struct {
	TotalTrades     int     `json:"totalTrades"`
	OpenTrades      int     `json:"openTrades"`
	ClosedTrades    int     `json:"closedTrades"`
	TotalProfitLoss float64 `json:"totalProfitLoss"`
	WinRate         float64 `json:"winRate"`
	WinningTrades   int     `json:"winningTrades"`
	LosingTrades    int     `json:"losingTrades"`
	BreakevenTrades int     `json:"breakevenTrades"`
	AverageWin      float64 `json:"averageWin"`
	AverageLoss     float64 `json:"averageLoss"`
	ProfitFactor    Float   `json:"profitFactor"`
}

// Summary is the dashboard statistics block.
type Summary struct {
	Summary     SummaryTotals           `json:"summary"`
	BestTrade   *TradeRef               `json:"bestTrade"`
	WorstTrade  *TradeRef               `json:"worstTrade"`
	ByExchange  map[models.Exchange]int `json:"byExchange"`
	ByTradeType map[string]TypeStat     `json:"byTradeType"`
}

// Summarize computes the dashboard statistics. Ties for best and worst keep
// the earliest record.
func Summarize(records []models.TradeRecord) *Summary {
	s := &Summary{
		ByExchange:  map[models.Exchange]int{models.NSE: 0, models.BSE: 0},
		ByTradeType: map[string]TypeStat{string(models.Long): {}, string(models.Short): {}},
	}
	s.Summary.TotalTrades = len(records)

	var totalPnL, wins, losses float64
	for _, r := range records {
		if r.Status == models.StatusOpen {
			s.Summary.OpenTrades++
		}
		if !r.IsClosed() {
			continue
		}
		s.Summary.ClosedTrades++
		pnl := r.ProfitLoss
		totalPnL += pnl
		switch {
		case pnl > 0:
			s.Summary.WinningTrades++
			wins += pnl
		case pnl < 0:
			s.Summary.LosingTrades++
			losses += math.Abs(pnl)
		default:
			s.Summary.BreakevenTrades++
		}

		if s.BestTrade == nil || pnl > s.BestTrade.ProfitLoss {
			s.BestTrade = ref(r)
		}
		if s.WorstTrade == nil || pnl < s.WorstTrade.ProfitLoss {
			s.WorstTrade = ref(r)
		}

		s.ByExchange[r.Exchange]++
		ts := s.ByTradeType[string(r.TradeType)]
		ts.Count++
		ts.TotalPnL += pnl
		s.ByTradeType[string(r.TradeType)] = ts
	}

	for k, v := range s.ByTradeType {
		v.TotalPnL = models.Round2(v.TotalPnL)
		s.ByTradeType[k] = v
	}

	t := &s.Summary
	t.TotalProfitLoss = models.Round2(totalPnL)
	if t.ClosedTrades > 0 {
		t.WinRate = models.Round2(float64(t.WinningTrades) / float64(t.ClosedTrades) * 100)
	}
	if t.WinningTrades > 0 {
		t.AverageWin = models.Round2(wins / float64(t.WinningTrades))
	}
	if t.LosingTrades > 0 {
		t.AverageLoss = models.Round2(losses / float64(t.LosingTrades))
	}
	t.ProfitFactor = ProfitFactor(wins, losses)
	return s
}

func ref(r models.TradeRecord) *TradeRef {
	return &TradeRef{ID: r.ID, Symbol: r.Symbol, Exchange: r.Exchange, ProfitLoss: models.Round2(r.ProfitLoss)}
}
