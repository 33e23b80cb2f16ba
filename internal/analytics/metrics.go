// Package analytics derives performance statistics, strengths, weaknesses and
// prioritized insights from a user's journaled trades.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"trade-journal/internal/models"
)

const (
	// UntaggedStrategy buckets closed trades without tags.
	UntaggedStrategy = "Untagged"

	topN             = 10
	minStrategyCount = 2
	weeklyBuckets    = 12
)

// StockStat aggregates closed trades for one symbol.
type StockStat struct {
	Symbol   string          `json:"symbol"`
	Exchange models.Exchange `json:"exchange"`
	PnL      float64         `json:"pnl"`
	Count    int             `json:"count"`
	AvgPnL   float64         `json:"avgPnL"`
	WinRate  float64         `json:"winRate"`
}

// StrategyStat aggregates closed trades for one tag.
type StrategyStat struct {
	Strategy string  `json:"strategy"`
	PnL      float64 `json:"pnl"`
	Count    int     `json:"count"`
	AvgPnL   float64 `json:"avgPnL"`
	WinRate  float64 `json:"winRate"`
}

// PeriodStat aggregates closed trades by exit month or week.
type PeriodStat struct {
	Month   string  `json:"month,omitempty"`
	Week    string  `json:"week,omitempty"`
	PnL     float64 `json:"pnl"`
	Count   int     `json:"count"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"winRate"`
}

// Metrics are the aggregate statistics over closed trades.
type Metrics struct {
	WinRate                   float64        `json:"winRate"`
	LossRate                  float64        `json:"lossRate"`
	AverageWin                float64        `json:"averageWin"`
	AverageLoss               float64        `json:"averageLoss"`
	ProfitFactor              Float          `json:"profitFactor"`
	BestPerformingStocks      []StockStat    `json:"bestPerformingStocks"`
	WorstPerformingStocks     []StockStat    `json:"worstPerformingStocks"`
	BestPerformingStrategies  []StrategyStat `json:"bestPerformingStrategies"`
	WorstPerformingStrategies []StrategyStat `json:"worstPerformingStrategies"`
	MonthlyPerformance        []PeriodStat   `json:"monthlyPerformance"`
	WeeklyPerformance         []PeriodStat   `json:"weeklyPerformance"`

	winners, losers, breakeven int
	totalPnL                   float64
	uniqueSymbols              int
	closed                     int
}

type tally struct {
	key      string
	exchange models.Exchange
	pnl      float64
	count    int
	wins     int
	losses   int
}

func (t *tally) add(pnl float64) {
	t.pnl += pnl
	t.count++
	switch {
	case pnl > 0:
		t.wins++
	case pnl < 0:
		t.losses++
	}
}

func (t *tally) winRate() float64 {
	if t.count == 0 {
		return 0
	}
	return models.Round2(float64(t.wins) / float64(t.count) * 100)
}

func (t *tally) avg() float64 {
	return models.Round2(t.pnl / float64(t.count))
}

func (t *tally) period() PeriodStat {
	return PeriodStat{
		PnL:     models.Round2(t.pnl),
		Count:   t.count,
		Wins:    t.wins,
		Losses:  t.losses,
		WinRate: t.winRate(),
	}
}

// grouping keeps tallies in first-seen order so that sorts are stable.
type grouping struct {
	index map[string]*tally
	order []*tally
}

func newGrouping() *grouping {
	return &grouping{index: make(map[string]*tally)}
}

func (g *grouping) get(key string) *tally {
	if t, ok := g.index[key]; ok {
		return t
	}
	t := &tally{key: key}
	g.index[key] = t
	g.order = append(g.order, t)
	return t
}

// ClosedTrades returns the records that count as realized results.
func ClosedTrades(records []models.TradeRecord) []models.TradeRecord {
	closed := make([]models.TradeRecord, 0, len(records))
	for _, r := range records {
		if r.IsClosed() {
			closed = append(closed, r)
		}
	}
	return closed
}

// ProfitFactor returns sum(wins)/sum(|losses|) rounded to 2dp, Infinity when
// there are wins and no losses, and 0 when there are neither.
func ProfitFactor(totalWins, totalLosses float64) Float {
	switch {
	case totalWins > 0 && totalLosses > 0:
		return Float(models.Round2(totalWins / totalLosses))
	case totalWins > 0:
		return Infinity
	default:
		return 0
	}
}

func (a *Analyzer) metrics(records []models.TradeRecord) Metrics {
	m := Metrics{
		BestPerformingStocks:      []StockStat{},
		WorstPerformingStocks:     []StockStat{},
		BestPerformingStrategies:  []StrategyStat{},
		WorstPerformingStrategies: []StrategyStat{},
		MonthlyPerformance:        []PeriodStat{},
		WeeklyPerformance:         []PeriodStat{},
	}

	closed := ClosedTrades(records)
	m.closed = len(closed)
	if m.closed == 0 {
		return m
	}

	var totalWins, totalLosses float64
	stocks, strategies := newGrouping(), newGrouping()
	months, weeks := newGrouping(), newGrouping()
	weekCutoff := a.now().Add(-weeklyBuckets * 7 * 24 * time.Hour)

	for _, t := range closed {
		pnl := t.ProfitLoss
		m.totalPnL += pnl
		switch {
		case pnl > 0:
			m.winners++
			totalWins += pnl
		case pnl < 0:
			m.losers++
			totalLosses -= pnl
		default:
			m.breakeven++
		}

		s := stocks.get(t.Symbol)
		if s.count == 0 {
			s.exchange = t.Exchange
		}
		s.add(pnl)

		tags := t.Tags
		if len(tags) == 0 {
			tags = []string{UntaggedStrategy}
		}
		for _, tag := range tags {
			strategies.get(tag).add(pnl)
		}

		if t.ExitDate == nil {
			continue
		}
		exit := t.ExitDate.In(a.loc)
		months.get(exit.Format("2006-01")).add(pnl)
		if !t.ExitDate.Before(weekCutoff) {
			year, week := exit.ISOWeek()
			weeks.get(fmt.Sprintf("%d-W%02d", year, week)).add(pnl)
		}
	}

	m.uniqueSymbols = len(stocks.order)
	m.WinRate = models.Round2(float64(m.winners) / float64(m.closed) * 100)
	m.LossRate = models.Round2(float64(m.losers) / float64(m.closed) * 100)
	if m.winners > 0 {
		m.AverageWin = models.Round2(totalWins / float64(m.winners))
	}
	if m.losers > 0 {
		m.AverageLoss = models.Round2(totalLosses / float64(m.losers))
	}
	m.ProfitFactor = ProfitFactor(totalWins, totalLosses)

	stockStats := make([]StockStat, len(stocks.order))
	for i, s := range stocks.order {
		stockStats[i] = StockStat{
			Symbol:   s.key,
			Exchange: s.exchange,
			PnL:      models.Round2(s.pnl),
			Count:    s.count,
			AvgPnL:   s.avg(),
			WinRate:  s.winRate(),
		}
	}
	m.BestPerformingStocks = rankStocks(stockStats, true)
	m.WorstPerformingStocks = rankStocks(stockStats, false)

	strategyStats := make([]StrategyStat, 0, len(strategies.order))
	for _, s := range strategies.order {
		if s.count < minStrategyCount {
			continue
		}
		strategyStats = append(strategyStats, StrategyStat{
			Strategy: s.key,
			PnL:      models.Round2(s.pnl),
			Count:    s.count,
			AvgPnL:   s.avg(),
			WinRate:  s.winRate(),
		})
	}
	m.BestPerformingStrategies = rankStrategies(strategyStats, true)
	m.WorstPerformingStrategies = rankStrategies(strategyStats, false)

	m.MonthlyPerformance = periods(months, func(p *PeriodStat, key string) { p.Month = key })
	m.WeeklyPerformance = periods(weeks, func(p *PeriodStat, key string) { p.Week = key })
	if len(m.WeeklyPerformance) > weeklyBuckets {
		m.WeeklyPerformance = m.WeeklyPerformance[len(m.WeeklyPerformance)-weeklyBuckets:]
	}
	return m
}

func rankStocks(stats []StockStat, best bool) []StockStat {
	ranked := append([]StockStat{}, stats...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if best {
			return ranked[i].PnL > ranked[j].PnL
		}
		return ranked[i].PnL < ranked[j].PnL
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

func rankStrategies(stats []StrategyStat, best bool) []StrategyStat {
	ranked := append([]StrategyStat{}, stats...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if best {
			return ranked[i].PnL > ranked[j].PnL
		}
		return ranked[i].PnL < ranked[j].PnL
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

func periods(g *grouping, label func(*PeriodStat, string)) []PeriodStat {
	out := make([]PeriodStat, len(g.order))
	for i, t := range g.order {
		out[i] = t.period()
		label(&out[i], t.key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month+out[i].Week < out[j].Month+out[j].Week })
	return out
}
