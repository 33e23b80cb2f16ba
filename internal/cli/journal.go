package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/analytics"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/psychology"
	"trade-journal/internal/store"
)

// loadTrades opens the store and lists the --user's trades.
func (a *App) loadTrades(ctx context.Context, cmd *cobra.Command, filter store.TradeFilter) ([]models.TradeRecord, error) {
	db, err := a.openStore()
	if err != nil {
		return nil, err
	}
	owner, err := a.owner(ctx, cmd, db)
	if err != nil {
		return nil, err
	}
	return db.ListTrades(ctx, owner, filter)
}

func newTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trades",
		Aliases: []string{"t"},
		Short:   "Browse journaled trades",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List trades, newest entry first",
		Example: `  journal trades list --user me@example.com
  journal trades list --user me@example.com --status closed --symbol INFY --from 2024-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			filter, err := tradeFilterFromFlags(cmd)
			if err != nil {
				return err
			}
			trades, err := app.loadTrades(cmd.Context(), cmd, filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"trades": trades, "count": len(trades)})
			}
			if len(trades) == 0 {
				output.Dim("No trades found")
				return nil
			}

			loc := app.Config.Location()
			table := NewTable(output, "DATE", "SYMBOL", "EXCH", "TYPE", "QTY", "ENTRY", "EXIT", "P&L", "STATUS", "EMOTION")
			for _, t := range trades {
				exit, pnl := "-", "-"
				if t.ExitPrice != nil {
					exit = fmt.Sprintf("%.2f", *t.ExitPrice)
				}
				if t.IsClosed() {
					pnl = output.FormatPnL(t.ProfitLoss)
				}
				table.AddRow(
					FormatDate(t.EntryDate, loc),
					t.Symbol,
					string(t.Exchange),
					strings.ToUpper(string(t.TradeType)),
					FormatQuantity(t.Quantity),
					fmt.Sprintf("%.2f", t.EntryPrice),
					exit,
					pnl,
					string(t.Status),
					string(t.Emotion),
				)
			}
			table.Render()
			output.Dim("%d trades", len(trades))
			return nil
		},
	}
	listCmd.Flags().String("status", "", "open or closed")
	listCmd.Flags().String("symbol", "", "filter by symbol")
	listCmd.Flags().String("exchange", "", "NSE or BSE")
	listCmd.Flags().String("from", "", "entry date from (YYYY-MM-DD)")
	listCmd.Flags().String("to", "", "entry date to (YYYY-MM-DD)")
	listCmd.Flags().Int("limit", 0, "maximum trades to show")
	cmd.AddCommand(listCmd)

	return cmd
}

func tradeFilterFromFlags(cmd *cobra.Command) (store.TradeFilter, error) {
	var f store.TradeFilter
	var errs apperrors.ValidationErrors

	if v, _ := cmd.Flags().GetString("status"); v != "" {
		if err := f.Status.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, apperrors.NewValidationError("status", v, "status must be open or closed"))
		}
	}
	if v, _ := cmd.Flags().GetString("symbol"); v != "" {
		f.Symbol = strings.ToUpper(strings.TrimSpace(v))
	}
	if v, _ := cmd.Flags().GetString("exchange"); v != "" {
		ex, err := models.ParseExchange(v)
		if err != nil {
			errs = append(errs, apperrors.NewValidationError("exchange", v, "exchange must be NSE or BSE"))
		}
		f.Exchange = ex
	}
	for _, flag := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v, _ := cmd.Flags().GetString(flag.name)
		if v == "" {
			continue
		}
		d, err := models.ParseDate(flag.name, v)
		if err != nil {
			errs = append(errs, apperrors.NewValidationError(flag.name, v, "invalid date format"))
			continue
		}
		*flag.dst = d
	}
	f.Limit, _ = cmd.Flags().GetInt("limit")

	return f, errs.OrNil()
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the trade statistics summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			trades, err := app.loadTrades(cmd.Context(), cmd, store.TradeFilter{})
			if err != nil {
				return err
			}
			summary := analytics.Summarize(trades)
			if output.IsJSON() {
				return output.JSON(summary)
			}

			s := summary.Summary
			lines := []string{
				fmt.Sprintf("Trades:         %d (%d open, %d closed)", s.TotalTrades, s.OpenTrades, s.ClosedTrades),
				fmt.Sprintf("Total P&L:      %s", output.FormatPnL(s.TotalProfitLoss)),
				fmt.Sprintf("Win Rate:       %.2f%%", s.WinRate),
				fmt.Sprintf("W / L / BE:     %d / %d / %d", s.WinningTrades, s.LosingTrades, s.BreakevenTrades),
				fmt.Sprintf("Average Win:    %s", FormatIndianCurrency(s.AverageWin)),
				fmt.Sprintf("Average Loss:   %s", FormatIndianCurrency(s.AverageLoss)),
				fmt.Sprintf("Profit Factor:  %s", FormatRatio(float64(s.ProfitFactor))),
			}
			if summary.BestTrade != nil {
				lines = append(lines, fmt.Sprintf("Best Trade:     %s %s", summary.BestTrade.Symbol, output.FormatPnL(summary.BestTrade.ProfitLoss)))
			}
			if summary.WorstTrade != nil {
				lines = append(lines, fmt.Sprintf("Worst Trade:    %s %s", summary.WorstTrade.Symbol, output.FormatPnL(summary.WorstTrade.ProfitLoss)))
			}
			output.Box("Journal Summary", lines)
			return nil
		},
	}
}

func newInsightsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Show performance metrics, strengths and weaknesses",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			trades, err := app.loadTrades(cmd.Context(), cmd, store.TradeFilter{})
			if err != nil {
				return err
			}
			report := analytics.NewAnalyzer(app.Config.Location()).Analyze(trades)
			if output.IsJSON() {
				return output.JSON(report)
			}
			renderPerformance(output, report)
			return nil
		},
	}
}

func renderPerformance(output *Output, r *analytics.PerformanceReport) {
	output.Box("Performance", []string{
		fmt.Sprintf("Total P&L:      %s", output.FormatPnL(r.TotalPnL)),
		fmt.Sprintf("Win Rate:       %.2f%%", r.WinRate),
		fmt.Sprintf("Trades:         %d (%d open)", r.TotalTrades, r.OpenPositions),
		fmt.Sprintf("Profit Factor:  %s", FormatRatio(float64(r.Metrics.ProfitFactor))),
	})

	if len(r.Metrics.BestPerformingStocks) > 0 {
		output.Println()
		output.Bold("Stocks")
		table := NewTable(output, "SYMBOL", "TRADES", "P&L", "WIN RATE")
		for _, s := range r.Metrics.BestPerformingStocks {
			table.AddRow(s.Symbol, fmt.Sprintf("%d", s.Count), output.FormatPnL(s.PnL), fmt.Sprintf("%.1f%%", s.WinRate))
		}
		table.Render()
	}

	if len(r.Strengths) > 0 {
		output.Println()
		output.Bold("Strengths")
		for _, f := range r.Strengths {
			output.Success("  ✓ %s: %s", f.Title, f.Description)
		}
	}
	if len(r.Weaknesses) > 0 {
		output.Println()
		output.Bold("Weaknesses")
		for _, f := range r.Weaknesses {
			output.Warning("  ⚠ %s: %s", f.Title, f.Description)
			if f.Recommendation != "" {
				output.Dim("    → %s", f.Recommendation)
			}
		}
	}
	if len(r.Insights) > 0 {
		output.Println()
		output.Bold("Insights")
		for _, in := range r.Insights {
			line := fmt.Sprintf("  [%s] %s: %s", in.Priority, in.Title, in.Message)
			switch in.Type {
			case analytics.InsightSuccess:
				output.Success("%s", line)
			case analytics.InsightDanger:
				output.Error("%s", line)
			case analytics.InsightWarning:
				output.Warning("%s", line)
			default:
				output.Info("%s", line)
			}
		}
	}
}

func newPsychologyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "psychology",
		Short: "Show emotional patterns and behavioral warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			trades, err := app.loadTrades(cmd.Context(), cmd, store.TradeFilter{})
			if err != nil {
				return err
			}
			report := psychology.NewAnalyzer(app.Config.Location()).Analyze(trades)
			if output.IsJSON() {
				return output.JSON(report)
			}

			bp := report.BehaviorPatterns
			output.Box("Trading Psychology", []string{
				fmt.Sprintf("Trades with emotions:  %d", bp.TotalTradesWithEmotions),
				fmt.Sprintf("Fear exits:            %d", bp.FearExits),
				fmt.Sprintf("Revenge trades:        %d", bp.RevengeTrades),
				fmt.Sprintf("Overtrading days:      %d", bp.OvertradingPatterns),
			})

			if len(report.BestEmotions) > 0 {
				output.Println()
				table := NewTable(output, "EMOTION", "TRADES", "AVG P&L", "WIN RATE")
				for _, e := range report.BestEmotions {
					table.AddRow(string(e.Emotion), fmt.Sprintf("%d", e.Count), output.FormatPnL(e.AvgPnL), fmt.Sprintf("%.1f%%", e.WinRate))
				}
				table.Render()
			}
			for _, in := range report.Insights {
				output.Println()
				line := fmt.Sprintf("%s: %s", in.Title, in.Message)
				switch in.Severity {
				case psychology.SeverityHigh:
					output.Error("%s", line)
				case psychology.SeverityMedium:
					output.Warning("%s", line)
				default:
					output.Info("%s", line)
				}
			}
			return nil
		},
	}
}
