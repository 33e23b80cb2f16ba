package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/analysis"
	"trade-journal/internal/marketdata"
	"trade-journal/internal/models"
	"trade-journal/internal/security"
)

func newPredictCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict SYMBOL [SYMBOL...]",
		Short: "Predict short-term direction from RSI, MACD and moving averages",
		Example: `  journal predict RELIANCE
  journal predict INFY TCS HDFCBANK --exchange BSE`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			exchangeFlag, _ := cmd.Flags().GetString("exchange")
			exchange, err := models.ParseExchange(exchangeFlag)
			if err != nil {
				return err
			}

			svc, err := app.newServices(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				report, err := svc.predictor.PredictDirection(cmd.Context(), args[0], exchange)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(report)
				}
				renderPrediction(output, report)
				return nil
			}

			result, err := svc.predictor.PredictBulk(cmd.Context(), args, exchange, app.Config.MarketData.BulkConcurrency)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(result)
			}

			table := NewTable(output, "SYMBOL", "PRICE", "DIRECTION", "CONFIDENCE", "RSI")
			for _, r := range result.Predictions {
				table.AddRow(r.Symbol, fmt.Sprintf("%.2f", r.Indicators.CurrentPrice),
					output.Direction(r.Direction), fmt.Sprintf("%.0f%%", r.Confidence), optional(r.Indicators.RSI))
			}
			table.Render()
			for _, e := range result.Errors {
				output.Error("%s: %s", e.Symbol, e.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringP("exchange", "e", "NSE", "NSE or BSE")
	return cmd
}

func renderPrediction(output *Output, r *analysis.DirectionReport) {
	ind := r.Indicators
	output.Box(fmt.Sprintf("%s (%s)", r.Symbol, r.Exchange), []string{
		fmt.Sprintf("Direction:    %s", output.Direction(r.Direction)),
		fmt.Sprintf("Confidence:   %.0f%%", r.Confidence),
		fmt.Sprintf("Price:        %.2f", ind.CurrentPrice),
		fmt.Sprintf("RSI(14):      %s", optional(ind.RSI)),
		fmt.Sprintf("MACD:         %s / %s", optional(ind.MACD), optional(ind.MACDSignal)),
		fmt.Sprintf("SMA 50/200:   %s / %s", optional(ind.SMA50), optional(ind.SMA200)),
		fmt.Sprintf("Support:      %s", optional(r.Support)),
		fmt.Sprintf("Resistance:   %s", optional(r.Resistance)),
	})
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func newQuoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Show the current quote for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			exchangeFlag, _ := cmd.Flags().GetString("exchange")
			exchange, err := models.ParseExchange(exchangeFlag)
			if err != nil {
				return err
			}

			svc, err := app.newServices(cmd.Context())
			if err != nil {
				return err
			}
			symbol := marketdata.NormalizeSymbol(args[0])
			if err := security.Default.ValidateSymbol(symbol); err != nil {
				return err
			}
			q, err := svc.market.CurrentPrice(cmd.Context(), symbol, exchange)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(q)
			}

			lines := []string{fmt.Sprintf("Price:        %s", FormatIndianCurrency(q.Price))}
			if q.PreviousClose != nil && *q.PreviousClose != 0 {
				change := q.Price - *q.PreviousClose
				lines = append(lines, fmt.Sprintf("Change:       %s (%s)",
					output.FormatPnL(change), FormatPercent(change / *q.PreviousClose * 100)))
			}
			lines = append(lines,
				fmt.Sprintf("Open:         %s", optional(q.Open)),
				fmt.Sprintf("High / Low:   %s / %s", optional(q.High), optional(q.Low)),
			)
			if q.Volume != nil {
				lines = append(lines, fmt.Sprintf("Volume:       %s", FormatVolume(*q.Volume)))
			}
			market := svc.calendar.StatusAt(time.Now())
			if market.Open {
				lines = append(lines, fmt.Sprintf("Market:       %s", output.green.Sprint("open")))
			} else {
				lines = append(lines, fmt.Sprintf("Market:       %s (opens %s)", string(market.Session),
					market.NextOpen.Format("Mon 02-Jan 15:04 MST")))
			}
			output.Box(fmt.Sprintf("%s (%s)", q.Symbol, q.Exchange), lines)
			return nil
		},
	}
	cmd.Flags().StringP("exchange", "e", "NSE", "NSE or BSE")
	return cmd
}
