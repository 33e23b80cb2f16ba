// Package marketdata fetches quotes and daily price history for NSE/BSE
// symbols. Providers are composed with rate limiting, circuit breaking and
// caching decorators by New.
package marketdata

import (
	"context"
	"fmt"
	"strings"

	"trade-journal/internal/models"
)

// Provider supplies current quotes and daily bars, oldest first.
type Provider interface {
	CurrentPrice(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error)
	HistoricalBars(ctx context.Context, symbol string, exchange models.Exchange, period string) ([]models.PriceBar, error)
}

// DefaultPeriod is used when a requested history period is not supported.
const DefaultPeriod = "6mo"

var validPeriods = map[string]bool{"1mo": true, "3mo": true, "6mo": true, "1y": true, "2y": true}

// NormalizePeriod returns period when supported and DefaultPeriod otherwise.
func NormalizePeriod(period string) string {
	if validPeriods[period] {
		return period
	}
	return DefaultPeriod
}

// NormalizeSymbol trims and uppercases a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// YahooSymbol converts an exchange symbol to Yahoo's suffix form, e.g.
// RELIANCE on BSE becomes RELIANCE.BO.
func YahooSymbol(symbol string, exchange models.Exchange) string {
	if exchange == models.BSE {
		return NormalizeSymbol(symbol) + ".BO"
	}
	return NormalizeSymbol(symbol) + ".NS"
}

func notFoundMessage(symbol string, exchange models.Exchange) string {
	return fmt.Sprintf("Stock %s not found on %s. Please check the symbol and exchange.", symbol, exchange)
}

// optional2 rounds v to 2dp, mapping zero to nil.
func optional2(v float64) *float64 {
	if v == 0 {
		return nil
	}
	r := models.Round2(v)
	return &r
}

func optionalInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
