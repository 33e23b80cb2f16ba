// Package predict combines indicator readings into a bullish, bearish or
// neutral call for a single stock.
package predict

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trade-journal/internal/analysis"
	"trade-journal/internal/analysis/indicators"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/security"
)

// MinBars is the shortest daily history a prediction accepts.
const MinBars = 50

// MarketData fetches the inputs of a prediction.
type MarketData interface {
	CurrentPrice(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error)
	HistoricalBars(ctx context.Context, symbol string, exchange models.Exchange, period string) ([]models.PriceBar, error)
}

// Config holds predictor settings.
type Config struct {
	HistoryRange string
	Timeout      time.Duration
}

// Predictor produces direction reports from market data.
type Predictor struct {
	source MarketData
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewPredictor creates a new predictor.
func NewPredictor(source MarketData, cfg Config, logger zerolog.Logger) *Predictor {
	if cfg.HistoryRange == "" {
		cfg.HistoryRange = "6mo"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Predictor{
		source: source,
		config: cfg,
		logger: logging.WithOperation(logger, "predict"),
		now:    time.Now,
	}
}

// PredictDirection fetches the current price and daily history concurrently
// and scores them. The whole fetch is bounded by the configured timeout.
func (p *Predictor) PredictDirection(ctx context.Context, symbol string, exchange models.Exchange) (*analysis.DirectionReport, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := security.Default.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if exchange == "" {
		exchange = models.NSE
	}
	log := logging.WithSymbol(p.logger, symbol)

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	var (
		quote *models.Quote
		bars  []models.PriceBar
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := p.source.CurrentPrice(gctx, symbol, exchange)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	g.Go(func() error {
		b, err := p.source.HistoricalBars(gctx, symbol, exchange, p.config.HistoryRange)
		if err != nil {
			return err
		}
		bars = b
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !apperrors.Is(err, apperrors.ErrTimeout) {
			err = apperrors.NewDataError("prediction", symbol, "market data fetch exceeded "+p.config.Timeout.String(), apperrors.ErrTimeout)
		}
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Prediction fetch failed")
		return nil, err
	}

	report, err := Evaluate(symbol, exchange, quote.Price, bars, p.now())
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("direction", string(report.Direction)).
		Float64("confidence", report.Confidence).
		Int("bars", len(bars)).
		Dur("duration", time.Since(start)).
		Msg("Prediction complete")

	return report, nil
}

// Signals holds the indicator readings that vote. Nil means undefined.
type Signals struct {
	Price  float64
	RSI    *float64
	MACD   *indicators.MACDResult
	SMA50  *float64
	SMA200 *float64
	Levels *indicators.Levels
}

// Tally casts one vote per defined indicator.
func Tally(s Signals) analysis.Votes {
	var v analysis.Votes

	if s.RSI != nil {
		switch rsi := *s.RSI; {
		case rsi < 30:
			v.Bull(1) // oversold
		case rsi > 70:
			v.Bear(1) // overbought
		case rsi > 50:
			v.Bull(0.5)
		default:
			v.Bear(0.5)
		}
	}

	if s.MACD != nil {
		if s.MACD.MACD > 0 {
			v.Bull(1)
		} else {
			v.Bear(1)
		}
	}

	if s.SMA50 != nil && s.SMA200 != nil {
		sma50, sma200 := *s.SMA50, *s.SMA200
		switch {
		case s.Price > sma50 && sma50 > sma200:
			v.Bull(1) // golden cross regime
		case s.Price < sma50 && sma50 < sma200:
			v.Bear(1) // death cross regime
		case s.Price > sma50:
			v.Bull(0.5)
		default:
			v.Bear(0.5)
		}
	}

	// Zero levels abstain.
	if s.Levels != nil && s.Levels.Support != 0 && s.Levels.Resistance != 0 {
		pos, ok := s.Levels.Position(s.Price)
		if !ok {
			// Flat range: above it counts as past resistance, below it as
			// under support, on it as mid-range.
			switch {
			case s.Price > s.Levels.Resistance:
				pos = 1
			case s.Price < s.Levels.Support:
				pos = 0
			default:
				pos = 0.5
			}
		}
		switch {
		case pos > 0.7:
			v.Bear(1) // near resistance
		case pos < 0.3:
			v.Bull(1) // near support
		default:
			v.Bull(0.5)
		}
	}

	return v
}

// Evaluate scores a fetched history. It fails with ErrInsufficientData when
// fewer than MinBars bars are available.
func Evaluate(symbol string, exchange models.Exchange, price float64, bars []models.PriceBar, now time.Time) (*analysis.DirectionReport, error) {
	if len(bars) < MinBars {
		return nil, apperrors.NewDataError("history", symbol,
			"need at least 50 daily bars for technical analysis", apperrors.ErrInsufficientData)
	}

	closes := models.ClosePrices(bars)
	s := Signals{Price: price}

	if rsi, ok := indicators.RSI(closes, indicators.DefaultRSIPeriod); ok {
		s.RSI = &rsi
	}
	if macd, ok := indicators.MACD(closes); ok {
		s.MACD = &macd
	}
	if sma, ok := indicators.SMA(closes, 50); ok {
		s.SMA50 = &sma
	}
	if sma, ok := indicators.SMA(closes, 200); ok {
		s.SMA200 = &sma
	}
	if levels, ok := indicators.SupportResistance(bars); ok {
		s.Levels = &levels
	}

	direction, confidence := Tally(s).Verdict()

	report := &analysis.DirectionReport{
		Symbol:     strings.ToUpper(symbol),
		Exchange:   exchange,
		Direction:  direction,
		Confidence: confidence,
		Indicators: analysis.IndicatorSnapshot{
			RSI:          s.RSI,
			SMA50:        s.SMA50,
			SMA200:       s.SMA200,
			CurrentPrice: price,
		},
		Timestamp: now.UTC(),
	}
	if s.MACD != nil {
		report.Indicators.MACD = &s.MACD.MACD
		report.Indicators.MACDSignal = &s.MACD.Signal
		report.Indicators.MACDHistogram = &s.MACD.Histogram
	}
	if s.Levels != nil {
		report.Support = &s.Levels.Support
		report.Resistance = &s.Levels.Resistance
	}

	return report, nil
}
