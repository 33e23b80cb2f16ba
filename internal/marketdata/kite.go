package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// KiteConfig holds Zerodha Kite Connect settings.
type KiteConfig struct {
	APIKey      string
	AccessToken string
	BaseURI     string
	Timeout     time.Duration
}

// KiteProvider reads quotes and daily candles from Zerodha Kite Connect.
type KiteProvider struct {
	client  *kiteconnect.Client
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	mu          sync.RWMutex
	instruments map[string]models.Instrument
}

// NewKiteProvider creates a Kite provider. An access token is required.
func NewKiteProvider(cfg KiteConfig, logger zerolog.Logger) (*KiteProvider, error) {
	if cfg.APIKey == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("kite provider: %w", apperrors.ErrServiceUnavailable)
	}
	client := kiteconnect.New(cfg.APIKey)
	client.SetAccessToken(cfg.AccessToken)
	if cfg.BaseURI != "" {
		client.SetBaseURI(cfg.BaseURI)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &KiteProvider{
		client:      client,
		timeout:     cfg.Timeout,
		logger:      logger.With().Str("provider", "kite").Logger(),
		now:         time.Now,
		instruments: make(map[string]models.Instrument),
	}, nil
}

// CurrentPrice fetches the quote for EXCHANGE:SYMBOL.
func (k *KiteProvider) CurrentPrice(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error) {
	symbol = NormalizeSymbol(symbol)
	key := instrumentKey(symbol, exchange)

	quotes, err := withContext(ctx, k.timeout, func() (kiteconnect.Quote, error) {
		return k.client.GetQuote(key)
	})
	if err != nil {
		return nil, k.classify("quote", symbol, err)
	}

	q, ok := quotes[key]
	if !ok {
		return nil, apperrors.NewDataError("quote", symbol, notFoundMessage(symbol, exchange), apperrors.ErrNotFound)
	}

	ts := q.LastTradeTime.Time
	if ts.IsZero() {
		ts = k.now()
	}
	return &models.Quote{
		Symbol:        symbol,
		Exchange:      exchange,
		Price:         models.Round2(q.LastPrice),
		PreviousClose: optional2(q.OHLC.Close),
		Open:          optional2(q.OHLC.Open),
		High:          optional2(q.OHLC.High),
		Low:           optional2(q.OHLC.Low),
		Volume:        optionalInt(int64(q.Volume)),
		Timestamp:     ts.UTC(),
	}, nil
}

// HistoricalBars fetches daily candles covering period.
func (k *KiteProvider) HistoricalBars(ctx context.Context, symbol string, exchange models.Exchange, period string) ([]models.PriceBar, error) {
	symbol = NormalizeSymbol(symbol)
	token, err := k.instrumentToken(ctx, symbol, exchange)
	if err != nil {
		return nil, err
	}

	to := k.now()
	from := periodStart(to, NormalizePeriod(period))
	data, err := withContext(ctx, k.timeout, func() ([]kiteconnect.HistoricalData, error) {
		return k.client.GetHistoricalData(int(token), "day", from, to, false, false)
	})
	if err != nil {
		return nil, k.classify("history", symbol, err)
	}

	bars := make([]models.PriceBar, 0, len(data))
	for _, d := range data {
		if d.Close == 0 {
			continue
		}
		bars = append(bars, models.PriceBar{
			Timestamp: d.Date.Time.UTC(),
			Open:      models.Round2(orElse(&d.Open, d.Close)),
			High:      models.Round2(orElse(&d.High, d.Close)),
			Low:       models.Round2(orElse(&d.Low, d.Close)),
			Close:     models.Round2(d.Close),
			Volume:    int64(d.Volume),
		})
	}
	return bars, nil
}

func (k *KiteProvider) instrumentToken(ctx context.Context, symbol string, exchange models.Exchange) (uint32, error) {
	key := instrumentKey(symbol, exchange)

	k.mu.RLock()
	inst, ok := k.instruments[key]
	loaded := len(k.instruments) > 0
	k.mu.RUnlock()
	if ok {
		return inst.Token, nil
	}
	if !loaded {
		if err := k.loadInstruments(ctx); err != nil {
			return 0, err
		}
		k.mu.RLock()
		inst, ok = k.instruments[key]
		k.mu.RUnlock()
		if ok {
			return inst.Token, nil
		}
	}
	return 0, apperrors.NewDataError("history", symbol, notFoundMessage(symbol, exchange), apperrors.ErrNotFound)
}

func (k *KiteProvider) loadInstruments(ctx context.Context) error {
	instruments, err := withContext(ctx, k.timeout, func() (kiteconnect.Instruments, error) {
		return k.client.GetInstruments()
	})
	if err != nil {
		return k.classify("instruments", "", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for _, inst := range instruments {
		exchange := models.Exchange(inst.Exchange)
		if !exchange.Valid() {
			continue
		}
		k.instruments[instrumentKey(inst.Tradingsymbol, exchange)] = models.Instrument{
			Token:    uint32(inst.InstrumentToken),
			Symbol:   inst.Tradingsymbol,
			Name:     inst.Name,
			Exchange: exchange,
		}
	}
	k.logger.Debug().Int("count", len(k.instruments)).Msg("Loaded instruments")
	return nil
}

func (k *KiteProvider) classify(dataType, symbol string, err error) error {
	if apperrors.Is(err, apperrors.ErrTimeout) {
		return apperrors.NewDataError(dataType, symbol, "Request timeout. Please try again.", apperrors.ErrTimeout)
	}
	var kerr kiteconnect.Error
	if errors.As(err, &kerr) {
		switch kerr.ErrorType {
		case kiteconnect.TokenError, kiteconnect.PermissionError:
			return apperrors.NewDataError(dataType, symbol, kerr.Message, apperrors.ErrUnauthorized)
		case kiteconnect.InputError:
			return apperrors.NewDataError(dataType, symbol, kerr.Message, apperrors.ErrNotFound)
		}
	}
	return apperrors.NewDataError(dataType, symbol, err.Error(), apperrors.ErrServiceUnavailable)
}

func instrumentKey(symbol string, exchange models.Exchange) string {
	return fmt.Sprintf("%s:%s", exchange, symbol)
}

func periodStart(to time.Time, period string) time.Time {
	switch period {
	case "1mo":
		return to.AddDate(0, -1, 0)
	case "3mo":
		return to.AddDate(0, -3, 0)
	case "1y":
		return to.AddDate(-1, 0, 0)
	case "2y":
		return to.AddDate(-2, 0, 0)
	default:
		return to.AddDate(0, -6, 0)
	}
}

// withContext runs a blocking Kite call and abandons it when ctx ends or the
// timeout passes. The Kite client has no context support.
func withContext[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, apperrors.ErrTimeout
		}
		return zero, ctx.Err()
	}
}
