package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

// DefaultYahooBaseURL is the public chart API host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooConfig configures YahooProvider.
type YahooConfig struct {
	BaseURL        string
	CurrentTimeout time.Duration
	HistoryTimeout time.Duration
	// Retries is the number of extra attempts after a 5xx response or a
	// transport error. Zero disables retries.
	Retries   int
	RetryWait time.Duration
}

// YahooProvider reads the Yahoo Finance chart endpoint.
type YahooProvider struct {
	http   *resty.Client
	cfg    YahooConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewYahooProvider creates a Yahoo chart client.
func NewYahooProvider(cfg YahooConfig, logger zerolog.Logger) *YahooProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultYahooBaseURL
	}
	if cfg.CurrentTimeout <= 0 {
		cfg.CurrentTimeout = 10 * time.Second
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = 15 * time.Second
	}

	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 300 * time.Millisecond
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4 * cfg.RetryWait).
		AddRetryCondition(retryable)

	return &YahooProvider{
		http:   client,
		cfg:    cfg,
		logger: logger.With().Str("provider", "yahoo").Logger(),
		now:    time.Now,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		RegularMarketPrice   float64 `json:"regularMarketPrice"`
		PreviousClose        float64 `json:"previousClose"`
		ChartPreviousClose   float64 `json:"chartPreviousClose"`
		RegularMarketOpen    float64 `json:"regularMarketOpen"`
		RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
		RegularMarketVolume  int64   `json:"regularMarketVolume"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// CurrentPrice returns the latest quote. The price falls back to the
// previous close when the market price is absent.
func (y *YahooProvider) CurrentPrice(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error) {
	symbol = NormalizeSymbol(symbol)
	result, err := y.chart(ctx, "quote", symbol, exchange, "1d", y.cfg.CurrentTimeout)
	if err != nil {
		return nil, err
	}

	meta := result.Meta
	price := meta.RegularMarketPrice
	if price == 0 {
		price = meta.PreviousClose
	}

	return &models.Quote{
		Symbol:        symbol,
		Exchange:      exchange,
		Price:         models.Round2(price),
		PreviousClose: optional2(meta.PreviousClose),
		Open:          optional2(meta.RegularMarketOpen),
		High:          optional2(meta.RegularMarketDayHigh),
		Low:           optional2(meta.RegularMarketDayLow),
		Volume:        optionalInt(meta.RegularMarketVolume),
		Timestamp:     y.now().UTC(),
	}, nil
}

// HistoricalBars returns daily bars for period, skipping days without a
// close. Missing open, high or low values fall back to the close.
func (y *YahooProvider) HistoricalBars(ctx context.Context, symbol string, exchange models.Exchange, period string) ([]models.PriceBar, error) {
	symbol = NormalizeSymbol(symbol)
	result, err := y.chart(ctx, "history", symbol, exchange, NormalizePeriod(period), y.cfg.HistoryTimeout)
	if err != nil {
		return nil, err
	}

	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	if len(result.Indicators.Quote) == 0 {
		return bars, nil
	}
	q := result.Indicators.Quote[0]
	for i, ts := range result.Timestamp {
		c := at(q.Close, i)
		if c == nil {
			continue
		}
		closePrice := *c
		bar := models.PriceBar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      models.Round2(orElse(at(q.Open, i), closePrice)),
			High:      models.Round2(orElse(at(q.High, i), closePrice)),
			Low:       models.Round2(orElse(at(q.Low, i), closePrice)),
			Close:     models.Round2(closePrice),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func (y *YahooProvider) chart(ctx context.Context, dataType, symbol string, exchange models.Exchange, rng string, timeout time.Duration) (*chartResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := y.http.R().
		SetContext(ctx).
		SetPathParam("symbol", YahooSymbol(symbol, exchange)).
		SetQueryParams(map[string]string{"interval": "1d", "range": rng}).
		Get("/v8/finance/chart/{symbol}")
	logging.LogAPICall(logging.WithSymbol(y.logger, symbol), "GET", "chart/"+dataType, time.Since(start), err)

	if err != nil {
		if isTimeout(ctx, err) {
			return nil, apperrors.NewDataError(dataType, symbol, "Request timeout. Please try again.", apperrors.ErrTimeout)
		}
		return nil, apperrors.NewDataError(dataType, symbol, "request failed", errors.Join(apperrors.ErrServiceUnavailable, err))
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, apperrors.NewDataError(dataType, symbol, notFoundMessage(symbol, exchange), apperrors.ErrNotFound)
	case resp.IsError():
		return nil, apperrors.NewDataError(dataType, symbol, "upstream returned "+resp.Status(), apperrors.ErrServiceUnavailable)
	}

	var body chartResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, apperrors.NewDataError(dataType, symbol, "malformed chart response", errors.Join(apperrors.ErrServiceUnavailable, err))
	}
	if len(body.Chart.Result) == 0 {
		return nil, apperrors.NewDataError(dataType, symbol, notFoundMessage(symbol, exchange), apperrors.ErrNotFound)
	}
	return &body.Chart.Result[0], nil
}

// retryable retries transport errors and 5xx responses. Client errors such
// as 404 are final.
func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode() >= http.StatusInternalServerError
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func at[T any](values []*T, i int) *T {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func orElse(v *float64, fallback float64) float64 {
	if v == nil || *v == 0 {
		return fallback
	}
	return *v
}
