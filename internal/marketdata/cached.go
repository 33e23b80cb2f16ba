package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/cache"
	"trade-journal/internal/models"
)

// Cached serves repeated lookups from a cache. Quotes live for quoteTTL and
// history for historyTTL. Cache failures fall through to the provider.
type Cached struct {
	next       Provider
	store      cache.Cache
	quoteTTL   time.Duration
	historyTTL time.Duration
	logger     zerolog.Logger
}

// NewCached wraps next. History is kept four times longer than quotes.
func NewCached(next Provider, store cache.Cache, ttl time.Duration, logger zerolog.Logger) *Cached {
	return &Cached{
		next:       next,
		store:      store,
		quoteTTL:   ttl,
		historyTTL: 4 * ttl,
		logger:     logger,
	}
}

func (c *Cached) CurrentPrice(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error) {
	key := fmt.Sprintf("quote:%s:%s", exchange, NormalizeSymbol(symbol))

	var quote models.Quote
	if err := c.store.Get(ctx, key, &quote); err == nil {
		return &quote, nil
	}

	q, err := c.next.CurrentPrice(ctx, symbol, exchange)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, q, c.quoteTTL)
	return q, nil
}

func (c *Cached) HistoricalBars(ctx context.Context, symbol string, exchange models.Exchange, period string) ([]models.PriceBar, error) {
	key := fmt.Sprintf("history:%s:%s:%s", exchange, NormalizeSymbol(symbol), NormalizePeriod(period))

	var bars []models.PriceBar
	if err := c.store.Get(ctx, key, &bars); err == nil {
		return bars, nil
	}

	bars, err := c.next.HistoricalBars(ctx, symbol, exchange, period)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, bars, c.historyTTL)
	return bars, nil
}

func (c *Cached) put(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache market data")
	}
}
