package marketdata

import (
	"context"

	"trade-journal/internal/models"
	"trade-journal/internal/resilience"
)

// Breaker fails fast while the upstream keeps failing.
type Breaker struct {
	next Provider
	cb   *resilience.CircuitBreaker
}

// NewBreaker wraps next with cb.
func NewBreaker(next Provider, cb *resilience.CircuitBreaker) *Breaker {
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) CurrentPrice(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error) {
	return resilience.Execute(ctx, b.cb, func(ctx context.Context) (*models.Quote, error) {
		return b.next.CurrentPrice(ctx, symbol, exchange)
	})
}

func (b *Breaker) HistoricalBars(ctx context.Context, symbol string, exchange models.Exchange, period string) ([]models.PriceBar, error) {
	return resilience.Execute(ctx, b.cb, func(ctx context.Context) ([]models.PriceBar, error) {
		return b.next.HistoricalBars(ctx, symbol, exchange, period)
	})
}
