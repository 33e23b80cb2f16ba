package marketdata

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// RateLimited throttles outbound requests through a shared token bucket.
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// NewRateLimited allows requestsPerMinute calls with a small burst. A
// non-positive rate disables throttling.
func NewRateLimited(next Provider, requestsPerMinute int) *RateLimited {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		burst := requestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst)
	}
	return &RateLimited{next: next, limiter: limiter}
}

func (r *RateLimited) CurrentPrice(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error) {
	if err := r.wait(ctx, "quote", symbol); err != nil {
		return nil, err
	}
	return r.next.CurrentPrice(ctx, symbol, exchange)
}

func (r *RateLimited) HistoricalBars(ctx context.Context, symbol string, exchange models.Exchange, period string) ([]models.PriceBar, error) {
	if err := r.wait(ctx, "history", symbol); err != nil {
		return nil, err
	}
	return r.next.HistoricalBars(ctx, symbol, exchange, period)
}

func (r *RateLimited) wait(ctx context.Context, dataType, symbol string) error {
	err := r.limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return apperrors.NewDataError(dataType, symbol, "waiting for rate limiter", apperrors.ErrTimeout)
	}
	// Wait fails early when the deadline cannot be met.
	return apperrors.NewDataError(dataType, symbol, err.Error(), apperrors.ErrRateLimited)
}
