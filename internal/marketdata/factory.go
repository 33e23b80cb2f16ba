package marketdata

import (
	"fmt"

	"github.com/rs/zerolog"

	"trade-journal/internal/cache"
	"trade-journal/internal/config"
	"trade-journal/internal/resilience"
)

// New builds the configured provider and wraps it, innermost first, with
// rate limiting, a circuit breaker named after the provider, and the cache
// when one is given.
func New(cfg config.MarketDataConfig, creds config.KiteCredentials, store cache.Cache, breakers *resilience.Registry, logger zerolog.Logger) (Provider, error) {
	var (
		base Provider
		name string
	)
	switch cfg.Provider {
	case "", "yahoo":
		name = "yahoo"
		base = NewYahooProvider(YahooConfig{
			BaseURL:        cfg.BaseURL,
			CurrentTimeout: cfg.CurrentTimeout,
			HistoryTimeout: cfg.HistoryTimeout,
			Retries:        cfg.Retries,
			RetryWait:      cfg.RetryWait,
		}, logger)
	case "kite":
		name = "kite"
		baseURI := cfg.BaseURL
		if baseURI == DefaultYahooBaseURL {
			baseURI = ""
		}
		kite, err := NewKiteProvider(KiteConfig{
			APIKey:      creds.APIKey,
			AccessToken: creds.AccessToken,
			BaseURI:     baseURI,
			Timeout:     cfg.HistoryTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		base = kite
	default:
		return nil, fmt.Errorf("unknown market data provider %q", cfg.Provider)
	}

	var p Provider = NewRateLimited(base, cfg.RequestsPerMinute)
	if breakers != nil {
		p = NewBreaker(p, breakers.Get(name))
	}
	if store != nil && cfg.CacheTTL > 0 {
		p = NewCached(p, store, cfg.CacheTTL, logger)
	}

	logger.Info().
		Str("provider", name).
		Int("requests_per_minute", cfg.RequestsPerMinute).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Market data provider ready")
	return p, nil
}
