package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/analysis/predict"
	"trade-journal/internal/cache"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/marketdata"
	"trade-journal/internal/resilience"
	"trade-journal/internal/store"
	"trade-journal/internal/summarizer"
)

// memorySweepInterval is how often the in-process cache drops expired entries.
const memorySweepInterval = time.Minute

// services are the collaborators shared by serve and the market commands.
type services struct {
	calendar   *marketdata.Calendar
	breakers   *resilience.Registry
	market     marketdata.Provider
	predictor  *predict.Predictor
	summarizer *summarizer.Summarizer
}

func (a *App) openStore() (*store.SQLiteStore, error) {
	db, err := store.NewSQLiteStore(a.Config.Database.Path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "opening database %s", a.Config.Database.Path)
	}
	a.onClose(func() { _ = db.Close() })
	a.Logger.Debug().Str("path", a.Config.Database.Path).Msg("SQLite store initialized")
	return db, nil
}

// newCache returns Redis when enabled and reachable, otherwise an in-process
// cache.
func (a *App) newCache(ctx context.Context) cache.Cache {
	if a.Config.Redis.Enabled {
		rc, err := cache.NewRedisClient(ctx, cache.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		}, a.Logger)
		if err == nil {
			a.onClose(func() { _ = rc.Close() })
			return rc
		}
		a.Logger.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
	}
	mem := cache.NewMemory()
	go mem.RunJanitor(ctx, memorySweepInterval)
	return mem
}

func (a *App) newServices(ctx context.Context) (*services, error) {
	c := a.newCache(ctx)
	breakers := resilience.NewRegistry(resilience.DefaultCircuitBreakerConfig())

	market, err := marketdata.New(a.Config.MarketData, a.Config.Credentials.Kite, c, breakers, a.Logger)
	if err != nil {
		return nil, err
	}
	ai, err := summarizer.New(ctx, a.Config, c, breakers, a.Logger)
	if err != nil {
		return nil, err
	}

	calendar, invalid := marketdata.NewCalendar(a.Config.MarketData.Holidays)
	if len(invalid) > 0 {
		a.Logger.Warn().Strs("holidays", invalid).Msg("Ignoring malformed holidays")
	}

	return &services{
		calendar: calendar,
		breakers: breakers,
		market:   market,
		predictor: predict.NewPredictor(market, predict.Config{
			HistoryRange: a.Config.MarketData.HistoryRange,
			Timeout:      a.Config.MarketData.PredictTimeout,
		}, a.Logger),
		summarizer: ai,
	}, nil
}

// owner resolves --user to a user id.
func (a *App) owner(ctx context.Context, cmd *cobra.Command, users store.UserStore) (string, error) {
	email, _ := cmd.Flags().GetString("user")
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperrors.NewValidationError("user", "", "--user is required (the email you signed up with)")
	}
	user, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Wrapf(apperrors.ErrNotFound, "no journal user %s", email)
		}
		return "", err
	}
	return user.ID, nil
}
