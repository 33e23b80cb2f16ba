// Package summarizer produces AI commentary on journaled trades using Gemini
// or OpenAI models.
package summarizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/cache"
	"trade-journal/internal/config"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/resilience"
)

// ErrNotConfigured is returned when no API key is set for the provider.
var ErrNotConfigured = errors.New("AI API key is not configured")

// TextClient is a single-prompt text generation API.
type TextClient interface {
	Name() string
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Summarizer turns a trade and its owner's history into an Analysis.
type Summarizer struct {
	client  TextClient
	models  []string
	timeout time.Duration
	cache   cache.Cache
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithCache stores analyses for ttl keyed by trade id and revision.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Summarizer) {
		s.cache = c
		s.ttl = ttl
	}
}

// WithBreaker guards provider calls with cb.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *Summarizer) { s.breaker = cb }
}

// NewSummarizer creates a summarizer that tries modelNames in order. A nil
// client leaves the summarizer unconfigured.
func NewSummarizer(client TextClient, modelNames []string, timeout time.Duration, logger zerolog.Logger, opts ...Option) *Summarizer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	s := &Summarizer{
		client:  client,
		models:  modelNames,
		timeout: timeout,
		logger:  logger.With().Str("component", "summarizer").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New builds the summarizer for the configured provider. Missing credentials
// yield an unconfigured summarizer rather than an error.
func New(ctx context.Context, cfg *config.Config, store cache.Cache, breakers *resilience.Registry, logger zerolog.Logger) (*Summarizer, error) {
	var opts []Option
	if store != nil && cfg.AI.CacheTTL > 0 {
		opts = append(opts, WithCache(store, cfg.AI.CacheTTL))
	}
	if breakers != nil {
		opts = append(opts, WithBreaker(breakers.Get(cfg.AI.Provider)))
	}

	key := cfg.AIAPIKey()
	if key == "" {
		logger.Warn().Str("provider", cfg.AI.Provider).Msg("AI API key not configured; trade analysis disabled")
		return NewSummarizer(nil, cfg.AI.Models, cfg.AI.Timeout, logger, opts...), nil
	}

	var client TextClient
	switch cfg.AI.Provider {
	case "openai":
		client = NewOpenAIClient(key, "")
	case "gemini", "":
		gc, err := NewGeminiClient(ctx, key, "")
		if err != nil {
			return nil, err
		}
		client = gc
	default:
		return nil, fmt.Errorf("unknown ai provider: %s", cfg.AI.Provider)
	}

	logger.Info().
		Str("provider", client.Name()).
		Str("api_key", logging.MaskSecret(key)).
		Strs("models", cfg.AI.Models).
		Msg("AI summarizer enabled")

	return NewSummarizer(client, cfg.AI.Models, cfg.AI.Timeout, logger, opts...), nil
}

// Configured reports whether a provider client is available.
func (s *Summarizer) Configured() bool {
	return s != nil && s.client != nil
}

// cacheKey changes whenever the prompt does, so edits to the trade or its
// history miss the cache.
func cacheKey(record models.TradeRecord, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("analysis:%s:%s", record.ID, hex.EncodeToString(sum[:8]))
}

// Summarize analyzes record in the context of the owner's history. Each
// configured model gets one attempt; the first reply wins.
func (s *Summarizer) Summarize(ctx context.Context, record models.TradeRecord, history []models.TradeRecord) (*Analysis, error) {
	if !s.Configured() {
		return nil, apperrors.NewProviderError("ai", "", errors.Join(
			apperrors.ErrServiceUnavailable,
			ErrNotConfigured,
		))
	}

	logger := logging.WithSymbol(s.logger, record.Symbol).With().Str("trade_id", record.ID).Logger()
	prompt := BuildPrompt(record, history)
	key := cacheKey(record, prompt)

	if s.cache != nil {
		var cached Analysis
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			logger.Debug().Msg("Analysis served from cache")
			return &cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	text, model, err := s.generate(ctx, prompt, logger)
	if err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Trade analysis failed")
		return nil, err
	}

	analysis, ok := ParseAnalysis(text)
	if !ok {
		logger.Warn().Str("model", model).Int("response_length", len(text)).Msg("Model reply was not valid JSON; using text fallback")
	}

	logger.Info().
		Str("model", model).
		Dur("duration", time.Since(start)).
		Msg("Trade analysis complete")

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, analysis, s.ttl); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache analysis")
		}
	}
	return analysis, nil
}

func (s *Summarizer) generate(ctx context.Context, prompt string, logger zerolog.Logger) (string, string, error) {
	var lastErr error
	lastModel := ""
	for _, model := range s.models {
		if ctx.Err() != nil {
			break
		}
		text, err := s.call(ctx, model, prompt)
		if err == nil {
			return text, model, nil
		}
		logger.Debug().Str("model", model).Err(err).Msg("Model failed, trying next")
		lastErr, lastModel = err, model
		if apperrors.Is(err, apperrors.ErrCircuitOpen) {
			break
		}
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return "", "", apperrors.NewProviderError(s.client.Name(), lastModel, classify(ctx, lastErr))
}

func (s *Summarizer) call(ctx context.Context, model, prompt string) (string, error) {
	start := time.Now()
	call := func(ctx context.Context) (string, error) {
		return s.client.Generate(ctx, model, prompt)
	}
	var (
		text string
		err  error
	)
	if s.breaker != nil {
		text, err = resilience.Execute(ctx, s.breaker, call)
	} else {
		text, err = call(ctx)
	}
	logging.LogAPICall(s.logger, "POST", s.client.Name()+"/"+model, time.Since(start), err)
	return text, err
}

// classify attaches the sentinel that decides the HTTP status of a failed
// analysis.
func classify(ctx context.Context, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case apperrors.Is(err, apperrors.ErrServiceUnavailable):
		return err
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return errors.Join(apperrors.ErrTimeout, err)
	case strings.Contains(msg, "quota"), strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"):
		return errors.Join(apperrors.ErrRateLimited, err)
	default:
		return errors.Join(apperrors.ErrServiceUnavailable, err)
	}
}
