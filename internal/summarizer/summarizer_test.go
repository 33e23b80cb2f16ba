package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/cache"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/resilience"
)

// scriptedClient answers per model and records the models it was asked.
type scriptedClient struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string
	block   bool
}

func (c *scriptedClient) Name() string { return "fake" }

func (c *scriptedClient) Generate(ctx context.Context, model, _ string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, model)
	c.mu.Unlock()
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := c.errs[model]; err != nil {
		return "", err
	}
	return c.replies[model], nil
}

func ptr[T any](v T) *T { return &v }

func sampleTrade() models.TradeRecord {
	entry := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	exit := entry.Add(48 * time.Hour)
	return models.TradeRecord{
		ID:         "t1",
		Owner:      "u1",
		Symbol:     "RELIANCE",
		Exchange:   models.NSE,
		TradeType:  models.Long,
		EntryPrice: 2450.5,
		ExitPrice:  ptr(2500.0),
		Quantity:   10,
		EntryDate:  entry,
		ExitDate:   &exit,
		Fees:       20,
		ProfitLoss: 475,
		Status:     models.StatusClosed,
		Tags:       []string{"breakout", "swing"},
		Emotion:    models.EmotionConfidence,
		UpdatedAt:  exit,
	}
}

const goodReply = "```json\n{\"summary\":\"Clean breakout.\",\"patterns\":[\"Momentum entry\"],\"strengths\":[\"Followed plan\"],\"weaknesses\":[],\"insights\":\"Trail stops.\"}\n```"

func TestSummarizeNotConfigured(t *testing.T) {
	s := NewSummarizer(nil, []string{"m1"}, time.Second, zerolog.Nop())
	assert.False(t, s.Configured())

	_, err := s.Summarize(context.Background(), sampleTrade(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrServiceUnavailable))
}

func TestSummarizeFallsBackAcrossModels(t *testing.T) {
	client := &scriptedClient{
		errs:    map[string]error{"m1": errors.New("404 model not found")},
		replies: map[string]string{"m2": goodReply, "m3": "unused"},
	}
	s := NewSummarizer(client, []string{"m1", "m2", "m3"}, time.Second, zerolog.Nop())

	a, err := s.Summarize(context.Background(), sampleTrade(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, client.calls)
	assert.Equal(t, "Clean breakout.", a.Summary)
	assert.Equal(t, []string{"Momentum entry"}, a.Patterns)
	assert.Equal(t, []string{}, a.Weaknesses)
	assert.Equal(t, "Trail stops.", a.Insights)
}

func TestSummarizeAllModelsFail(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"quota", errors.New("429 quota exceeded"), apperrors.ErrRateLimited},
		{"generic", errors.New("500 internal"), apperrors.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{errs: map[string]error{"m1": tt.err, "m2": tt.err}}
			s := NewSummarizer(client, []string{"m1", "m2"}, time.Second, zerolog.Nop())

			_, err := s.Summarize(context.Background(), sampleTrade(), nil)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.target))
			assert.Len(t, client.calls, 2, "each model gets exactly one attempt")

			var perr *apperrors.ProviderError
			require.True(t, apperrors.As(err, &perr))
			assert.Equal(t, "m2", perr.Model)
		})
	}
}

func TestSummarizeTimeout(t *testing.T) {
	client := &scriptedClient{block: true}
	s := NewSummarizer(client, []string{"m1", "m2"}, 20*time.Millisecond, zerolog.Nop())

	_, err := s.Summarize(context.Background(), sampleTrade(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTimeout))
	assert.Equal(t, []string{"m1"}, client.calls)
}

func TestSummarizeUsesCache(t *testing.T) {
	client := &scriptedClient{replies: map[string]string{"m1": goodReply}}
	s := NewSummarizer(client, []string{"m1"}, time.Second, zerolog.Nop(), WithCache(cache.NewMemory(), time.Hour))

	record := sampleTrade()
	first, err := s.Summarize(context.Background(), record, nil)
	require.NoError(t, err)
	second, err := s.Summarize(context.Background(), record, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, client.calls, 1)

	record.Notes = "Moved stop to breakeven"
	_, err = s.Summarize(context.Background(), record, nil)
	require.NoError(t, err)
	assert.Len(t, client.calls, 2, "an edited trade is analyzed again")
}

func TestSummarizeStopsOnOpenCircuit(t *testing.T) {
	cb := resilience.NewCircuitBreaker("fake", resilience.CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Hour})
	client := &scriptedClient{errs: map[string]error{"m1": errors.New("503"), "m2": errors.New("503")}}
	s := NewSummarizer(client, []string{"m1", "m2"}, time.Second, zerolog.Nop(), WithBreaker(cb))

	_, err := s.Summarize(context.Background(), sampleTrade(), nil)
	require.Error(t, err)
	assert.Equal(t, []string{"m1"}, client.calls)
	assert.True(t, apperrors.Is(err, apperrors.ErrServiceUnavailable))
}

func TestParseAnalysis(t *testing.T) {
	t.Run("extra prose around object", func(t *testing.T) {
		a, ok := ParseAnalysis("Here you go:\n{\"summary\":\"S\",\"insights\":\"I\"}\nThanks")
		assert.True(t, ok)
		assert.Equal(t, "S", a.Summary)
		assert.Equal(t, "I", a.Insights)
		assert.Equal(t, []string{}, a.Patterns)
	})

	t.Run("non array fields become empty", func(t *testing.T) {
		a, ok := ParseAnalysis(`{"summary":"","patterns":"none","strengths":[1,"kept"]}`)
		assert.True(t, ok)
		assert.Equal(t, defaultSummary, a.Summary)
		assert.Equal(t, defaultInsights, a.Insights)
		assert.Equal(t, []string{}, a.Patterns)
		assert.Equal(t, []string{"kept"}, a.Strengths)
	})

	t.Run("invalid json falls back to text", func(t *testing.T) {
		text := strings.Repeat("é", 400)
		a, ok := ParseAnalysis(text)
		assert.False(t, ok)
		assert.Equal(t, strings.Repeat("é", 300), a.Summary)
		assert.Equal(t, formatInsights, a.Insights)
		assert.Equal(t, []string{}, a.Strengths)
	})

	t.Run("empty reply", func(t *testing.T) {
		a, ok := ParseAnalysis("")
		assert.False(t, ok)
		assert.Equal(t, fallbackSummary, a.Summary)
	})
}

func TestBuildPrompt(t *testing.T) {
	record := sampleTrade()
	history := []models.TradeRecord{record}
	for i := 0; i < 7; i++ {
		history = append(history, models.TradeRecord{
			ID:         fmt.Sprintf("h%d", i),
			Symbol:     "INFY",
			TradeType:  models.Long,
			ProfitLoss: float64(100 - i*40),
			Status:     models.StatusClosed,
		})
	}
	history = append(history, models.TradeRecord{ID: "other", Symbol: "TCS", TradeType: models.Short, Status: models.StatusOpen})

	prompt := BuildPrompt(record, history)

	assert.Contains(t, prompt, "- Symbol: RELIANCE")
	assert.Contains(t, prompt, "- Trade Type: LONG")
	assert.Contains(t, prompt, "- Entry Price: ₹2450.5")
	assert.Contains(t, prompt, "- Exit Price: 2500")
	assert.Contains(t, prompt, "- Entry Date: 15/1/2024")
	assert.Contains(t, prompt, "- Exit Date: 17/1/2024")
	assert.Contains(t, prompt, "- Profit/Loss: ₹475.00")
	assert.Contains(t, prompt, "- Tags: breakout, swing")
	assert.Contains(t, prompt, "- Notes: No notes")
	assert.Contains(t, prompt, "- Status: CLOSED")

	// Eight closed trades: the record plus h0..h6 (100, 60, 20, -20, -60, -100, -140).
	assert.Contains(t, prompt, "- Total Closed Trades: 8")
	assert.Contains(t, prompt, "- Win Rate: 50.0%")
	assert.Contains(t, prompt, "- Total P&L: ₹335.00")

	start := strings.Index(prompt, "- Similar Recent Trades: ")
	end := strings.Index(prompt, "\n\nPlease provide")
	require.True(t, start >= 0 && end > start)
	var similar []similarTrade
	require.NoError(t, json.Unmarshal([]byte(prompt[start+len("- Similar Recent Trades: "):end]), &similar))
	require.Len(t, similar, 5)
	assert.Equal(t, "INFY", similar[0].Symbol)
	assert.Equal(t, 100.0, similar[0].ProfitLoss)
}

func TestBuildPromptOpenTradeWithoutHistory(t *testing.T) {
	record := sampleTrade()
	record.ExitPrice, record.ExitDate = nil, nil
	record.Status, record.ProfitLoss, record.Emotion, record.Tags = models.StatusOpen, 0, "", nil

	prompt := BuildPrompt(record, nil)
	assert.Contains(t, prompt, "- Exit Price: Not exited yet")
	assert.Contains(t, prompt, "- Exit Date: Still open")
	assert.Contains(t, prompt, "- Emotion: Not specified")
	assert.Contains(t, prompt, "- Tags: None")
	assert.Contains(t, prompt, "- Win Rate: 0%")
	assert.Contains(t, prompt, "- Similar Recent Trades: None")
}

func TestOpenAIClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"summary\":\"ok\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL+"/v1")
	text, err := client.Generate(context.Background(), "gpt-4o-mini", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, text)
}

func TestGeminiClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello"}]}}]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient(context.Background(), "test-key", srv.URL+"/")
	require.NoError(t, err)
	text, err := client.Generate(context.Background(), "gemini-2.5-flash", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}
