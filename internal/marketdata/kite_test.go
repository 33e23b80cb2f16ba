package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func newKiteServer(t *testing.T, handler http.HandlerFunc) *KiteProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	k, err := NewKiteProvider(KiteConfig{APIKey: "key", AccessToken: "token", BaseURI: srv.URL, Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)
	return k
}

func TestKiteRequiresCredentials(t *testing.T) {
	_, err := NewKiteProvider(KiteConfig{APIKey: "key"}, zerolog.Nop())
	assert.True(t, apperrors.Is(err, apperrors.ErrServiceUnavailable))
}

func TestKiteCurrentPrice(t *testing.T) {
	var gotInstrument string
	k := newKiteServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotInstrument = r.URL.Query().Get("i")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"NSE:TCS":{"instrument_token":2953217,"last_price":3512.456,"volume":1500,"ohlc":{"open":3490,"high":3520.1,"low":3480,"close":3495.5}}}}`))
	})

	q, err := k.CurrentPrice(context.Background(), "tcs", models.NSE)
	require.NoError(t, err)
	assert.Equal(t, "NSE:TCS", gotInstrument)
	assert.Equal(t, 3512.46, q.Price)
	require.NotNil(t, q.PreviousClose)
	assert.Equal(t, 3495.5, *q.PreviousClose)
	require.NotNil(t, q.Volume)
	assert.Equal(t, int64(1500), *q.Volume)
	assert.False(t, q.Timestamp.IsZero())
}

func TestKiteUnknownSymbol(t *testing.T) {
	k := newKiteServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{}}`))
	})
	_, err := k.CurrentPrice(context.Background(), "NOPE", models.BSE)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestKiteTokenError(t *testing.T) {
	k := newKiteServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":"error","message":"Incorrect api_key or access_token.","error_type":"TokenException"}`))
	})
	_, err := k.CurrentPrice(context.Background(), "TCS", models.NSE)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized), "got %v", err)
}

func TestWithContextTimeout(t *testing.T) {
	_, err := withContext(context.Background(), 20*time.Millisecond, func() (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestPeriodStart(t *testing.T) {
	to := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), periodStart(to, "6mo"))
	assert.Equal(t, time.Date(2022, 7, 15, 0, 0, 0, 0, time.UTC), periodStart(to, "2y"))
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), periodStart(to, "1mo"))
}
