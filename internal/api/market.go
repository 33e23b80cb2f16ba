package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/marketdata"
	"trade-journal/internal/models"
	"trade-journal/internal/security"
)

func exchangeParam(r *http.Request, fallback string) (models.Exchange, error) {
	v := r.URL.Query().Get("exchange")
	if v == "" {
		v = fallback
	}
	ex, err := models.ParseExchange(v)
	if err != nil {
		return "", apperrors.NewValidationError("exchange", v, "Exchange must be NSE or BSE")
	}
	return ex, nil
}

func symbolParam(r *http.Request) (string, error) {
	symbol := marketdata.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if err := security.Default.ValidateSymbol(symbol); err != nil {
		return "", err
	}
	return symbol, nil
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	const fallback = "Server error while generating prediction"

	symbol, err := symbolParam(r)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	exchange, err := exchangeParam(r, "")
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}

	report, err := s.deps.Predictor.PredictDirection(r.Context(), symbol, exchange)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	ok(w, "Prediction generated successfully", report)
}

type bulkRequest struct {
	Symbols  []string `json:"symbols"`
	Exchange string   `json:"exchange"`
}

func (s *Server) handlePredictBulk(w http.ResponseWriter, r *http.Request) {
	const fallback = "Server error while generating bulk predictions"

	var body bulkRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err, fallback)
		return
	}
	exchange, err := exchangeParam(r, body.Exchange)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	for _, sym := range body.Symbols {
		if strings.TrimSpace(sym) == "" {
			writeError(w, r, apperrors.NewValidationError("symbols", sym, "Symbols must not be empty"), fallback)
			return
		}
	}

	result, err := s.deps.Predictor.PredictBulk(r.Context(), body.Symbols, exchange, s.deps.BulkConcurrency)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	ok(w, fmt.Sprintf("Retrieved %d predictions", len(result.Predictions)), result)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	const fallback = "Server error while fetching quote"

	symbol, err := symbolParam(r)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	exchange, err := exchangeParam(r, "")
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}

	quote, err := s.deps.Market.CurrentPrice(r.Context(), symbol, exchange)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	ok(w, "", quote)
}

// healthStatus is the body of /api/health.
type healthStatus struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Timestamp string                  `json:"timestamp"`
	Upstreams interface{}             `json:"upstreams"`
	AI        bool                    `json:"aiConfigured"`
	Market    marketdata.MarketStatus `json:"market"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	status := healthStatus{
		Status:    "ok",
		Version:   s.deps.Version,
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Upstreams: []interface{}{},
		AI:        s.deps.Summarizer.Configured(),
		Market:    s.deps.Calendar.StatusAt(now),
	}
	if s.deps.Breakers != nil {
		status.Upstreams = s.deps.Breakers.AllStats()
		if !s.deps.Breakers.Healthy() {
			status.Status = "degraded"
		}
	}
	ok(w, "Server is running", status)
}
