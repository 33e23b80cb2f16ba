package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"trade-journal/internal/auth"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// nullable tells an absent key from an explicit null.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// tradeInput is the JSON body of create and update requests. Dates accept
// RFC 3339 timestamps or plain YYYY-MM-DD. An explicit null (or "" for
// exitDate) clears the exit and reopens the trade.
type tradeInput struct {
	Symbol     *string           `json:"symbol"`
	Exchange   *models.Exchange  `json:"exchange"`
	TradeType  *models.TradeType `json:"tradeType"`
	EntryPrice *float64          `json:"entryPrice"`
	ExitPrice  nullable[float64] `json:"exitPrice"`
	Quantity   *int64            `json:"quantity"`
	EntryDate  *string           `json:"entryDate"`
	ExitDate   nullable[string]  `json:"exitDate"`
	Fees       *float64          `json:"fees"`
	Notes      *string           `json:"notes"`
	Tags       []string          `json:"tags"`
	Emotion    *models.Emotion   `json:"emotion"`
}

func (in tradeInput) patch() (models.TradePatch, error) {
	p := models.TradePatch{
		Symbol:     in.Symbol,
		Exchange:   in.Exchange,
		TradeType:  in.TradeType,
		EntryPrice: in.EntryPrice,
		ExitPrice:  in.ExitPrice.Value,
		Quantity:   in.Quantity,
		Fees:       in.Fees,
		Notes:      in.Notes,
		Tags:       in.Tags,
		Emotion:    in.Emotion,

		ClearExitPrice: in.ExitPrice.Set && in.ExitPrice.Value == nil,
	}

	var errs apperrors.ValidationErrors
	if in.EntryDate != nil && strings.TrimSpace(*in.EntryDate) != "" {
		d, err := models.ParseDate("entryDate", *in.EntryDate)
		if err != nil {
			errs = append(errs, apperrors.NewValidationError("entryDate", *in.EntryDate, "Invalid date format for entryDate"))
		} else {
			p.EntryDate = &d
		}
	}
	switch exit := in.ExitDate.Value; {
	case exit != nil && strings.TrimSpace(*exit) != "":
		d, err := models.ParseDate("exitDate", *exit)
		if err != nil {
			errs = append(errs, apperrors.NewValidationError("exitDate", *exit, "Invalid date format for exitDate"))
		} else {
			p.ExitDate = &d
		}
	case in.ExitDate.Set:
		p.ClearExitDate = true
	}
	return p, errs.OrNil()
}

// required reports the create-only mandatory fields.
func (in tradeInput) required() error {
	var errs apperrors.ValidationErrors
	if in.Symbol == nil || strings.TrimSpace(*in.Symbol) == "" {
		errs = append(errs, apperrors.NewValidationError("symbol", nil, "Stock symbol is required"))
	}
	if in.TradeType == nil {
		errs = append(errs, apperrors.NewValidationError("tradeType", nil, "Trade type must be long or short"))
	}
	if in.EntryPrice == nil {
		errs = append(errs, apperrors.NewValidationError("entryPrice", nil, "Entry price must be a positive number"))
	}
	if in.Quantity == nil {
		errs = append(errs, apperrors.NewValidationError("quantity", nil, "Quantity must be at least 1"))
	}
	if in.EntryDate == nil || strings.TrimSpace(*in.EntryDate) == "" {
		errs = append(errs, apperrors.NewValidationError("entryDate", nil, "Entry date is required"))
	}
	return errs.OrNil()
}

func tradeNotFound(err error) error {
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return apperrors.Wrap(apperrors.ErrNotFound, "Trade not found")
	}
	return err
}

func currentUser(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// parseFilter reads status, symbol, exchange, dateFrom and dateTo.
func parseFilter(r *http.Request) (store.TradeFilter, error) {
	q := r.URL.Query()
	var f store.TradeFilter
	var errs apperrors.ValidationErrors

	if v := q.Get("status"); v != "" {
		if err := f.Status.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, apperrors.NewValidationError("status", v, "Status must be open or closed"))
		}
	}
	f.Symbol = strings.ToUpper(strings.TrimSpace(q.Get("symbol")))
	if v := q.Get("exchange"); v != "" {
		ex, err := models.ParseExchange(v)
		if err != nil {
			errs = append(errs, apperrors.NewValidationError("exchange", v, "Exchange must be NSE or BSE"))
		}
		f.Exchange = ex
	}
	if v := q.Get("dateFrom"); v != "" {
		d, err := models.ParseDate("dateFrom", v)
		if err != nil {
			errs = append(errs, apperrors.NewValidationError("dateFrom", v, "Invalid date format for dateFrom"))
		}
		f.From = d
	}
	if v := q.Get("dateTo"); v != "" {
		d, err := models.ParseDate("dateTo", v)
		if err != nil {
			errs = append(errs, apperrors.NewValidationError("dateTo", v, "Invalid date format for dateTo"))
		}
		f.To = d
	}
	return f, errs.OrNil()
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err, "Server error while fetching trades")
		return
	}

	trades, err := s.deps.Trades.ListTrades(r.Context(), currentUser(r), filter)
	if err != nil {
		writeError(w, r, err, "Server error while fetching trades")
		return
	}
	if trades == nil {
		trades = []models.TradeRecord{}
	}
	ok(w, "", map[string]interface{}{"trades": trades, "count": len(trades)})
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := s.deps.Trades.GetTrade(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, tradeNotFound(err), "Server error while fetching trade")
		return
	}
	ok(w, "", map[string]interface{}{"trade": trade})
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	const fallback = "Server error while creating trade"

	var in tradeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, fallback)
		return
	}
	if err := in.required(); err != nil {
		writeError(w, r, err, fallback)
		return
	}
	patch, err := in.patch()
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}

	userID := currentUser(r)
	trade, err := s.deps.Trades.CreateTrade(r.Context(), patch.Apply(models.TradeRecord{Owner: userID}))
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}

	_ = s.deps.Auth.Audit().LogTrade(r.Context(), auth.AuditTradeCreated, userID, trade.ID, trade.Symbol)
	created(w, "Trade created successfully", map[string]interface{}{"trade": trade})
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	const fallback = "Server error while updating trade"

	var in tradeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, fallback)
		return
	}
	patch, err := in.patch()
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}

	userID := currentUser(r)
	existing, err := s.deps.Trades.GetTrade(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, tradeNotFound(err), fallback)
		return
	}

	trade, err := s.deps.Trades.UpdateTrade(r.Context(), patch.Apply(*existing))
	if err != nil {
		writeError(w, r, tradeNotFound(err), fallback)
		return
	}

	_ = s.deps.Auth.Audit().LogTrade(r.Context(), auth.AuditTradeUpdated, userID, trade.ID, trade.Symbol)
	ok(w, "Trade updated successfully", map[string]interface{}{"trade": trade})
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	id := chi.URLParam(r, "id")
	if err := s.deps.Trades.DeleteTrade(r.Context(), userID, id); err != nil {
		writeError(w, r, tradeNotFound(err), "Server error while deleting trade")
		return
	}

	_ = s.deps.Auth.Audit().LogTrade(r.Context(), auth.AuditTradeDeleted, userID, id, "")
	ok(w, "Trade deleted successfully", nil)
}

func (s *Server) allTrades(r *http.Request) ([]models.TradeRecord, error) {
	return s.deps.Trades.ListTrades(r.Context(), currentUser(r), store.TradeFilter{})
}

func (s *Server) handleAnalyzeTrade(w http.ResponseWriter, r *http.Request) {
	const fallback = "Server error while analyzing trade"

	userID := currentUser(r)
	trade, err := s.deps.Trades.GetTrade(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, tradeNotFound(err), fallback)
		return
	}
	history, err := s.allTrades(r)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}

	analysis, err := s.deps.Summarizer.Summarize(r.Context(), *trade, history)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}

	encoded, err := json.Marshal(analysis)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	if err := s.deps.Trades.SaveAIAnalysis(r.Context(), userID, trade.ID, string(encoded)); err != nil {
		writeError(w, r, tradeNotFound(err), fallback)
		return
	}

	_ = s.deps.Auth.Audit().LogTrade(r.Context(), auth.AuditTradeAnalyzed, userID, trade.ID, trade.Symbol)
	ok(w, "AI analysis completed successfully", map[string]interface{}{"analysis": analysis})
}
