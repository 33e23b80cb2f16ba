package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/security"
)

// TradeType represents the direction of a position.
type TradeType string

const (
	Long  TradeType = "long"
	Short TradeType = "short"
)

// Valid reports whether t is a supported trade type.
func (t TradeType) Valid() bool {
	return t == Long || t == Short
}

// UnmarshalText rejects unknown trade types during decoding.
func (t *TradeType) UnmarshalText(text []byte) error {
	v := TradeType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return apperrors.NewValidationError("tradeType", string(text), "must be long or short")
	}
	*t = v
	return nil
}

// TradeStatus represents whether a trade is still open.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// Valid reports whether s is a supported status.
func (s TradeStatus) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// UnmarshalText rejects unknown statuses during decoding.
func (s *TradeStatus) UnmarshalText(text []byte) error {
	v := TradeStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return apperrors.NewValidationError("status", string(text), "must be open or closed")
	}
	*s = v
	return nil
}

// Emotion is the trader's self-reported state when entering a trade.
type Emotion string

const (
	EmotionUnset      Emotion = ""
	EmotionFear       Emotion = "fear"
	EmotionGreed      Emotion = "greed"
	EmotionConfidence Emotion = "confidence"
	EmotionAnxiety    Emotion = "anxiety"
	EmotionCalm       Emotion = "calm"
)

// Emotions lists the taggable emotions in reporting order.
var Emotions = []Emotion{EmotionFear, EmotionGreed, EmotionConfidence, EmotionAnxiety, EmotionCalm}

// Valid reports whether e is a known emotion or unset.
func (e Emotion) Valid() bool {
	if e == EmotionUnset {
		return true
	}
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

// UnmarshalText rejects unknown emotions during decoding.
func (e *Emotion) UnmarshalText(text []byte) error {
	v := Emotion(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return apperrors.NewValidationError("emotion", string(text), "invalid emotion value")
	}
	*e = v
	return nil
}

// TradeRecord is a single journaled trade owned by one user.
type TradeRecord struct {
	ID         string      `json:"id"`
	Owner      string      `json:"user"`
	Symbol     string      `json:"symbol"`
	Exchange   Exchange    `json:"exchange"`
	TradeType  TradeType   `json:"tradeType"`
	EntryPrice float64     `json:"entryPrice"`
	ExitPrice  *float64    `json:"exitPrice,omitempty"`
	Quantity   int64       `json:"quantity"`
	EntryDate  time.Time   `json:"entryDate"`
	ExitDate   *time.Time  `json:"exitDate,omitempty"`
	Fees       float64     `json:"fees"`
	ProfitLoss float64     `json:"profitLoss"`
	Status     TradeStatus `json:"status"`
	Notes      string      `json:"notes,omitempty"`
	Tags       []string    `json:"tags"`
	Emotion    Emotion     `json:"emotion"`
	AIAnalysis string      `json:"aiAnalysis,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// IsClosed reports whether the trade counts as a realized result.
func (t TradeRecord) IsClosed() bool {
	return t.Status == StatusClosed
}

// ApplyPnLRule recomputes ProfitLoss and Status from the price, quantity, fee
// and date fields. A trade closes only when both ExitPrice and ExitDate are set.
func ApplyPnLRule(t TradeRecord) TradeRecord {
	if t.ExitPrice == nil {
		t.ProfitLoss = 0
		t.Status = StatusOpen
		return t
	}

	entry := decimal.NewFromFloat(t.EntryPrice)
	exit := decimal.NewFromFloat(*t.ExitPrice)

	move := exit.Sub(entry)
	if t.TradeType == Short {
		move = entry.Sub(exit)
	}
	pnl := move.Mul(decimal.NewFromInt(t.Quantity)).Sub(decimal.NewFromFloat(t.Fees))
	t.ProfitLoss = pnl.InexactFloat64()

	if t.ExitDate != nil {
		t.Status = StatusClosed
	} else {
		t.Status = StatusOpen
	}
	return t
}

// Normalize uppercases the symbol and trims free-text fields, dropping
// control characters from notes. Tags are trimmed and de-duplicated keeping
// first occurrence order.
func (t *TradeRecord) Normalize() {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	t.Notes = strings.TrimSpace(security.SanitizeText(t.Notes))
	if t.Exchange == "" {
		t.Exchange = NSE
	}

	seen := make(map[string]bool, len(t.Tags))
	tags := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	t.Tags = tags
}

// Validate checks field ranges and enumerations.
func (t TradeRecord) Validate() error {
	var errs apperrors.ValidationErrors
	add := func(err error) {
		var v *apperrors.ValidationError
		if apperrors.As(err, &v) {
			errs = append(errs, v)
		}
	}
	input := security.Default

	add(input.ValidateSymbol(t.Symbol))
	if !t.Exchange.Valid() {
		errs = append(errs, apperrors.NewValidationError("exchange", t.Exchange, "must be NSE or BSE"))
	}
	if !t.TradeType.Valid() {
		errs = append(errs, apperrors.NewValidationError("tradeType", t.TradeType, "must be long or short"))
	}
	add(input.ValidatePrice("entryPrice", t.EntryPrice))
	if t.ExitPrice != nil {
		add(input.ValidatePrice("exitPrice", *t.ExitPrice))
	}
	add(input.ValidateQuantity("quantity", t.Quantity))
	if t.EntryDate.IsZero() {
		errs = append(errs, apperrors.NewValidationError("entryDate", nil, "is required"))
	}
	if t.ExitDate != nil && !t.EntryDate.IsZero() && t.ExitDate.Before(t.EntryDate) {
		errs = append(errs, apperrors.NewValidationError("exitDate", t.ExitDate.Format(time.RFC3339), "must not be before entry date"))
	}
	if t.Fees < 0 {
		errs = append(errs, apperrors.NewValidationError("fees", t.Fees, "cannot be negative"))
	}
	add(input.ValidateText("notes", t.Notes, security.MaxNotesLength))
	add(input.ValidateTags(t.Tags))
	if !t.Emotion.Valid() {
		errs = append(errs, apperrors.NewValidationError("emotion", t.Emotion, "invalid emotion value"))
	}

	return errs.OrNil()
}

// TradePatch carries the fields of a partial update. Nil fields are left
// unchanged; the Clear flags remove the exit so a trade can be reopened.
type TradePatch struct {
	Symbol     *string    `json:"symbol"`
	Exchange   *Exchange  `json:"exchange"`
	TradeType  *TradeType `json:"tradeType"`
	EntryPrice *float64   `json:"entryPrice"`
	ExitPrice  *float64   `json:"exitPrice"`
	Quantity   *int64     `json:"quantity"`
	EntryDate  *time.Time `json:"entryDate"`
	ExitDate   *time.Time `json:"exitDate"`
	Fees       *float64   `json:"fees"`
	Notes      *string    `json:"notes"`
	Tags       []string   `json:"tags"`
	Emotion    *Emotion   `json:"emotion"`

	ClearExitPrice bool `json:"-"`
	ClearExitDate  bool `json:"-"`
}

// Apply returns a copy of t with the patch fields applied. Derived fields are
// not touched; callers run ApplyPnLRule before persisting.
func (p TradePatch) Apply(t TradeRecord) TradeRecord {
	if p.Symbol != nil {
		t.Symbol = *p.Symbol
	}
	if p.Exchange != nil {
		t.Exchange = *p.Exchange
	}
	if p.TradeType != nil {
		t.TradeType = *p.TradeType
	}
	if p.EntryPrice != nil {
		t.EntryPrice = *p.EntryPrice
	}
	if p.ExitPrice != nil {
		v := *p.ExitPrice
		t.ExitPrice = &v
	} else if p.ClearExitPrice {
		t.ExitPrice = nil
	}
	if p.Quantity != nil {
		t.Quantity = *p.Quantity
	}
	if p.EntryDate != nil {
		t.EntryDate = *p.EntryDate
	}
	if p.ExitDate != nil {
		v := *p.ExitDate
		t.ExitDate = &v
	} else if p.ClearExitDate {
		t.ExitDate = nil
	}
	if p.Fees != nil {
		t.Fees = *p.Fees
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), p.Tags...)
	}
	if p.Emotion != nil {
		t.Emotion = *p.Emotion
	}
	return t
}
