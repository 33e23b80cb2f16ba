package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "trade-journal/internal/errors"
)

func ptr[T any](v T) *T { return &v }

func closedTrade(tt TradeType, entry, exit float64, qty int64, fees float64) TradeRecord {
	entryDate := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	return TradeRecord{
		Symbol:     "RELIANCE",
		Exchange:   NSE,
		TradeType:  tt,
		EntryPrice: entry,
		ExitPrice:  ptr(exit),
		Quantity:   qty,
		EntryDate:  entryDate,
		ExitDate:   ptr(entryDate.Add(4 * time.Hour)),
		Fees:       fees,
	}
}

func TestApplyPnLRule_Long(t *testing.T) {
	got := ApplyPnLRule(closedTrade(Long, 100, 120, 10, 50))
	if got.ProfitLoss != 150 {
		t.Errorf("ProfitLoss = %v, want 150", got.ProfitLoss)
	}
	if got.Status != StatusClosed {
		t.Errorf("Status = %v, want closed", got.Status)
	}
}

func TestApplyPnLRule_Short(t *testing.T) {
	got := ApplyPnLRule(closedTrade(Short, 100, 80, 10, 20))
	if got.ProfitLoss != 180 {
		t.Errorf("ProfitLoss = %v, want 180", got.ProfitLoss)
	}
}

func TestApplyPnLRule_ExitPriceWithoutExitDateStaysOpen(t *testing.T) {
	trade := closedTrade(Long, 100, 120, 10, 50)
	trade.ExitDate = nil

	got := ApplyPnLRule(trade)
	if got.Status != StatusOpen {
		t.Errorf("Status = %v, want open when exit date is missing", got.Status)
	}
	if got.ProfitLoss != 150 {
		t.Errorf("ProfitLoss = %v, want 150", got.ProfitLoss)
	}
}

func TestApplyPnLRule_NoExitPrice(t *testing.T) {
	trade := closedTrade(Long, 100, 120, 10, 50)
	trade.ExitPrice = nil
	trade.ProfitLoss = 999
	trade.Status = StatusClosed

	got := ApplyPnLRule(trade)
	if got.ProfitLoss != 0 || got.Status != StatusOpen {
		t.Errorf("got P&L %v status %v, want 0 open", got.ProfitLoss, got.Status)
	}
}

func TestApplyPnLRule_DoesNotMutateInput(t *testing.T) {
	trade := closedTrade(Long, 100, 120, 10, 50)
	_ = ApplyPnLRule(trade)
	if trade.ProfitLoss != 0 || trade.Status != "" {
		t.Errorf("input mutated: %+v", trade)
	}
}

// Property: applying the P&L rule twice yields the same result as applying it once.
func TestProperty_PnLRuleIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ApplyPnLRule is idempotent", prop.ForAll(
		func(entry, exit, fees float64, qty int64, short bool, hasExitDate bool) bool {
			tt := Long
			if short {
				tt = Short
			}
			trade := closedTrade(tt, entry, exit, qty, fees)
			if !hasExitDate {
				trade.ExitDate = nil
			}
			once := ApplyPnLRule(trade)
			twice := ApplyPnLRule(once)
			return once.ProfitLoss == twice.ProfitLoss && once.Status == twice.Status
		},
		gen.Float64Range(0, 10000),
		gen.Float64Range(0, 10000),
		gen.Float64Range(0, 500),
		gen.Int64Range(1, 5000),
		gen.Bool(),
		gen.Bool(),
	))

	properties.Property("long and short P&L are mirror images before fees", prop.ForAll(
		func(entry, exit float64, qty int64) bool {
			long := ApplyPnLRule(closedTrade(Long, entry, exit, qty, 0))
			short := ApplyPnLRule(closedTrade(Short, entry, exit, qty, 0))
			return math.Abs(long.ProfitLoss+short.ProfitLoss) < 1e-6
		},
		gen.Float64Range(1, 5000),
		gen.Float64Range(1, 5000),
		gen.Int64Range(1, 1000),
	))

	properties.TestingRun(t)
}

func TestNormalize(t *testing.T) {
	trade := TradeRecord{
		Symbol: "  infy ",
		Notes:  "  break\x00out  ",
		Tags:   []string{" swing", "swing", "", "breakout "},
	}
	trade.Normalize()

	if trade.Symbol != "INFY" {
		t.Errorf("Symbol = %q", trade.Symbol)
	}
	if trade.Exchange != NSE {
		t.Errorf("Exchange = %q, want NSE default", trade.Exchange)
	}
	if trade.Notes != "breakout" {
		t.Errorf("Notes = %q", trade.Notes)
	}
	if len(trade.Tags) != 2 || trade.Tags[0] != "swing" || trade.Tags[1] != "breakout" {
		t.Errorf("Tags = %v", trade.Tags)
	}
}

func TestValidate(t *testing.T) {
	valid := closedTrade(Long, 100, 120, 10, 50)

	tests := []struct {
		name    string
		mutate  func(*TradeRecord)
		wantErr bool
	}{
		{"valid", func(*TradeRecord) {}, false},
		{"empty symbol", func(tr *TradeRecord) { tr.Symbol = "" }, true},
		{"long symbol", func(tr *TradeRecord) { tr.Symbol = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" }, true},
		{"bad exchange", func(tr *TradeRecord) { tr.Exchange = "NYSE" }, true},
		{"bad trade type", func(tr *TradeRecord) { tr.TradeType = "sideways" }, true},
		{"negative entry", func(tr *TradeRecord) { tr.EntryPrice = -1 }, true},
		{"negative exit", func(tr *TradeRecord) { tr.ExitPrice = ptr(-1.0) }, true},
		{"zero quantity", func(tr *TradeRecord) { tr.Quantity = 0 }, true},
		{"missing entry date", func(tr *TradeRecord) { tr.EntryDate = time.Time{} }, true},
		{"exit before entry", func(tr *TradeRecord) { tr.ExitDate = ptr(tr.EntryDate.Add(-time.Hour)) }, true},
		{"negative fees", func(tr *TradeRecord) { tr.Fees = -5 }, true},
		{"bad emotion", func(tr *TradeRecord) { tr.Emotion = "joy" }, true},
		{"unset emotion", func(tr *TradeRecord) { tr.Emotion = EmotionUnset }, false},
		{"symbol charset", func(tr *TradeRecord) { tr.Symbol = "INFY;--" }, true},
		{"ampersand symbol", func(tr *TradeRecord) { tr.Symbol = "M&M" }, false},
		{"oversized notes", func(tr *TradeRecord) { tr.Notes = strings.Repeat("x", 5001) }, true},
		{"notes at limit", func(tr *TradeRecord) { tr.Notes = strings.Repeat("x", 5000) }, false},
		{"quantity over a crore", func(tr *TradeRecord) { tr.Quantity = 10_000_001 }, true},
		{"oversized tag", func(tr *TradeRecord) { tr.Tags = []string{strings.Repeat("t", 51)} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := valid
			tt.mutate(&trade)
			err := trade.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.Is(err, apperrors.ErrValidation) {
				t.Errorf("error %v does not match ErrValidation", err)
			}
		})
	}
}

func TestEnumDecodingRejectsUnknownValues(t *testing.T) {
	var rec struct {
		Exchange  Exchange  `json:"exchange"`
		TradeType TradeType `json:"tradeType"`
		Emotion   Emotion   `json:"emotion"`
	}

	if err := json.Unmarshal([]byte(`{"exchange":"bse","tradeType":"SHORT","emotion":"Calm"}`), &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Exchange != BSE || rec.TradeType != Short || rec.Emotion != EmotionCalm {
		t.Errorf("decoded %+v", rec)
	}

	for _, body := range []string{
		`{"exchange":"NYSE"}`,
		`{"tradeType":"hold"}`,
		`{"emotion":"joy"}`,
	} {
		if err := json.Unmarshal([]byte(body), &rec); err == nil {
			t.Errorf("expected error decoding %s", body)
		}
	}
}

func TestTradePatchApply(t *testing.T) {
	base := closedTrade(Long, 100, 120, 10, 50)
	base.ExitPrice = nil
	base.ExitDate = nil

	exitDate := base.EntryDate.Add(48 * time.Hour)
	patch := TradePatch{
		ExitPrice: ptr(130.0),
		ExitDate:  &exitDate,
		Tags:      []string{"momentum"},
	}

	got := ApplyPnLRule(patch.Apply(base))
	if got.ProfitLoss != 250 {
		t.Errorf("ProfitLoss = %v, want 250", got.ProfitLoss)
	}
	if got.Status != StatusClosed {
		t.Errorf("Status = %v, want closed", got.Status)
	}
	if base.ExitPrice != nil {
		t.Error("patch mutated the original record")
	}
}

func TestTradePatchClearExitReopens(t *testing.T) {
	closed := ApplyPnLRule(closedTrade(Long, 100, 120, 10, 50))
	if closed.Status != StatusClosed {
		t.Fatalf("setup: Status = %v", closed.Status)
	}

	got := ApplyPnLRule(TradePatch{ClearExitPrice: true, ClearExitDate: true}.Apply(closed))
	if got.ExitPrice != nil || got.ExitDate != nil {
		t.Errorf("exit not cleared: price=%v date=%v", got.ExitPrice, got.ExitDate)
	}
	if got.Status != StatusOpen || got.ProfitLoss != 0 {
		t.Errorf("Status = %v, ProfitLoss = %v, want open with 0", got.Status, got.ProfitLoss)
	}

	// A value wins over the clear flag.
	got = TradePatch{ExitPrice: ptr(130.0), ClearExitPrice: true}.Apply(closed)
	if got.ExitPrice == nil || *got.ExitPrice != 130 {
		t.Errorf("ExitPrice = %v, want 130", got.ExitPrice)
	}
	if closed.ExitPrice == nil {
		t.Error("patch mutated the original record")
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-05-01", "2024-05-01T10:30:00Z", "2024-05-01T10:30:00"} {
		if _, err := ParseDate("entryDate", s); err != nil {
			t.Errorf("ParseDate(%q) error: %v", s, err)
		}
	}
	if _, err := ParseDate("entryDate", "01/05/2024"); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRound(t *testing.T) {
	if got := Round2(1.005); got != 1.01 {
		t.Errorf("Round2(1.005) = %v", got)
	}
	if got := Round(-2.345, 1); got != -2.3 {
		t.Errorf("Round(-2.345, 1) = %v", got)
	}
	if got := Round2(math.Inf(1)); !math.IsInf(got, 1) {
		t.Errorf("Round2(+Inf) = %v", got)
	}
}
