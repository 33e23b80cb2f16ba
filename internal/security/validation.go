// Package security validates user-supplied journal input before it reaches
// the store or an upstream market-data request.
package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "trade-journal/internal/errors"
)

// Input limits.
const (
	MaxSymbolLength = 20
	MaxQuantity     = 10_000_000    // 1 crore shares
	MaxPrice        = 1_000_000_000 // ₹100 crore
	MaxNotesLength  = 5000
	MaxTagLength    = 50
	MaxTags         = 20
)

var (
	// NSE/BSE tickers: uppercase letters, digits, & and - (M&M, BAJAJ-AUTO).
	symbolPattern = regexp.MustCompile(`^[A-Z0-9&-]{1,20}$`)

	sqlInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(union\s+select|select\s+\*|drop\s+table|insert\s+into|delete\s+from|update\s+\S+\s+set)`),
		regexp.MustCompile(`--|;|\x00`),
		regexp.MustCompile(`(?i)('\s*or\s+'?1'?\s*=\s*'?1|\bor\s+1\s*=\s*1|\band\s+1\s*=\s*1)`),
	}

	cmdInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile("[|$`]"),
		regexp.MustCompile(`(?i)(rm\s+-rf|\bwget\s|\bcurl\s|\bsh\s+-c|\beval\(|\bexec\()`),
	}
)

// InputValidator checks journal input. In strict mode free text is also
// screened for SQL and shell injection patterns.
type InputValidator struct {
	strictMode bool
}

// NewInputValidator creates a validator.
func NewInputValidator(strictMode bool) *InputValidator {
	return &InputValidator{strictMode: strictMode}
}

// Default is the validator used for trade records and market symbols.
// Notes are prose, so it is not strict.
var Default = NewInputValidator(false)

// ValidateSymbol checks an already upper-cased ticker.
func (v *InputValidator) ValidateSymbol(symbol string) error {
	switch {
	case symbol == "":
		return apperrors.NewValidationError("symbol", symbol, "Stock symbol is required")
	case len(symbol) > MaxSymbolLength:
		return apperrors.NewValidationError("symbol", symbol, fmt.Sprintf("must be at most %d characters", MaxSymbolLength))
	case !symbolPattern.MatchString(symbol):
		return apperrors.NewValidationError("symbol", symbol, "may only contain A-Z, 0-9, & and -")
	case containsAny(symbol, sqlInjectionPatterns):
		return apperrors.NewValidationError("symbol", symbol, "invalid characters detected")
	}
	return nil
}

// ValidateQuantity checks a share count.
func (v *InputValidator) ValidateQuantity(field string, qty int64) error {
	if qty < 1 {
		return apperrors.NewValidationError(field, qty, "must be at least 1")
	}
	if qty > MaxQuantity {
		return apperrors.NewValidationError(field, qty, "exceeds maximum allowed")
	}
	return nil
}

// ValidatePrice checks a rupee amount.
func (v *InputValidator) ValidatePrice(field string, price float64) error {
	if price < 0 {
		return apperrors.NewValidationError(field, price, "must be a positive number")
	}
	if price > MaxPrice {
		return apperrors.NewValidationError(field, price, "exceeds maximum allowed")
	}
	return nil
}

// ValidateText checks free-form text against maxLen runes.
func (v *InputValidator) ValidateText(field, text string, maxLen int) error {
	if n := utf8.RuneCountInString(text); n > maxLen {
		return apperrors.NewValidationError(field, preview(text), fmt.Sprintf("too long (%d characters, max %d)", n, maxLen))
	}
	if v.strictMode && (containsAny(text, sqlInjectionPatterns) || containsAny(text, cmdInjectionPatterns)) {
		return apperrors.NewValidationError(field, preview(text), "potentially dangerous content detected")
	}
	return nil
}

// ValidateTags checks the tag count and each tag's length.
func (v *InputValidator) ValidateTags(tags []string) error {
	if len(tags) > MaxTags {
		return apperrors.NewValidationError("tags", len(tags), fmt.Sprintf("at most %d tags allowed", MaxTags))
	}
	for _, tag := range tags {
		if err := v.ValidateText("tags", tag, MaxTagLength); err != nil {
			return err
		}
	}
	return nil
}

// SanitizeText drops control characters other than newline and tab.
func SanitizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsAny(input string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(input) {
			return true
		}
	}
	return false
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= 50 {
		return text
	}
	return string([]rune(text)[:50]) + "..."
}
