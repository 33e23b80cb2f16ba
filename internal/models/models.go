// Package models provides domain models for the trading journal.
package models

import (
	"strings"
	"time"

	apperrors "trade-journal/internal/errors"
)

// Exchange represents an Indian stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
)

// Valid reports whether e is a supported exchange.
func (e Exchange) Valid() bool {
	return e == NSE || e == BSE
}

// ParseExchange parses an exchange code, defaulting to NSE when empty.
func ParseExchange(s string) (Exchange, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return NSE, nil
	}
	e := Exchange(s)
	if !e.Valid() {
		return "", apperrors.NewValidationError("exchange", s, "must be NSE or BSE")
	}
	return e, nil
}

// UnmarshalText rejects unknown exchanges during decoding.
func (e *Exchange) UnmarshalText(text []byte) error {
	parsed, err := ParseExchange(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// PriceBar represents daily OHLCV data.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Quote represents the current market snapshot of a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Exchange      Exchange  `json:"exchange"`
	Price         float64   `json:"currentPrice"`
	PreviousClose *float64  `json:"previousClose"`
	Open          *float64  `json:"open"`
	High          *float64  `json:"high"`
	Low           *float64  `json:"low"`
	Volume        *int64    `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// ClosePrices extracts closing prices from bars, oldest first.
func ClosePrices(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Instrument maps a broker instrument token to its trading symbol.
type Instrument struct {
	Token    uint32
	Symbol   string
	Name     string
	Exchange Exchange
}
