package marketdata

import (
	"time"
)

// IndiaLocation is the exchange timezone for NSE and BSE.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Session is the NSE/BSE equity trading phase at some instant.
type Session string

const (
	SessionPreOpen   Session = "pre_open"
	SessionOpen      Session = "open"
	SessionPostClose Session = "post_close"
	SessionClosed    Session = "closed"
)

// Session boundaries in minutes after midnight IST.
const (
	preOpenStart   = 9*60 + 0
	normalStart    = 9*60 + 15
	normalEnd      = 15*60 + 30
	postCloseStart = 15*60 + 40
	postCloseEnd   = 16 * 60
)

// MarketStatus describes the trading session for the quote and health views.
type MarketStatus struct {
	Session  Session   `json:"session"`
	Open     bool      `json:"open"`
	NextOpen time.Time `json:"nextOpen"`
}

// Calendar knows the exchange trading hours and holidays.
type Calendar struct {
	holidays map[string]bool
}

// NewCalendar creates a calendar. Holidays are YYYY-MM-DD dates in IST;
// malformed entries are returned as invalid.
func NewCalendar(holidays []string) (*Calendar, []string) {
	c := &Calendar{holidays: make(map[string]bool, len(holidays))}
	var invalid []string
	for _, h := range holidays {
		d, err := time.ParseInLocation("2006-01-02", h, IndiaLocation)
		if err != nil {
			invalid = append(invalid, h)
			continue
		}
		c.holidays[d.Format("2006-01-02")] = true
	}
	return c, invalid
}

// IsTradingDay reports whether t falls on a weekday that is not a holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(IndiaLocation)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !c.holidays[t.Format("2006-01-02")]
}

// SessionAt returns the session in progress at t.
func (c *Calendar) SessionAt(t time.Time) Session {
	if !c.IsTradingDay(t) {
		return SessionClosed
	}
	t = t.In(IndiaLocation)
	minutes := t.Hour()*60 + t.Minute()

	switch {
	case minutes >= preOpenStart && minutes < normalStart:
		return SessionPreOpen
	case minutes >= normalStart && minutes < normalEnd:
		return SessionOpen
	case minutes >= postCloseStart && minutes < postCloseEnd:
		return SessionPostClose
	default:
		return SessionClosed
	}
}

// NextOpen returns the start of the next normal session strictly after t.
func (c *Calendar) NextOpen(t time.Time) time.Time {
	t = t.In(IndiaLocation)
	day := time.Date(t.Year(), t.Month(), t.Day(), 9, 15, 0, 0, IndiaLocation)
	if !day.After(t) {
		day = day.AddDate(0, 0, 1)
	}
	for !c.IsTradingDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// StatusAt summarizes the session at t.
func (c *Calendar) StatusAt(t time.Time) MarketStatus {
	s := c.SessionAt(t)
	return MarketStatus{Session: s, Open: s == SessionOpen, NextOpen: c.NextOpen(t)}
}
