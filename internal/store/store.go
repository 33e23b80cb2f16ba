// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trade-journal/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	TradeStore
	UserStore
	SessionStore

	// Lifecycle
	Close() error
}

// TradeStore persists journaled trades. Every write recomputes profit/loss
// and status through models.ApplyPnLRule before it reaches the database.
type TradeStore interface {
	ListTrades(ctx context.Context, owner string, filter TradeFilter) ([]models.TradeRecord, error)
	GetTrade(ctx context.Context, owner, id string) (*models.TradeRecord, error)
	CreateTrade(ctx context.Context, trade models.TradeRecord) (*models.TradeRecord, error)
	UpdateTrade(ctx context.Context, trade models.TradeRecord) (*models.TradeRecord, error)
	DeleteTrade(ctx context.Context, owner, id string) error
	SaveAIAnalysis(ctx context.Context, owner, id, analysis string) error
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// SessionStore persists bearer tokens.
type SessionStore interface {
	CreateSession(ctx context.Context, session models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// TradeFilter represents filters for querying trades. Zero values match everything.
type TradeFilter struct {
	Status   models.TradeStatus
	Symbol   string
	Exchange models.Exchange
	From     time.Time
	To       time.Time
	Limit    int
}
