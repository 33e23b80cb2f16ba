package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// Account events
	AuditRegister   AuditEventType = "REGISTER"
	AuditLogin      AuditEventType = "LOGIN"
	AuditLogout     AuditEventType = "LOGOUT"
	AuditAuthFailed AuditEventType = "AUTH_FAILED"

	// Journal events
	AuditTradeCreated  AuditEventType = "TRADE_CREATED"
	AuditTradeUpdated  AuditEventType = "TRADE_UPDATED"
	AuditTradeDeleted  AuditEventType = "TRADE_DELETED"
	AuditTradeAnalyzed AuditEventType = "TRADE_ANALYZED"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType AuditEventType         `json:"event_type"`
	UserID    string                 `json:"user_id,omitempty"`
	Email     string                 `json:"email,omitempty"`
	TradeID   string                 `json:"trade_id,omitempty"`
	Symbol    string                 `json:"symbol,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// AuditLogger appends JSON lines describing account and journal changes.
type AuditLogger struct {
	writer io.WriteCloser
	mu     sync.Mutex
	now    func() time.Time
}

// AuditConfig holds audit logger configuration.
type AuditConfig struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultAuditConfig keeps a year of compressed audit logs under dir.
func DefaultAuditConfig(dir string) AuditConfig {
	return AuditConfig{
		LogDir:     dir,
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
		Compress:   true,
	}
}

// NewAuditLogger creates a rotating audit logger writing to LogDir/audit.log.
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	return NewAuditLoggerWithWriter(&lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}), nil
}

// NewAuditLoggerWithWriter writes audit events to w.
func NewAuditLoggerWithWriter(w io.WriteCloser) *AuditLogger {
	return &AuditLogger{writer: w, now: time.Now}
}

// Log writes event. A nil logger discards it.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if al == nil {
		return nil
	}
	al.mu.Lock()
	defer al.mu.Unlock()

	event.Timestamp = al.now().UTC()
	if event.RequestID == "" {
		event.RequestID = middleware.GetReqID(ctx)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}
	if _, err := al.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// LogTrade records a change to a journaled trade.
func (al *AuditLogger) LogTrade(ctx context.Context, eventType AuditEventType, userID, tradeID, symbol string) error {
	return al.Log(ctx, AuditEvent{
		EventType: eventType,
		UserID:    userID,
		TradeID:   tradeID,
		Symbol:    symbol,
		Success:   true,
	})
}

// Close closes the audit logger.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	return al.writer.Close()
}
