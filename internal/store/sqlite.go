// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath and migrates it.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := NewSQLiteStoreFromDB(db)
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLiteStoreFromDB wraps an already opened handle without touching the schema.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Accounts
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	-- Bearer tokens issued at login
	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- Journaled trades
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		trade_type TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL,
		quantity INTEGER NOT NULL,
		entry_date DATETIME NOT NULL,
		exit_date DATETIME,
		fees REAL NOT NULL DEFAULT 0,
		profit_loss REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		emotion TEXT NOT NULL DEFAULT '',
		ai_analysis TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_user_entry ON trades(user_id, entry_date DESC);
	CREATE INDEX IF NOT EXISTS idx_trades_user_symbol ON trades(user_id, symbol);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const tradeColumns = "id, user_id, symbol, exchange, trade_type, entry_price, exit_price, quantity, entry_date, exit_date, fees, profit_loss, status, notes, tags, emotion, ai_analysis, created_at, updated_at"

// prepareTrade runs the write-path pipeline shared by create and update.
func prepareTrade(t models.TradeRecord) (models.TradeRecord, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, err
	}
	t.EntryDate = t.EntryDate.UTC()
	if t.ExitDate != nil {
		d := t.ExitDate.UTC()
		t.ExitDate = &d
	}
	return models.ApplyPnLRule(t), nil
}

// CreateTrade validates, prices and inserts a new trade.
func (s *SQLiteStore) CreateTrade(ctx context.Context, trade models.TradeRecord) (*models.TradeRecord, error) {
	if trade.Owner == "" {
		return nil, apperrors.NewValidationError("user", "", "owner is required")
	}
	t, err := prepareTrade(trade)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Owner, t.Symbol, string(t.Exchange), string(t.TradeType), t.EntryPrice, nullFloat(t.ExitPrice), t.Quantity,
		t.EntryDate, nullTime(t.ExitDate), t.Fees, t.ProfitLoss, string(t.Status), t.Notes, string(tags), string(t.Emotion),
		t.AIAnalysis, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}
	return &t, nil
}

// UpdateTrade rewrites every mutable column of an existing trade owned by trade.Owner.
func (s *SQLiteStore) UpdateTrade(ctx context.Context, trade models.TradeRecord) (*models.TradeRecord, error) {
	t, err := prepareTrade(trade)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now()

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE trades SET symbol = ?, exchange = ?, trade_type = ?, entry_price = ?, exit_price = ?, quantity = ?,
			entry_date = ?, exit_date = ?, fees = ?, profit_loss = ?, status = ?, notes = ?, tags = ?, emotion = ?,
			ai_analysis = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, t.Symbol, string(t.Exchange), string(t.TradeType), t.EntryPrice, nullFloat(t.ExitPrice), t.Quantity,
		t.EntryDate, nullTime(t.ExitDate), t.Fees, t.ProfitLoss, string(t.Status), t.Notes, string(tags), string(t.Emotion),
		t.AIAnalysis, t.UpdatedAt, t.ID, t.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}
	if err := expectOneRow(result, "trade", t.ID); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTrade removes a trade owned by owner.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE id = ? AND user_id = ?", id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	return expectOneRow(result, "trade", id)
}

// SaveAIAnalysis caches summarizer output on the trade without touching P&L fields.
func (s *SQLiteStore) SaveAIAnalysis(ctx context.Context, owner, id, analysis string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"UPDATE trades SET ai_analysis = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		analysis, s.now(), id, owner)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return expectOneRow(result, "trade", id)
}

// GetTrade retrieves a single trade owned by owner.
func (s *SQLiteStore) GetTrade(ctx context.Context, owner, id string) (*models.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ? AND user_id = ?", id, owner)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "trade %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// ListTrades returns owner's trades matching filter, newest entry first.
func (s *SQLiteStore) ListTrades(ctx context.Context, owner string, filter TradeFilter) ([]models.TradeRecord, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE user_id = ?"
	args := []interface{}{owner}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, strings.ToUpper(strings.TrimSpace(filter.Symbol)))
	}
	if filter.Exchange != "" {
		query += " AND exchange = ?"
		args = append(args, string(filter.Exchange))
	}
	if !filter.From.IsZero() {
		query += " AND entry_date >= ?"
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query += " AND entry_date <= ?"
		args = append(args, filter.To.UTC())
	}

	query += " ORDER BY entry_date DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]models.TradeRecord, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}

	return trades, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*models.TradeRecord, error) {
	var (
		t                           models.TradeRecord
		exchange, tradeType, status string
		emotion, tagsJSON           string
		exitPrice                   sql.NullFloat64
		exitDate                    sql.NullTime
	)

	if err := row.Scan(&t.ID, &t.Owner, &t.Symbol, &exchange, &tradeType, &t.EntryPrice, &exitPrice, &t.Quantity,
		&t.EntryDate, &exitDate, &t.Fees, &t.ProfitLoss, &status, &t.Notes, &tagsJSON, &emotion, &t.AIAnalysis,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}

	t.Exchange = models.Exchange(exchange)
	t.TradeType = models.TradeType(tradeType)
	t.Status = models.TradeStatus(status)
	t.Emotion = models.Emotion(emotion)
	t.EntryDate = t.EntryDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if exitPrice.Valid {
		v := exitPrice.Float64
		t.ExitPrice = &v
	}
	if exitDate.Valid {
		v := exitDate.Time.UTC()
		t.ExitDate = &v
	}
	if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil || t.Tags == nil {
		t.Tags = []string{}
	}
	return &t, nil
}

// CreateUser inserts a new account. A duplicate email is a conflict.
func (s *SQLiteStore) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	user.ID = uuid.NewString()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Name = strings.TrimSpace(user.Name)
	user.CreatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Wrapf(apperrors.ErrConflict, "user with email %s already exists", user.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail looks up an account by its (case-insensitive) email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByID looks up an account by id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE "+column+" = ?", value,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "user %s", value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// CreateSession stores an issued token.
func (s *SQLiteStore) CreateSession(ctx context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.Token, session.UserID, session.CreatedAt.UTC(), session.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession resolves a token. Expiry is left to the caller.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess models.Session
	err := s.db.QueryRowContext(ctx,
		"SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&sess.Token, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &sess, nil
}

// DeleteSession revokes a token. Unknown tokens are ignored.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions that expired at or before now.
func (s *SQLiteStore) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}

func expectOneRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "%s %s", kind, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if apperrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}
