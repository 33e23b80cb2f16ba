// Package auth handles journal accounts, bearer sessions and the audit trail.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-journal/internal/config"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// RegisterInput is the signup payload.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the signup fields.
func (in RegisterInput) Validate() error {
	var errs apperrors.ValidationErrors
	if !validEmail(in.Email) {
		errs = append(errs, apperrors.NewValidationError("email", in.Email, "Please enter a valid email address"))
	}
	if len(in.Password) < MinPasswordLength {
		errs = append(errs, apperrors.NewValidationError("password", nil, "Password must be at least 6 characters long"))
	}
	if name := strings.TrimSpace(in.Name); name != "" && len([]rune(name)) < 2 {
		errs = append(errs, apperrors.NewValidationError("name", in.Name, "Name must be at least 2 characters long"))
	}
	return errs.OrNil()
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login fields.
func (in LoginInput) Validate() error {
	var errs apperrors.ValidationErrors
	if !validEmail(in.Email) {
		errs = append(errs, apperrors.NewValidationError("email", in.Email, "Please enter a valid email address"))
	}
	if in.Password == "" {
		errs = append(errs, apperrors.NewValidationError("password", nil, "Password is required"))
	}
	return errs.OrNil()
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

// Result is returned by Register and Login.
type Result struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Service issues and verifies sessions.
type Service struct {
	users    store.UserStore
	sessions store.SessionStore
	cfg      config.AuthConfig
	audit    *AuditLogger
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates the account service. audit may be nil.
func NewService(users store.UserStore, sessions store.SessionStore, cfg config.AuthConfig, audit *AuditLogger, logger zerolog.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	return &Service{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		audit:    audit,
		logger:   logger.With().Str("component", "auth").Logger(),
		now:      time.Now,
	}
}

// Audit returns the audit logger, which may be nil.
func (s *Service) Audit() *AuditLogger {
	return s.audit
}

// Register creates an account and signs it in. The name defaults to the
// local part of the email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	user, err := s.users.CreateUser(ctx, models.User{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Wrap(apperrors.ErrConflict, "User with this email already exists")
		}
		return nil, err
	}

	_ = s.audit.Log(ctx, AuditEvent{EventType: AuditRegister, UserID: user.ID, Email: user.Email, Success: true})
	s.logger.Info().Str("user_id", user.ID).Msg("User registered")

	return s.issue(ctx, user)
}

// Login verifies credentials and issues a new session. Unknown emails and
// wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if user == nil || !CheckPassword(user.PasswordHash, in.Password) {
		_ = s.audit.Log(ctx, AuditEvent{EventType: AuditLogin, Email: strings.ToLower(strings.TrimSpace(in.Email)), Success: false, ErrorMsg: "invalid credentials"})
		return nil, apperrors.Wrap(apperrors.ErrInvalidCredentials, "Invalid email or password")
	}

	_ = s.audit.Log(ctx, AuditEvent{EventType: AuditLogin, UserID: user.ID, Email: user.Email, Success: true})
	return s.issue(ctx, user)
}

func (s *Service) issue(ctx context.Context, user *models.User) (*Result, error) {
	now := s.now()
	session := models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return &Result{User: user, Token: session.Token, ExpiresAt: session.ExpiresAt}, nil
}

// Authenticate resolves a bearer token to its user id. Missing, unknown and
// expired tokens are ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperrors.Wrap(apperrors.ErrUnauthorized, "No token provided")
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Wrap(apperrors.ErrUnauthorized, "Invalid or expired token")
		}
		return "", err
	}
	if session.Expired(s.now()) {
		_ = s.sessions.DeleteSession(ctx, token)
		return "", apperrors.Wrap(apperrors.ErrUnauthorized, "Invalid or expired token")
	}
	return session.UserID, nil
}

// Me returns the account for userID.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes token.
func (s *Service) Logout(ctx context.Context, userID, token string) error {
	if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	_ = s.audit.Log(ctx, AuditEvent{EventType: AuditLogout, UserID: userID, Success: true})
	return nil
}

// PurgeExpired drops sessions that expired before now.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.PurgeExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug().Int64("purged", n).Msg("Expired sessions removed")
	}
	return n, nil
}
