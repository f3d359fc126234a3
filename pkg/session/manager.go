package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/uniserve/uniserve/pkg/auth"
	"github.com/uniserve/uniserve/pkg/jwt"
	"github.com/uniserve/uniserve/pkg/logger"
)

// TokenPair is the result of starting a session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Manager enforces the single-active-session invariant: one refresh token
// id per user, stored on the record, overwritten on every login.
type Manager struct {
	tokens *jwt.Service
	store  auth.UserStore
	logger *slog.Logger
	now    func() time.Time
}

// Ensure Manager satisfies the issuer's recorder hook.
var _ jwt.SessionRecorder = (*Manager)(nil)

// Option configures a Manager during construction.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a session manager and registers it as the token service's
// session recorder, so every refresh issuance lands on the user record.
func New(tokens *jwt.Service, store auth.UserStore, opts ...Option) *Manager {
	m := &Manager{
		tokens: tokens,
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	tokens.SetSessionRecorder(m)
	return m
}

// Start issues a fresh access/refresh pair. Recording the new refresh token
// id overwrites the previous one, which is how the old session dies: its
// token id no longer matches the record, even though its signature and
// embedded expiry are still technically valid.
func (m *Manager) Start(ctx context.Context, user *auth.User) (*TokenPair, error) {
	accessToken, err := m.tokens.Issue(ctx, user.ID.String(), user.Roles, jwt.PurposeAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := m.tokens.Issue(ctx, user.ID.String(), user.Roles, jwt.PurposeRefresh)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RecordRefresh persists the newly issued refresh token id and expiry as
// the subject's single active session. Called by the token issuer.
func (m *Manager) RecordRefresh(ctx context.Context, subject, tokenID string, expiresAt time.Time) error {
	userID, err := uuid.Parse(subject)
	if err != nil {
		return fmt.Errorf("invalid session subject: %w", err)
	}

	_, err = m.store.Mutate(ctx, userID, func(u *auth.User) error {
		u.RefreshTokenID = tokenID
		u.RefreshTokenExpiresAt = &expiresAt
		return nil
	})
	return err
}

// Refresh trades a valid refresh token for a new access token. The signed
// claims alone are not enough: the claimed token id must also match the
// stored record and the stored expiry must not have passed, because only
// the record reflects server-side revocation. The refresh token itself is
// not rotated here; rotation happens on login.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims := m.tokens.ParseAndVerify(refreshToken, jwt.PurposeRefresh)
	if claims == nil {
		return "", auth.ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", auth.ErrTokenInvalid
	}

	user, err := m.store.GetByID(ctx, userID)
	if err != nil {
		return "", auth.ErrTokenInvalid
	}

	if user.RefreshTokenID == "" || user.RefreshTokenID != claims.ID {
		return "", auth.ErrTokenInvalid
	}
	if user.RefreshTokenExpiresAt == nil || m.now().After(*user.RefreshTokenExpiresAt) {
		return "", auth.ErrTokenExpired
	}

	accessToken, err := m.tokens.Issue(ctx, user.ID.String(), user.Roles, jwt.PurposeAccess)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return accessToken, nil
}

// Revoke clears the stored refresh token, permanently invalidating every
// previously issued refresh token for the user. This is the only way a
// signed, unexpired token becomes unusable; logout and password reset both
// end up here.
func (m *Manager) Revoke(ctx context.Context, userID uuid.UUID) error {
	_, err := m.store.Mutate(ctx, userID, func(u *auth.User) error {
		u.RefreshTokenID = ""
		u.RefreshTokenExpiresAt = nil
		return nil
	})
	return err
}

// Logout revokes the session named by the presented refresh token. A token
// that no longer matches the stored id is treated as already logged out
// rather than an error, so repeated logouts are idempotent.
func (m *Manager) Logout(ctx context.Context, refreshToken string) error {
	claims := m.tokens.ParseAndVerify(refreshToken, jwt.PurposeRefresh)
	if claims == nil {
		return auth.ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return auth.ErrTokenInvalid
	}

	_, err = m.store.Mutate(ctx, userID, func(u *auth.User) error {
		if u.RefreshTokenID != claims.ID {
			return nil
		}
		u.RefreshTokenID = ""
		u.RefreshTokenExpiresAt = nil
		return nil
	})
	if err != nil {
		m.logger.Error("failed to clear session on logout",
			logger.UserID(userID.String()),
			logger.Error(err),
			logger.Component("session"),
		)
		return err
	}
	return nil
}
