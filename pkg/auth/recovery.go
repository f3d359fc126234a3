package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniserve/uniserve/pkg/jwt"
	"github.com/uniserve/uniserve/pkg/logger"
	"github.com/uniserve/uniserve/pkg/otp"
	"github.com/uniserve/uniserve/pkg/sanitizer"
	"github.com/uniserve/uniserve/pkg/validator"
)

// resetCodeTTL matches the reset_password token lifetime: both variants of
// the reset secret live for 30 minutes.
const resetCodeTTL = 30 * time.Minute

// RecoveryService issues and redeems the single-use secrets for email
// verification and password reset. Verification uses a signed verify_email
// token mirrored on the user record; reset uses a short numeric one-time
// code with its own stored expiry. Either way the stored value is cleared
// on success, so a consumed secret can never validate twice.
type RecoveryService struct {
	store    UserStore
	tokens   *jwt.Service
	notifier Notifier
	sessions SessionRevoker
	bcrypt   int
	strength validator.PasswordStrengthConfig
	logger   *slog.Logger
	now      func() time.Time
}

// RecoveryOption configures the service during construction.
type RecoveryOption func(*RecoveryService)

// WithRecoveryLogger sets a custom logger.
func WithRecoveryLogger(l *slog.Logger) RecoveryOption {
	return func(s *RecoveryService) {
		s.logger = l
	}
}

// WithRecoveryBcryptCost sets the bcrypt cost used for the new password hash.
func WithRecoveryBcryptCost(cost int) RecoveryOption {
	return func(s *RecoveryService) {
		s.bcrypt = cost
	}
}

// WithRecoveryPasswordStrength sets custom password strength requirements.
func WithRecoveryPasswordStrength(cfg validator.PasswordStrengthConfig) RecoveryOption {
	return func(s *RecoveryService) {
		s.strength = cfg
	}
}

// withRecoveryClock overrides the time source in tests.
func withRecoveryClock(now func() time.Time) RecoveryOption {
	return func(s *RecoveryService) {
		s.now = now
	}
}

// NewRecoveryService creates the credential recovery service.
func NewRecoveryService(store UserStore, tokens *jwt.Service, notifier Notifier, sessions SessionRevoker, opts ...RecoveryOption) *RecoveryService {
	s := &RecoveryService{
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		sessions: sessions,
		bcrypt:   bcrypt.DefaultCost,
		strength: validator.PasswordStrengthConfig{
			MinLength:      8,
			MaxLength:      128,
			MinCharClasses: 2,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestVerification stores a fresh verify_email token on the account and
// dispatches it. An already verified account is rejected. A dispatch
// failure keeps the stored token; the user retries the request.
func (s *RecoveryService) RequestVerification(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return ErrUserNotFound
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	token, err := s.tokens.Issue(ctx, user.ID.String(), nil, jwt.PurposeVerifyEmail)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	expiresAt := s.now().Add(24 * time.Hour)
	if _, err := s.store.Mutate(ctx, user.ID, func(u *User) error {
		u.VerificationToken = token
		u.VerificationTokenExpiresAt = &expiresAt
		return nil
	}); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	if err := s.notifier.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.logger.Error("failed to dispatch verification email",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("recovery"),
		)
	}
	return nil
}

// ConfirmVerification redeems a verification token. The signed claims and
// the stored copy must both check out; the stored copy is cleared inside
// the same record update, which is what makes the token single-use.
func (s *RecoveryService) ConfirmVerification(ctx context.Context, token string) error {
	claims := s.tokens.ParseAndVerify(token, jwt.PurposeVerifyEmail)
	if claims == nil {
		return ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ErrTokenInvalid
	}

	now := s.now()
	_, err = s.store.Mutate(ctx, userID, func(u *User) error {
		if u.VerificationToken == "" || u.VerificationToken != token {
			return ErrTokenInvalid
		}
		if u.VerificationTokenExpiresAt != nil && now.After(*u.VerificationTokenExpiresAt) {
			return ErrTokenExpired
		}
		u.IsVerified = true
		u.VerificationToken = ""
		u.VerificationTokenExpiresAt = nil
		return nil
	})
	if errors.Is(err, ErrUserNotFound) {
		return ErrTokenInvalid
	}
	return err
}

// RequestReset stores a one-time numeric code with a 30-minute expiry and
// dispatches it. Unknown emails are acknowledged silently to prevent
// enumeration; locked and unverified accounts are surfaced because the
// caller cannot proceed either way.
func (s *RecoveryService) RequestReset(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	now := s.now()

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	changed, stateErr := CheckLoginAllowed(user, now)
	if changed {
		if _, err := s.store.Mutate(ctx, user.ID, func(u *User) error {
			_, _ = CheckLoginAllowed(u, now)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to persist auto-unlock: %w", err)
		}
	}
	if stateErr != nil {
		if errors.Is(stateErr, ErrAccountUnverified) {
			return ErrAccountDisabled
		}
		return stateErr
	}

	code, err := otp.GenerateCode(otp.DefaultDigits)
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}

	expiresAt := now.Add(resetCodeTTL)
	if _, err := s.store.Mutate(ctx, user.ID, func(u *User) error {
		u.ResetCode = code
		u.ResetCodeExpiresAt = &expiresAt
		return nil
	}); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	if err := s.notifier.SendPasswordResetCode(ctx, user.Email, code); err != nil {
		s.logger.Error("failed to dispatch reset code",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("recovery"),
		)
	}
	return nil
}

// ConfirmReset redeems a reset code and installs the new password. The code
// is cleared in the same update that writes the hash, and every existing
// session is revoked afterwards so a credential change always ends other
// holders of the account.
func (s *RecoveryService) ConfirmReset(ctx context.Context, code, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if err := validator.Apply(
		validator.StrongPassword("password", newPassword, s.strength),
		validator.NotCommonPassword("password", newPassword),
	); err != nil {
		return err
	}

	user, err := s.store.GetByResetCode(ctx, code)
	if err != nil {
		return ErrTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcrypt)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	if _, err := s.store.Mutate(ctx, user.ID, func(u *User) error {
		if !otp.Match(u.ResetCode, code) {
			return ErrTokenInvalid
		}
		if u.ResetCodeExpiresAt == nil || now.After(*u.ResetCodeExpiresAt) {
			return ErrTokenExpired
		}
		u.PasswordHash = hash
		u.ResetCode = ""
		u.ResetCodeExpiresAt = nil
		return nil
	}); err != nil {
		return err
	}

	if err := s.sessions.Revoke(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions after reset: %w", err)
	}
	return nil
}
