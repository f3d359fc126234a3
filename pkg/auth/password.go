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

	"github.com/uniserve/uniserve/pkg/logger"
	"github.com/uniserve/uniserve/pkg/sanitizer"
	"github.com/uniserve/uniserve/pkg/validator"
)

// DefaultRole is assigned to every self-registered or federated account.
const DefaultRole = "student"

// PasswordService handles registration and password authentication. All
// account-state transitions go through the state machine in state.go and
// are persisted through the store's compare-and-swap Mutate, including the
// failed-attempt counter on rejected logins.
type PasswordService struct {
	store       UserStore
	profiles    ProfileStore
	defaultRole string
	bcryptCost  int
	strength    validator.PasswordStrengthConfig
	logger      *slog.Logger
	now         func() time.Time
}

// PasswordOption configures the service during construction.
type PasswordOption func(*PasswordService)

// WithPasswordLogger sets a custom logger.
func WithPasswordLogger(l *slog.Logger) PasswordOption {
	return func(s *PasswordService) {
		s.logger = l
	}
}

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) PasswordOption {
	return func(s *PasswordService) {
		s.bcryptCost = cost
	}
}

// WithDefaultRole overrides the role assigned to new accounts.
func WithDefaultRole(role string) PasswordOption {
	return func(s *PasswordService) {
		s.defaultRole = role
	}
}

// WithPasswordStrength sets custom password strength requirements.
func WithPasswordStrength(cfg validator.PasswordStrengthConfig) PasswordOption {
	return func(s *PasswordService) {
		s.strength = cfg
	}
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) PasswordOption {
	return func(s *PasswordService) {
		s.now = now
	}
}

// NewPasswordService creates a password authentication service.
func NewPasswordService(store UserStore, profiles ProfileStore, opts ...PasswordOption) *PasswordService {
	s := &PasswordService{
		store:       store,
		profiles:    profiles,
		defaultRole: DefaultRole,
		bcryptCost:  bcrypt.DefaultCost,
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

// Register creates an unverified account with the default role and its
// dependent student profile. The two writes are one failure-atomic unit
// from the caller's point of view: a profile failure removes the account.
func (s *PasswordService) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)

	if err := validator.Apply(
		validator.ValidEmail("email", email),
		validator.StrongPassword("password", password, s.strength),
		validator.NotCommonPassword("password", password),
	); err != nil {
		return nil, err
	}
	if s.defaultRole == "" {
		return nil, ErrRoleNotFound
	}

	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{s.defaultRole},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.profiles.CreateProfile(ctx, user.ID, displayName, ""); err != nil {
		if delErr := s.store.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("failed to cleanup user after profile create failure",
				logger.UserID(user.ID.String()),
				logger.Error(delErr),
				logger.Component("password"),
			)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return user, nil
}

// Authenticate verifies email and password against the account state
// machine. Lock and verification blocks are surfaced as typed errors; a
// wrong password is always the generic ErrInvalidCredentials and its
// counter increment is persisted before returning.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)
	now := s.now()

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	changed, stateErr := CheckLoginAllowed(user, now)
	if changed {
		// Persist the lazy auto-unlock so the cleared counter is visible to
		// every later operation, not just this request.
		user, err = s.store.Mutate(ctx, user.ID, func(u *User) error {
			_, _ = CheckLoginAllowed(u, now)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to persist auto-unlock: %w", err)
		}
	}
	if stateErr != nil {
		return nil, stateErr
	}

	if len(user.PasswordHash) == 0 ||
		bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		if _, mutErr := s.store.Mutate(ctx, user.ID, func(u *User) error {
			if locked := RecordFailure(u, now); locked {
				s.logger.Warn("account locked after repeated failures",
					logger.UserID(u.ID.String()),
					slog.Int("failed_attempts", u.FailedLoginAttempts),
					logger.Component("password"),
				)
			}
			return nil
		}); mutErr != nil {
			s.logger.Error("failed to persist failure counter",
				logger.UserID(user.ID.String()),
				logger.Error(mutErr),
				logger.Component("password"),
			)
		}
		return nil, ErrInvalidCredentials
	}

	user, err = s.store.Mutate(ctx, user.ID, func(u *User) error {
		RecordSuccess(u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist login success: %w", err)
	}

	return user, nil
}

// Lock applies an indefinite administrative lock to the account.
func (s *PasswordService) Lock(ctx context.Context, userID uuid.UUID) error {
	_, err := s.store.Mutate(ctx, userID, func(u *User) error {
		LockManually(u)
		return nil
	})
	return err
}

// Unlock lifts any lock and resets the failure counter.
func (s *PasswordService) Unlock(ctx context.Context, userID uuid.UUID) error {
	_, err := s.store.Mutate(ctx, userID, func(u *User) error {
		Unlock(u)
		return nil
	})
	return err
}
