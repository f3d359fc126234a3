package auth

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/uniserve/uniserve/pkg/auth"
	"github.com/uniserve/uniserve/pkg/jwt"
	"github.com/uniserve/uniserve/pkg/session"
)

// Service is the application-facing facade over the auth domain packages.
// Handlers talk to this type only; the underlying services stay free of
// transport concerns.
type Service struct {
	passwords *auth.PasswordService
	recovery  *auth.RecoveryService
	onboarder *auth.Onboarder
	sessions  *session.Manager
	tokens    *jwt.Service
	log       *slog.Logger
}

// New assembles the facade from already-constructed domain services.
func New(
	passwords *auth.PasswordService,
	recovery *auth.RecoveryService,
	onboarder *auth.Onboarder,
	sessions *session.Manager,
	tokens *jwt.Service,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		passwords: passwords,
		recovery:  recovery,
		onboarder: onboarder,
		sessions:  sessions,
		tokens:    tokens,
		log:       log,
	}
}

// Register creates a password account and triggers the verification email.
// The account cannot log in until the address is confirmed.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (uuid.UUID, error) {
	user, err := s.passwords.Register(ctx, email, password, displayName)
	if err != nil {
		return uuid.Nil, err
	}
	// Verification dispatch is best effort; the user can re-request it.
	if err := s.recovery.RequestVerification(ctx, user.Email); err != nil {
		s.log.WarnContext(ctx, "verification request after registration failed",
			slog.String("user_id", user.ID.String()), slog.Any("error", err))
	}
	return user.ID, nil
}

// Login authenticates credentials and starts a fresh session, displacing any
// session the account already had.
func (s *Service) Login(ctx context.Context, email, password string) (*session.TokenPair, error) {
	user, err := s.passwords.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.sessions.Start(ctx, user)
}

// RefreshAccessToken exchanges a live refresh token for a new access token.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	return s.sessions.Refresh(ctx, refreshToken)
}

// Logout revokes the session the refresh token belongs to. Stale tokens are
// accepted silently so logout never fails client-side.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Logout(ctx, refreshToken)
}

// RevokeSessions force-revokes the user's active session, for admin use and
// post-reset cleanup.
func (s *Service) RevokeSessions(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.Revoke(ctx, userID)
}

// FederatedAuthURL returns the provider's consent URL with CSRF state attached.
func (s *Service) FederatedAuthURL(ctx context.Context, provider string) (string, error) {
	return s.onboarder.AuthURL(ctx, provider)
}

// FederatedResult is the outcome of a completed federated login.
type FederatedResult struct {
	UserID          uuid.UUID
	Tokens          *session.TokenPair
	ProfileComplete bool
}

// FederatedCallback completes the provider round-trip and starts a session
// for the resolved account.
func (s *Service) FederatedCallback(ctx context.Context, provider, code, state string) (*FederatedResult, error) {
	res, err := s.onboarder.Onboard(ctx, provider, code, state)
	if err != nil {
		return nil, err
	}
	pair, err := s.sessions.Start(ctx, res.User)
	if err != nil {
		return nil, err
	}
	return &FederatedResult{
		UserID:          res.User.ID,
		Tokens:          pair,
		ProfileComplete: res.ProfileComplete,
	}, nil
}

// RequestEmailVerification re-sends the verification link.
func (s *Service) RequestEmailVerification(ctx context.Context, email string) error {
	return s.recovery.RequestVerification(ctx, email)
}

// ConfirmEmailVerification consumes a verification token and marks the
// account verified.
func (s *Service) ConfirmEmailVerification(ctx context.Context, token string) error {
	return s.recovery.ConfirmVerification(ctx, token)
}

// RequestPasswordReset issues a one-time reset code to the account's email.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	return s.recovery.RequestReset(ctx, email)
}

// ConfirmPasswordReset consumes the reset code, sets the new password and
// revokes the account's session.
func (s *Service) ConfirmPasswordReset(ctx context.Context, code, newPassword, confirmPassword string) error {
	return s.recovery.ConfirmReset(ctx, code, newPassword, confirmPassword)
}

// VerifyBearerToken validates an access token and returns the calling
// principal. Any failure collapses to ErrUnauthenticated; callers get no
// hint about why a token was rejected.
func (s *Service) VerifyBearerToken(ctx context.Context, token string) (*Principal, error) {
	claims := s.tokens.ParseAndVerify(token, jwt.PurposeAccess)
	if claims == nil {
		return nil, ErrUnauthenticated
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return &Principal{UserID: userID, Roles: claims.Scope}, nil
}
