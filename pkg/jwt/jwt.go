package jwt

import (
	"context"
	"io"
	"log/slog"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/uniserve/uniserve/pkg/keys"
	"github.com/uniserve/uniserve/pkg/logger"
)

// Purpose restricts which operation a signed token may be used for. Every
// verifier must pass the exact purpose it expects; a token minted for one
// purpose never validates for another.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

// Recovery token lifetimes are fixed by policy, not configuration.
const (
	verifyEmailTTL   = 24 * time.Hour
	resetPasswordTTL = 30 * time.Minute
)

func (p Purpose) known() bool {
	switch p {
	case PurposeAccess, PurposeRefresh, PurposeVerifyEmail, PurposeResetPassword:
		return true
	}
	return false
}

// Claims is the claim set carried by every token issued by this service.
// Unknown claims in inbound tokens are ignored during parsing.
type Claims struct {
	jwtv5.RegisteredClaims
	Purpose Purpose  `json:"purpose"`
	Scope   []string `json:"scope,omitempty"`
}

// Config holds the configurable token lifetimes and the service identifier
// used for both issuer and audience claims.
type Config struct {
	Issuer     string        `env:"JWT_ISSUER" envDefault:"uniserve"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"168h"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"720h"`
}

// SessionRecorder is notified whenever a refresh token is minted so the
// server-side record always names the single currently valid refresh token.
type SessionRecorder interface {
	RecordRefresh(ctx context.Context, subject, tokenID string, expiresAt time.Time) error
}

// Service issues and verifies purpose-scoped RS256 tokens. A single signing
// key serves all purposes; isolation between them is enforced entirely by
// the purpose claim check in ParseAndVerify.
type Service struct {
	keys     *keys.Provider
	cfg      Config
	recorder SessionRecorder
	logger   *slog.Logger
}

// Option configures a Service during construction.
type Option func(*Service)

// WithLogger sets the logger used for diagnostic output on rejected tokens.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithSessionRecorder sets the recorder notified on refresh issuance.
func WithSessionRecorder(r SessionRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// New creates a token service bound to the given key provider.
func New(provider *keys.Provider, cfg Config, opts ...Option) (*Service, error) {
	if provider == nil {
		return nil, ErrMissingKeyProvider
	}
	if cfg.Issuer == "" {
		return nil, ErrMissingIssuer
	}

	s := &Service{
		keys:   provider,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetSessionRecorder wires the session manager after construction. The
// session manager needs this service to mint tokens, so the two are created
// first and linked during startup wiring, before any requests are served.
func (s *Service) SetSessionRecorder(r SessionRecorder) {
	s.recorder = r
}

// Issue mints a signed token for the subject with the lifetime fixed by the
// purpose. Roles become the scope claim on access and refresh tokens only;
// recovery tokens carry no scope. Refresh issuance notifies the session
// recorder, making the new token id the subject's single active session.
func (s *Service) Issue(ctx context.Context, subject string, roles []string, purpose Purpose) (string, error) {
	if !purpose.known() {
		return "", ErrInvalidPurpose
	}

	now := time.Now()
	expiresAt := now.Add(s.lifetime(purpose))
	claims := Claims{
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			Audience:  jwtv5.ClaimStrings{s.cfg.Issuer},
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(expiresAt),
		},
		Purpose: purpose,
	}
	if purpose == PurposeAccess || purpose == PurposeRefresh {
		claims.Scope = roles
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	token.Header["kid"] = s.keys.KeyID()

	signed, err := token.SignedString(s.keys.Private())
	if err != nil {
		return "", err
	}

	if purpose == PurposeRefresh && s.recorder != nil {
		if err := s.recorder.RecordRefresh(ctx, subject, claims.ID, expiresAt); err != nil {
			return "", err
		}
	}

	return signed, nil
}

// ParseAndVerify checks signature, temporal claims, issuer, audience and the
// purpose claim, returning the claim set or nil. Malformed tokens are an
// expected input class, so failures are logged and swallowed, never raised.
// This is the single place the purpose check lives; every caller that needs
// claim contents goes through here.
func (s *Service) ParseAndVerify(tokenString string, expected Purpose) *Claims {
	claims := &Claims{}
	token, err := jwtv5.ParseWithClaims(tokenString, claims, s.keyfunc,
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodRS256.Alg()}),
		jwtv5.WithIssuer(s.cfg.Issuer),
		jwtv5.WithAudience(s.cfg.Issuer),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		s.logger.Debug("token rejected",
			logger.Error(err),
			logger.Component("jwt"),
		)
		return nil
	}

	if claims.Purpose != expected {
		s.logger.Debug("token purpose mismatch",
			slog.String("purpose", string(claims.Purpose)),
			slog.String("expected", string(expected)),
			logger.Component("jwt"),
		)
		return nil
	}

	return claims
}

// Verify reports whether the token is valid for the expected purpose. It
// does not consult server-side revocation state; callers that care about
// revocation check the stored refresh token id separately.
func (s *Service) Verify(tokenString string, expected Purpose) bool {
	return s.ParseAndVerify(tokenString, expected) != nil
}

func (s *Service) keyfunc(token *jwtv5.Token) (any, error) {
	if kid, ok := token.Header["kid"].(string); ok && kid != s.keys.KeyID() {
		return nil, ErrUnknownKeyID
	}
	return s.keys.Public(), nil
}

func (s *Service) lifetime(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeRefresh:
		return s.cfg.RefreshTTL
	case PurposeVerifyEmail:
		return verifyEmailTTL
	case PurposeResetPassword:
		return resetPasswordTTL
	default:
		return s.cfg.AccessTTL
	}
}
