package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniserve/uniserve/pkg/logger"
	"github.com/uniserve/uniserve/pkg/sanitizer"
)

// Profile is the normalized identity returned by a provider adapter after
// the code exchange and profile fetch.
type Profile struct {
	ProviderUserID string
	Email          string
	DisplayName    string
	AvatarURL      string
	EmailVerified  bool
}

// ProviderAdapter wraps one identity provider: building the authorization
// URL, exchanging the callback code and fetching the profile. Network
// failures surface as ErrExternalProvider from the onboarder.
type ProviderAdapter interface {
	Name() string
	AuthURL(state string) string
	ResolveProfile(ctx context.Context, code string) (*Profile, error)
}

// StateStore holds short-lived CSRF state values. Consume removes the state
// so it can be redeemed at most once.
type StateStore interface {
	StoreState(ctx context.Context, state string, expiresAt time.Time) error
	ConsumeState(ctx context.Context, state string) error
}

// EmailDomainPolicy decides whether a provider-returned email may onboard.
type EmailDomainPolicy func(email string) bool

// DomainAllowlist builds a policy from institutional domains. An empty list
// allows everything, for deployments without a domain restriction.
func DomainAllowlist(domains []string) EmailDomainPolicy {
	allowed := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		allowed[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return func(email string) bool {
		if len(allowed) == 0 {
			return true
		}
		_, ok := allowed[sanitizer.ExtractEmailDomain(email)]
		return ok
	}
}

// OnboardResult is the outcome of a successful federated callback. The
// caller starts the session; ProfileComplete tells the client whether the
// student profile still needs mandatory fields.
type OnboardResult struct {
	User            *User
	ProfileComplete bool
}

// Onboarder links or creates local accounts from federated identities.
// Federated identities are trusted as pre-verified, so accounts created
// here are verified from the start.
type Onboarder struct {
	store       UserStore
	profiles    ProfileStore
	states      StateStore
	adapters    map[string]ProviderAdapter
	policy      EmailDomainPolicy
	defaultRole string
	stateTTL    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// OnboarderOption configures an Onboarder during construction.
type OnboarderOption func(*Onboarder)

// WithOnboarderLogger sets a custom logger.
func WithOnboarderLogger(l *slog.Logger) OnboarderOption {
	return func(o *Onboarder) {
		o.logger = l
	}
}

// WithAdapter registers an identity provider adapter under its name.
func WithAdapter(a ProviderAdapter) OnboarderOption {
	return func(o *Onboarder) {
		o.adapters[a.Name()] = a
	}
}

// WithDomainPolicy replaces the institutional-domain predicate.
func WithDomainPolicy(p EmailDomainPolicy) OnboarderOption {
	return func(o *Onboarder) {
		o.policy = p
	}
}

// WithStateTTL sets the lifetime of stored CSRF state values.
func WithStateTTL(ttl time.Duration) OnboarderOption {
	return func(o *Onboarder) {
		o.stateTTL = ttl
	}
}

// WithOnboarderDefaultRole overrides the role for newly created accounts.
func WithOnboarderDefaultRole(role string) OnboarderOption {
	return func(o *Onboarder) {
		o.defaultRole = role
	}
}

// withOnboarderClock overrides the time source in tests.
func withOnboarderClock(now func() time.Time) OnboarderOption {
	return func(o *Onboarder) {
		o.now = now
	}
}

// NewOnboarder constructs the federated login onboarder. Defaults: allow
// every email domain, 10-minute state TTL, "student" default role.
func NewOnboarder(store UserStore, profiles ProfileStore, states StateStore, opts ...OnboarderOption) *Onboarder {
	o := &Onboarder{
		store:       store,
		profiles:    profiles,
		states:      states,
		adapters:    make(map[string]ProviderAdapter),
		policy:      DomainAllowlist(nil),
		defaultRole: DefaultRole,
		stateTTL:    10 * time.Minute,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AuthURL issues a one-time CSRF state and returns the provider's
// authorization URL carrying it.
func (o *Onboarder) AuthURL(ctx context.Context, provider string) (string, error) {
	adapter, ok := o.adapters[provider]
	if !ok {
		return "", ErrUnknownProvider
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	if err := o.states.StoreState(ctx, state, o.now().Add(o.stateTTL)); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return adapter.AuthURL(state), nil
}

// Onboard handles the provider callback: state consumption, code exchange,
// profile fetch and account resolution. Account creation together with its
// dependent profile is failure-atomic; a half-created account is removed
// before the error is returned.
func (o *Onboarder) Onboard(ctx context.Context, provider, code, state string) (*OnboardResult, error) {
	adapter, ok := o.adapters[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	if err := o.states.ConsumeState(ctx, state); err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("failed to validate state: %w", err)
	}

	profile, err := adapter.ResolveProfile(ctx, code)
	if err != nil {
		return nil, errors.Join(ErrExternalProvider, err)
	}
	if profile.ProviderUserID == "" || profile.Email == "" {
		return nil, errors.Join(ErrExternalProvider, errors.New("provider profile is incomplete"))
	}
	profile.Email = sanitizer.NormalizeEmail(profile.Email)

	user, err := o.resolveAccount(ctx, adapter.Name(), profile)
	if err != nil {
		return nil, err
	}

	complete, err := o.profiles.IsComplete(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check profile completeness: %w", err)
	}

	return &OnboardResult{User: user, ProfileComplete: complete}, nil
}

func (o *Onboarder) resolveAccount(ctx context.Context, provider string, profile *Profile) (*User, error) {
	user, err := o.store.GetByProvider(ctx, provider, profile.ProviderUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up provider link: %w", err)
	}

	if !o.policy(profile.Email) {
		return nil, ErrEmailDomainNotAllowed
	}

	user, err = o.store.GetByEmail(ctx, profile.Email)
	if err == nil {
		return o.attachLink(ctx, user, provider, profile)
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	return o.createAccount(ctx, provider, profile)
}

// attachLink joins a federated identity to an existing local account. The
// account must be verified: attaching to an unverified record would let
// whoever registered it first ride along on the federated login. Accounts
// already linked to a different identity keep their link.
func (o *Onboarder) attachLink(ctx context.Context, user *User, provider string, profile *Profile) (*User, error) {
	if user.HasProviderLink() {
		return nil, ErrEmailAlreadyRegistered
	}
	if !user.IsVerified {
		return nil, ErrEmailAlreadyRegistered
	}

	user, err := o.store.Mutate(ctx, user.ID, func(u *User) error {
		if u.HasProviderLink() {
			return ErrEmailAlreadyRegistered
		}
		u.ProviderName = provider
		u.ProviderID = profile.ProviderUserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("linked federated identity to existing account",
		logger.UserID(user.ID.String()),
		slog.String("provider", provider),
		logger.Component("oauth"),
	)
	return user, nil
}

func (o *Onboarder) createAccount(ctx context.Context, provider string, profile *Profile) (*User, error) {
	if o.defaultRole == "" {
		return nil, ErrRoleNotFound
	}

	// Federated-only accounts still get a password hash so the record never
	// carries a nil credential; the value is random and unknown to anyone.
	hash, err := randomPasswordHash()
	if err != nil {
		return nil, err
	}

	now := o.now()
	user := &User{
		ID:           uuid.New(),
		Email:        profile.Email,
		PasswordHash: hash,
		Roles:        []string{o.defaultRole},
		IsVerified:   true,
		ProviderName: provider,
		ProviderID:   profile.ProviderUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := o.store.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := o.profiles.CreateProfile(ctx, user.ID, profile.DisplayName, profile.AvatarURL); err != nil {
		if delErr := o.store.Delete(ctx, user.ID); delErr != nil {
			o.logger.Error("failed to cleanup user after profile create failure",
				logger.UserID(user.ID.String()),
				slog.String("provider", provider),
				logger.Error(delErr),
				logger.Component("oauth"),
			)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return user, nil
}

func randomPasswordHash() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return bcrypt.GenerateFromPassword([]byte(base64.RawURLEncoding.EncodeToString(b)), bcrypt.MinCost)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
