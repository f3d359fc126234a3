package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the authoritative account record owned by this subsystem. Other
// subsystems reference it by id only. PasswordHash is never serialized
// outward; handlers map users to response types explicitly.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash []byte
	Roles        []string

	IsVerified          bool
	IsLocked            bool
	LockedUntil         *time.Time // nil while locked means an indefinite manual lock
	FailedLoginAttempts int

	VerificationToken          string
	VerificationTokenExpiresAt *time.Time

	ResetCode          string
	ResetCodeExpiresAt *time.Time

	RefreshTokenID        string
	RefreshTokenExpiresAt *time.Time

	ProviderName string
	ProviderID   string

	// Version backs the store's compare-and-swap update. Two racing writers
	// cannot both succeed against the same snapshot.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasProviderLink reports whether the account carries a federated identity.
func (u *User) HasProviderLink() bool {
	return u.ProviderName != "" && u.ProviderID != ""
}

// UserStore is the persistence contract required by the subsystem: a single
// user collection keyed by id with unique lookups on email, on
// (provider, providerID) and on the active reset code.
//
// Update must apply the write only if the stored version still equals
// u.Version, returning ErrVersionConflict otherwise and bumping the version
// on success. Mutate is the retrying read-modify-write built on top of it;
// all concurrent same-user operations are serialized through these two.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*User, error)
	GetByResetCode(ctx context.Context, code string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	Mutate(ctx context.Context, id uuid.UUID, fn func(*User) error) (*User, error)
}

// ProfileStore is the collaborator owning the dependent student profile
// record created alongside a new account. Completeness reports whether the
// mandatory fields (the student id) are populated yet.
type ProfileStore interface {
	CreateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarURL string) error
	DeleteProfile(ctx context.Context, userID uuid.UUID) error
	IsComplete(ctx context.Context, userID uuid.UUID) (bool, error)
}

// SessionRevoker invalidates every outstanding session for a user. The
// password-reset flow must call it after a credential change.
type SessionRevoker interface {
	Revoke(ctx context.Context, userID uuid.UUID) error
}

// Notifier dispatches recovery secrets to the account owner. Dispatch
// failures never roll back the stored secret; the request can be retried.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetCode(ctx context.Context, email, code string) error
}
