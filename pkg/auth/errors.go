package auth

import "errors"

// Credential and account-state errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountUnverified  = errors.New("account is not verified")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAlreadyVerified    = errors.New("account is already verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("default role is not configured")
)

// Token and recovery errors
var (
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Federated login errors
var (
	ErrEmailDomainNotAllowed  = errors.New("email domain is not allowed")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrExternalProvider       = errors.New("identity provider request failed")
	ErrUnknownProvider        = errors.New("unknown identity provider")
	ErrInvalidState           = errors.New("invalid or expired oauth state")
	ErrStateNotFound          = errors.New("oauth state not found")
)

// Storage contract errors
var (
	// ErrVersionConflict is returned by UserStore.Update when the record was
	// modified since it was read. Mutate retries on it.
	ErrVersionConflict = errors.New("user record version conflict")
)
