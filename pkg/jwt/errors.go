package jwt

import "errors"

var (
	// ErrMissingKeyProvider is returned when the service is constructed without key material.
	ErrMissingKeyProvider = errors.New("jwt: key provider is required")

	// ErrMissingIssuer is returned when no service identifier is configured.
	ErrMissingIssuer = errors.New("jwt: issuer is required")

	// ErrInvalidPurpose is returned when issuing with an unknown purpose.
	ErrInvalidPurpose = errors.New("jwt: unknown token purpose")

	// ErrUnknownKeyID is returned during verification when the token names a
	// key this process does not hold.
	ErrUnknownKeyID = errors.New("jwt: token signed with unknown key id")
)
