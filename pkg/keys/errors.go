package keys

import "errors"

var (
	// ErrMissingKeyMaterial is returned when no private key is configured.
	ErrMissingKeyMaterial = errors.New("keys: signing key material is not configured")

	// ErrInvalidKeyMaterial is returned when the configured PEM cannot be parsed.
	ErrInvalidKeyMaterial = errors.New("keys: signing key material is malformed")

	// ErrUnsupportedKeyType is returned for non-RSA key material.
	ErrUnsupportedKeyType = errors.New("keys: unsupported key type, expected RSA")
)
