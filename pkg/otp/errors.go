package otp

import "errors"

var (
	// ErrInvalidLength is returned for code lengths outside the supported range.
	ErrInvalidLength = errors.New("otp: code length must be between 4 and 10 digits")

	// ErrGenerationFailed is returned when the system randomness source fails.
	ErrGenerationFailed = errors.New("otp: failed to generate code")
)
