// Package otp generates and checks short numeric one-time codes.
//
// The password-reset flow stores a single active code per user with its own
// expiry; this package only covers generation (crypto/rand, uniform over
// the digit space, leading zeros preserved) and constant-time comparison.
// Expiry and single-use semantics belong to the caller that stores the code.
package otp
