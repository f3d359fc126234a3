// Package session owns the refresh-token side of the session lifecycle.
//
// A user has at most one active session, represented by one refresh token
// id mirrored on the user record. Starting a session overwrites that id,
// which implicitly kills the previous session; revoking clears it, which
// kills every outstanding refresh token regardless of signed expiry.
// Refreshing validates the token twice: once cryptographically (signature,
// purpose, embedded expiry) and once against the stored record, because a
// signature cannot reflect a revocation that happened after signing.
//
// Refresh does not rotate the refresh token; only login does. That keeps
// refresh churn low at the cost of a longer replay window, and the behavior
// is intentional rather than an oversight.
package session
