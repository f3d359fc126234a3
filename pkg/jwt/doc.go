// Package jwt issues and verifies the purpose-scoped signed tokens used by
// the authentication subsystem.
//
// All tokens are signed with a single RS256 key pair supplied by pkg/keys;
// the header carries the key id so verifiers can select the right key. What
// keeps an email-verification token from being replayed as an access token
// is not separate keys but the purpose claim, checked in exactly one place
// (ParseAndVerify). Every consumer passes the purpose it expects.
//
//   - access / refresh tokens carry a scope claim listing role names and use
//     configured lifetimes (refresh strictly longer than access).
//   - verify_email (24h) and reset_password (30m) lifetimes are fixed policy.
//
// Verification never returns errors to callers: malformed, forged and
// expired tokens are an expected input class and collapse to a nil claim
// set (ParseAndVerify) or false (Verify), with the cause logged at debug
// level. Revocation is deliberately out of scope here; the session manager
// compares the refresh token id against the server-side record.
//
// Issuing a refresh token notifies the configured SessionRecorder, which
// overwrites the subject's stored refresh token id. That overwrite is the
// single-active-session invariant.
package jwt
