// Package auth is the application service layer for authentication. It
// composes the domain packages (password auth, recovery, federated
// onboarding, sessions) behind a single facade and carries the request
// principal through context.
package auth
