// Package auth exposes the authentication service over a JSON HTTP API:
// registration, login, token refresh, logout, federated login, email
// verification and password reset, plus a bearer middleware for protected
// routes.
package auth
