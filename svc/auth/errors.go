package auth

import "errors"

// ErrUnauthenticated is returned for any bearer token failure. The cause is
// deliberately not exposed to callers.
var ErrUnauthenticated = errors.New("unauthenticated")
