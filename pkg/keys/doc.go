// Package keys loads and holds the asymmetric signing key pair used by the
// token issuer.
//
// The provider is constructed once at startup from PEM-encoded key material
// (inline or from a file) and never mutated afterwards, so it is safe for
// concurrent reads without synchronization. Absent or malformed material is
// a startup failure: the process must refuse to run rather than mint tokens
// it cannot verify later.
//
// # Usage
//
//	var cfg keys.Config
//	config.MustLoad(&cfg)
//	provider, err := keys.New(cfg)
//	if err != nil {
//	    // abort startup
//	}
//
// The key id is derived from a SHA-256 fingerprint of the public key when
// not configured explicitly, keeping it stable across restarts.
package keys
