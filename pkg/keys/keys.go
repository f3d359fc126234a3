package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"os"
)

// Config holds the signing key material. Exactly one of PrivateKeyPEM or
// PrivateKeyFile must be set; the process must not start without it.
type Config struct {
	PrivateKeyPEM  string `env:"JWT_PRIVATE_KEY"`
	PrivateKeyFile string `env:"JWT_PRIVATE_KEY_FILE"`
	KeyID          string `env:"JWT_KEY_ID"`
}

// Provider holds one RSA key pair for the process lifetime. It is immutable
// after construction and safe for unsynchronized concurrent reads.
type Provider struct {
	private *rsa.PrivateKey
	keyID   string
}

// New loads the key pair from config. It fails on absent or malformed key
// material so that misconfiguration prevents startup instead of surfacing
// as runtime signing errors.
func New(cfg Config) (*Provider, error) {
	pemData := []byte(cfg.PrivateKeyPEM)
	if len(pemData) == 0 {
		if cfg.PrivateKeyFile == "" {
			return nil, ErrMissingKeyMaterial
		}
		data, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, errors.Join(ErrMissingKeyMaterial, err)
		}
		pemData = data
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, err
	}

	return newProvider(key, cfg.KeyID), nil
}

// NewFromKey wraps an already constructed private key. Used by tests and by
// dev setups that generate an ephemeral pair at startup.
func NewFromKey(key *rsa.PrivateKey, keyID string) (*Provider, error) {
	if key == nil {
		return nil, ErrMissingKeyMaterial
	}
	if err := key.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidKeyMaterial, err)
	}
	return newProvider(key, keyID), nil
}

// Generate creates an ephemeral 2048-bit provider. Tokens signed with it do
// not survive a restart, which is acceptable for development and tests only.
func Generate() (*Provider, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.Join(ErrInvalidKeyMaterial, err)
	}
	return newProvider(key, ""), nil
}

// Private returns the signing key. Only the token issuer should call this.
func (p *Provider) Private() *rsa.PrivateKey {
	return p.private
}

// Public returns the verification key.
func (p *Provider) Public() *rsa.PublicKey {
	return &p.private.PublicKey
}

// KeyID returns the identifier placed in the token header so verifiers can
// select the right key.
func (p *Provider) KeyID() string {
	return p.keyID
}

func newProvider(key *rsa.PrivateKey, keyID string) *Provider {
	if keyID == "" {
		keyID = fingerprint(&key.PublicKey)
	}
	return &Provider{private: key, keyID: keyID}
}

// fingerprint derives a stable key id from the public key material so that
// restarts with the same key keep the same id without extra configuration.
func fingerprint(pub *rsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		// Marshalling a valid in-memory RSA key cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:8])
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrInvalidKeyMaterial
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Join(ErrInvalidKeyMaterial, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Join(ErrInvalidKeyMaterial, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrUnsupportedKeyType
		}
		return key, nil
	default:
		return nil, ErrUnsupportedKeyType
	}
}
