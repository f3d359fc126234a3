package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"regexp"
	"strings"
)

// DefaultDigits is the standard length for one-time reset codes.
const DefaultDigits = 6

var codeRegex = regexp.MustCompile(`^[0-9]+$`)

// GenerateCode returns a uniformly random numeric code of the given length.
// Leading zeros are preserved, so the result is always exactly digits long.
func GenerateCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", ErrInvalidLength
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", errors.Join(ErrGenerationFailed, err)
	}

	code := n.String()
	if pad := digits - len(code); pad > 0 {
		code = strings.Repeat("0", pad) + code
	}
	return code, nil
}

// Match compares a submitted code against the stored one in constant time.
// Non-numeric or empty input never matches.
func Match(stored, candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if stored == "" || !codeRegex.MatchString(candidate) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
