package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)
)

// commonPasswords is a curated list of frequently compromised passwords.
var commonPasswords = map[string]bool{
	"password":    true,
	"password1":   true,
	"password123": true,
	"123456":      true,
	"12345678":    true,
	"123456789":   true,
	"1234567890":  true,
	"qwerty":      true,
	"qwerty123":   true,
	"abc123":      true,
	"letmein":     true,
	"welcome":     true,
	"iloveyou":    true,
	"admin":       true,
	"admin123":    true,
	"root":        true,
	"guest":       true,
	"test":        true,
	"secret":      true,
	"trustno1":    true,
	"111111":      true,
	"000000":      true,
	"student":     true,
	"campus123":   true,
}

// PasswordStrengthConfig controls the StrongPassword rule.
type PasswordStrengthConfig struct {
	MinLength      int
	MaxLength      int
	MinCharClasses int // of: upper, lower, digit, special
}

// StrongPassword enforces length bounds and character-class variety.
func StrongPassword(field, value string, cfg PasswordStrengthConfig) Rule {
	return func() []ValidationError {
		if len(value) < cfg.MinLength {
			return fail(field, fmt.Sprintf("must be at least %d characters", cfg.MinLength))
		}
		if cfg.MaxLength > 0 && len(value) > cfg.MaxLength {
			return fail(field, fmt.Sprintf("must be at most %d characters", cfg.MaxLength))
		}

		classes := 0
		for _, re := range []*regexp.Regexp{uppercaseRegex, lowercaseRegex, digitRegex, specialCharRegex} {
			if re.MatchString(value) {
				classes++
			}
		}
		if classes < cfg.MinCharClasses {
			return fail(field, fmt.Sprintf("must contain at least %d character classes", cfg.MinCharClasses))
		}
		return nil
	}
}

// NotCommonPassword rejects passwords from the known-compromised list.
func NotCommonPassword(field, value string) Rule {
	return func() []ValidationError {
		if commonPasswords[strings.ToLower(value)] {
			return fail(field, "is too common")
		}
		return nil
	}
}
