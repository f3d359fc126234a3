package validator

import "net/mail"

// ValidEmail checks RFC 5322 address syntax. The parser accepts display
// names, so a bare-address check on the parsed result guards against
// "Name <a@b>" style input sneaking through.
func ValidEmail(field, value string) Rule {
	return func() []ValidationError {
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return fail(field, "must be a valid email address")
		}
		return nil
	}
}
