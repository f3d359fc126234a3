package email

import "errors"

var (
	ErrFailedToSend   = errors.New("email.errors.failed_to_send")
	ErrInvalidConfig  = errors.New("email.errors.invalid_config")
	ErrInvalidMessage = errors.New("email.errors.invalid_message")
)
