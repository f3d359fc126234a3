package email

import (
	"context"
	"fmt"
	"regexp"
)

// Sender dispatches a single transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered transactional email.
type Message struct {
	SendTo   string
	Subject  string
	BodyHTML string
	Tag      string
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the message has a deliverable recipient and content.
func (m Message) Validate() error {
	if !emailRegex.MatchString(m.SendTo) {
		return fmt.Errorf("%w: invalid recipient address", ErrInvalidMessage)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}
