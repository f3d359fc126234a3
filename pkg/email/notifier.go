package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"

	"github.com/uniserve/uniserve/pkg/auth"
)

// Notifier renders and dispatches account recovery mail. It satisfies the
// auth package's Notifier interface.
type Notifier struct {
	sender          Sender
	appName         string
	verificationURL string
}

var _ auth.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier on top of the given sender.
func NewNotifier(sender Sender, cfg Config) *Notifier {
	return &Notifier{
		sender:          sender,
		appName:         cfg.AppName,
		verificationURL: cfg.VerificationURL,
	}
}

var verificationTmpl = template.Must(template.New("verification").Parse(`<html><body>
<p>Welcome to {{.AppName}}!</p>
<p>Please confirm your email address by following the link below:</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>The link expires in 24 hours. If you did not create an account, you can ignore this message.</p>
</body></html>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<html><body>
<p>Your {{.AppName}} password reset code:</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
<p>The code expires in 30 minutes. If you did not request a reset, you can ignore this message.</p>
</body></html>`))

// SendVerificationEmail mails a confirmation link carrying the verification token.
func (n *Notifier) SendVerificationEmail(ctx context.Context, email, token string) error {
	link, err := n.verificationLink(token)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err := verificationTmpl.Execute(&body, struct {
		AppName string
		Link    string
	}{AppName: n.appName, Link: link}); err != nil {
		return errors.Join(ErrFailedToSend, err)
	}

	return n.sender.Send(ctx, Message{
		SendTo:   email,
		Subject:  fmt.Sprintf("Verify your %s email", n.appName),
		BodyHTML: body.String(),
		Tag:      "email-verification",
	})
}

// SendPasswordResetCode mails the one-time reset code.
func (n *Notifier) SendPasswordResetCode(ctx context.Context, email, code string) error {
	var body bytes.Buffer
	if err := resetTmpl.Execute(&body, struct {
		AppName string
		Code    string
	}{AppName: n.appName, Code: code}); err != nil {
		return errors.Join(ErrFailedToSend, err)
	}

	return n.sender.Send(ctx, Message{
		SendTo:   email,
		Subject:  fmt.Sprintf("%s password reset code", n.appName),
		BodyHTML: body.String(),
		Tag:      "password-reset",
	})
}

func (n *Notifier) verificationLink(token string) (string, error) {
	u, err := url.Parse(n.verificationURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid verification URL: %v", ErrInvalidConfig, err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
