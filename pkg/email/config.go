package email

// Config holds email delivery configuration.
// Postmark tokens are optional to support development environments where
// outbound mail is written to disk instead of sent.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`

	AppName string `env:"APP_NAME" envDefault:"UniServe"`
	// VerificationURL is the frontend page that accepts the verification
	// token as a query parameter.
	VerificationURL string `env:"EMAIL_VERIFICATION_URL,required"`
}
