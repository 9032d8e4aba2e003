package email

// Config holds outbound email settings. The Postmark tokens are optional so
// development environments can run with the on-disk sender instead; the
// sender and support addresses establish From and ReplyTo on every notice.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
