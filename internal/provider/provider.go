package provider

import "context"

// SMSSender delivers one text message to one phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to string, message string) (*Response, error)
}

// Mailer delivers one plain-text email.
type Mailer interface {
	SendEmail(ctx context.Context, to string, subject string, body string) error
}

// Response carries provider call metadata for logging.
type Response struct {
	StatusCode int
	Body       string
	MessageID  string
}
