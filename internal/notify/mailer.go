// Package notify delivers user notifications by email.
//
// Delivery is fire-and-forget: callers enqueue a message on a Notifier and
// never see transport errors, which are logged by the worker instead.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"gopkg.in/gomail.v2"

	"github.com/recipebook/recipebook-server/internal/config"
)

// Message is one outbound email. Text is derived from HTML when empty.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer builds the transport selected by cfg.Provider.
func NewMailer(ctx context.Context, cfg config.MailConfig, logger *slog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case config.MailProviderSMTP:
		return NewSMTPMailer(cfg), nil
	case config.MailProviderSES:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SESRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewSESMailer(ses.NewFromConfig(awsCfg), cfg.From), nil
	default:
		return NewLogMailer(logger), nil
	}
}

// dialer is the subset of *gomail.Dialer used by SMTPMailer.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	dialer dialer
	from   string
}

// NewSMTPMailer creates a mailer for the configured relay.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.From,
	}
}

// Send implements Mailer.
func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetHeader("To", msg.To)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/plain", textBody(msg))
	if msg.HTML != "" {
		mail.AddAlternative("text/html", msg.HTML)
	}

	if err := m.dialer.DialAndSend(mail); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// sesAPI is the subset of the SES client used by SESMailer.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES.
type SESMailer struct {
	api  sesAPI
	from string
}

// NewSESMailer wraps an SES client.
func NewSESMailer(api sesAPI, from string) *SESMailer {
	return &SESMailer{api: api, from: from}
}

// Send implements Mailer.
func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	body := &types.Body{
		Text: &types.Content{Data: aws.String(textBody(msg))},
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML)}
	}

	_, err := m.api.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body:    body,
		},
		Source: aws.String(m.from),
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
// Used when no transport is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if m.logger != nil {
		m.logger.Info("email not sent, no transport configured",
			"to", msg.To,
			"subject", msg.Subject,
		)
	}
	return nil
}

func textBody(msg Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return PlainText(msg.HTML)
}
