package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// MailSender delivers prepared messages. *mail.Client implements it.
type MailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSettings describes the outbound relay
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// NewSMTPClient connects to the relay with mandatory STARTTLS and PLAIN auth
func NewSMTPClient(s SMTPSettings) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.Username),
		mail.WithPassword(s.Password),
	}
	if s.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.Timeout))
	}

	client, err := mail.NewClient(s.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating mail client: %w", err)
	}
	return client, nil
}

// Mailer sends notifications from a fixed sender address
type Mailer struct {
	sender MailSender
	from   string
}

// NewMailer creates a mailer; from is the envelope and header sender
func NewMailer(sender MailSender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

// BuildMessage creates a single-recipient plain-text message
func BuildMessage(n Notification, from string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(n.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", n.To, err)
	}
	m.Subject(n.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, n.Body)
	return m, nil
}

// Notify sends n. Every failure is reported as a *DeliveryError.
func (ml *Mailer) Notify(ctx context.Context, n Notification) error {
	m, err := BuildMessage(n, ml.from)
	if err != nil {
		return &DeliveryError{Recipient: n.To, Err: err}
	}

	if err := ml.sender.DialAndSendWithContext(ctx, m); err != nil {
		return &DeliveryError{Recipient: n.To, Err: err}
	}
	return nil
}
