package mailer

import (
	"context"
	"time"

	"github.com/scoutline/apiserver/config"
	"github.com/wneessen/go-mail"
)

// SMTPMailer delivers code emails directly over SMTP.
type SMTPMailer struct {
	client  *mail.Client
	from    string
	codeTTL time.Duration
}

// NewSMTPMailer constructs an SMTP mailer from config. Authentication is
// enabled only when a username is configured.
func NewSMTPMailer(cfg config.SMTPConfig, codeTTL time.Duration) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}

	return &SMTPMailer{
		client:  client,
		from:    cfg.From,
		codeTTL: codeTTL,
	}, nil
}

// SendCode composes and sends the code email synchronously.
func (m *SMTPMailer) SendCode(ctx context.Context, email, code, kind string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(email); err != nil {
		return err
	}
	msg.Subject(subjectFor(kind))
	msg.SetBodyString(mail.TypeTextPlain, bodyFor(kind, code, m.codeTTL))

	return m.client.DialAndSendWithContext(ctx, msg)
}
