package mail

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/infra/logger"
)

// Mailer delivers transactional email over SMTP. Send fails loudly; callers
// in purchase and registration flows treat failures as non-fatal.
type Mailer struct {
	client *gomail.Client
	from   string
	log    *zap.Logger
}

// NewMailer builds an SMTP client from configuration.
func NewMailer(cfg config.SMTPSettings, log *zap.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Mailer{client: client, from: cfg.From, log: log}, nil
}

// Send delivers a single message with an HTML body and optional plain-text
// alternative.
func (m *Mailer) Send(ctx context.Context, to, subject, html, text string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)
	if text != "" {
		msg.AddAlternativeString(gomail.TypeTextPlain, text)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", logger.MaskEmail(to), err)
	}

	m.log.Info("mail delivered",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)

	return nil
}
