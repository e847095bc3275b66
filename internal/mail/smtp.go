package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
)

const implicitTLSPort = 465

// SMTPSender delivers plain-text mail through the configured relay.
type SMTPSender struct {
	cfg     config.SMTPConfig
	timeout time.Duration
	logger  *zap.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, timeout time.Duration, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{
		cfg:     cfg,
		timeout: dialTimeout(timeout),
		logger:  logger.With(zap.String("component", "smtp")),
	}
}

// Send opens a session, authenticates when credentials are set and submits msg.
// Port 465 uses implicit TLS; every other port requires STARTTLS.
func (s *SMTPSender) Send(ctx context.Context, msg domain.OutgoingMail) error {
	if s.cfg.Host == "" {
		return ErrNotConfigured
	}

	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return err
	}

	s.logger.Info("mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SMTPSender) buildMessage(msg domain.OutgoingMail) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

func (s *SMTPSender) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTimeout(s.timeout),
	}
	if s.cfg.Port == implicitTLSPort {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	if s.cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.User),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}
