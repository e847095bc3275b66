package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/knadh/go-pop3"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
)

// POP3Reader lists the newest messages of a POP3 maildrop using TOP, so
// message bodies are never downloaded and nothing is deleted.
type POP3Reader struct {
	cfg     config.InboxConfig
	timeout time.Duration
	logger  *zap.Logger
}

func NewPOP3Reader(cfg config.InboxConfig, timeout time.Duration, logger *zap.Logger) *POP3Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &POP3Reader{
		cfg:     cfg,
		timeout: dialTimeout(timeout),
		logger:  logger.With(zap.String("component", "pop3"), zap.String("host", cfg.Host)),
	}
}

// Recent returns headers of the last limit messages, oldest first. A message
// that cannot be retrieved is logged and skipped. The call returns when ctx
// ends even if the server stops answering mid-session.
func (r *POP3Reader) Recent(ctx context.Context, limit int) ([]domain.MailSummary, error) {
	if r.cfg.Host == "" {
		return nil, ErrNotConfigured
	}

	type result struct {
		emails []domain.MailSummary
		err    error
	}
	done := make(chan result, 1)
	go func() {
		emails, err := r.session(ctx, limit)
		done <- result{emails: emails, err: err}
	}()

	select {
	case res := <-done:
		return res.emails, res.err
	case <-ctx.Done():
		r.logger.Warn("abandoning stalled session", zap.Error(ctx.Err()))
		return nil, fmt.Errorf("pop3: %w", ctx.Err())
	}
}

func (r *POP3Reader) session(ctx context.Context, limit int) ([]domain.MailSummary, error) {
	p := pop3.New(pop3.Opt{
		Host:        r.cfg.Host,
		Port:        r.cfg.Port,
		DialTimeout: r.timeout,
		TLSEnabled:  r.cfg.TLS,
	})
	c, err := p.NewConn()
	if err != nil {
		return nil, fmt.Errorf("pop3 connect: %w", err)
	}
	defer func() { _ = c.Quit() }()

	if err := c.Auth(r.cfg.User, r.cfg.Password); err != nil {
		return nil, fmt.Errorf("pop3 auth: %w", err)
	}

	count, _, err := c.Stat()
	if err != nil {
		return nil, fmt.Errorf("pop3 stat: %w", err)
	}

	from, to := recentWindow(count, limit)
	out := make([]domain.MailSummary, 0, to-from+1)
	if to == 0 {
		return out, nil
	}
	for id := from; id <= to; id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entity, err := c.Top(id, 0)
		if err != nil {
			r.logger.Warn("skipping message", zap.Int("message", id), zap.Error(err))
			continue
		}
		out = append(out, summarizeHeader(entity.Header))
	}
	r.logger.Debug("maildrop listed", zap.Int("total", count), zap.Int("returned", len(out)))
	return out, nil
}

func summarizeHeader(h message.Header) domain.MailSummary {
	return domain.MailSummary{
		From:    headerText(h, "From", noSender),
		Subject: headerText(h, "Subject", noSubject),
		Date:    headerText(h, "Date", noDate),
	}
}

// headerText decodes RFC 2047 words, falling back to the raw value.
func headerText(h message.Header, key, fallback string) string {
	value, err := h.Text(key)
	if err != nil {
		value = h.Get(key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
