package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
)

// IMAPReader lists the newest messages of an IMAP inbox.
type IMAPReader struct {
	cfg     config.InboxConfig
	timeout time.Duration
	logger  *zap.Logger
}

func NewIMAPReader(cfg config.InboxConfig, timeout time.Duration, logger *zap.Logger) *IMAPReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IMAPReader{
		cfg:     cfg,
		timeout: dialTimeout(timeout),
		logger:  logger.With(zap.String("component", "imap"), zap.String("host", cfg.Host)),
	}
}

// Recent returns envelopes of the last limit messages in INBOX, oldest first.
// The mailbox is opened read-only so nothing is marked as seen.
func (r *IMAPReader) Recent(ctx context.Context, limit int) ([]domain.MailSummary, error) {
	if r.cfg.Host == "" {
		return nil, ErrNotConfigured
	}

	c, err := r.dial()
	if err != nil {
		return nil, fmt.Errorf("imap connect: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()
	defer func() { _ = c.Logout() }()

	if err := c.Login(r.cfg.User, r.cfg.Password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}

	mbox, err := c.Select(imap.InboxName, true)
	if err != nil {
		return nil, fmt.Errorf("imap select: %w", err)
	}

	from, to := recentWindow(int(mbox.Messages), limit)
	if to == 0 {
		return []domain.MailSummary{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddRange(uint32(from), uint32(to))

	messages := make(chan *imap.Message, to-from+1)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope}, messages)
	}()

	fetched := make([]*imap.Message, 0, to-from+1)
	for msg := range messages {
		fetched = append(fetched, msg)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	sort.Slice(fetched, func(i, j int) bool { return fetched[i].SeqNum < fetched[j].SeqNum })

	out := make([]domain.MailSummary, 0, len(fetched))
	for _, msg := range fetched {
		out = append(out, summarizeEnvelope(msg.Envelope))
	}
	r.logger.Debug("inbox listed", zap.Uint32("total", mbox.Messages), zap.Int("returned", len(out)))
	return out, nil
}

func (r *IMAPReader) dial() (*client.Client, error) {
	dialer := &net.Dialer{Timeout: r.timeout}
	addr := r.cfg.Address()

	var (
		c   *client.Client
		err error
	)
	if r.cfg.TLS {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: r.cfg.Host})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, err
	}
	c.Timeout = r.timeout
	return c, nil
}

func summarizeEnvelope(env *imap.Envelope) domain.MailSummary {
	summary := domain.MailSummary{Subject: noSubject, Date: noDate}
	if env == nil {
		return summary
	}
	if len(env.From) > 0 && env.From[0] != nil {
		addr := env.From[0]
		if addr.MailboxName != "" && addr.HostName != "" {
			summary.From = addr.MailboxName + "@" + addr.HostName
		}
	}
	if env.Subject != "" {
		summary.Subject = env.Subject
	}
	if !env.Date.IsZero() {
		summary.Date = env.Date.Format(dateLayout)
	}
	return summary
}
