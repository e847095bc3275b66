package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/logger"
)

const (
	msgSent         = "Email sent successfully"
	msgTaskNotFound = "Task not found"
	detailsFallback = "N/A"
)

// TaskFinder loads the task a notification refers to.
type TaskFinder interface {
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
}

// Mailer submits a composed message to the outbound relay.
type Mailer interface {
	Send(ctx context.Context, msg domain.OutgoingMail) error
}

// InboxReader lists the newest inbound messages, oldest first.
type InboxReader interface {
	Recent(ctx context.Context, limit int) ([]domain.MailSummary, error)
}

type Options struct {
	RecentLimit int
	// PlaceholderFallback answers a failed inbox poll with canned entries
	// instead of an error result. Kept only for legacy clients.
	PlaceholderFallback bool
}

type UseCase struct {
	tasks   TaskFinder
	mailer  Mailer
	readers map[domain.MailProtocol]InboxReader
	opts    Options
	logger  *zap.Logger
}

func New(tasks TaskFinder, mailer Mailer, readers map[domain.MailProtocol]InboxReader, opts Options, logger *zap.Logger) *UseCase {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:   tasks,
		mailer:  mailer,
		readers: readers,
		opts:    opts,
		logger:  logger,
	}
}

// SendTaskNotification mails the task's details to the recipient. Every
// failure is reported in the result rather than returned.
func (uc *UseCase) SendTaskNotification(ctx context.Context, req domain.NotificationRequest) domain.SendResult {
	log := logger.WithRequestID(ctx, uc.logger).With(zap.Int64("task_id", req.TaskID))

	task, err := uc.tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		if domain.CodeOf(err) == domain.ErrCodeNotFound {
			return domain.SendResult{Success: false, Message: msgTaskNotFound}
		}
		log.Error("task lookup for notification failed", zap.Error(err))
		return domain.SendResult{Success: false, Message: fmt.Sprintf("Error sending email: %v", err)}
	}

	if uc.mailer == nil {
		return domain.SendResult{Success: false, Message: "Failed to send email: outbound mail is not configured"}
	}

	msg := domain.OutgoingMail{
		To:      req.RecipientEmail,
		Subject: req.Subject,
		Body:    ComposeBody(req.MessageBody, task),
	}
	if err := uc.mailer.Send(ctx, msg); err != nil {
		log.Warn("notification email failed", zap.Error(err))
		return domain.SendResult{Success: false, Message: fmt.Sprintf("Failed to send email: %v", err)}
	}
	return domain.SendResult{Success: true, Message: msgSent}
}

// ListRecentInbound polls the inbox over the given protocol.
func (uc *UseCase) ListRecentInbound(ctx context.Context, protocol domain.MailProtocol) domain.InboxResult {
	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("protocol", string(protocol)))

	reader, ok := uc.readers[protocol]
	if !ok || reader == nil {
		return domain.InboxResult{Success: false, Message: fmt.Sprintf("unsupported mail protocol %q", protocol)}
	}

	emails, err := reader.Recent(ctx, uc.opts.RecentLimit)
	if err != nil {
		if uc.opts.PlaceholderFallback {
			log.Warn("inbox poll failed, returning placeholder entries", zap.Error(err))
			return domain.InboxResult{Success: true, Emails: placeholders(protocol)}
		}
		log.Warn("inbox poll failed", zap.Error(err))
		return domain.InboxResult{
			Success: false,
			Message: fmt.Sprintf("Failed to check emails via %s: %v", protocol.Label(), err),
		}
	}
	if emails == nil {
		emails = []domain.MailSummary{}
	}
	return domain.InboxResult{Success: true, Emails: emails}
}

// ComposeBody appends the task details block to the caller's text.
func ComposeBody(body string, task *domain.Task) string {
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\nTask details:\n")
	if task == nil {
		task = &domain.Task{}
	}
	fmt.Fprintf(&b, "ID: %d\n", task.ID)
	fmt.Fprintf(&b, "Title: %s\n", orFallback(task.Title))
	fmt.Fprintf(&b, "Description: %s\n", task.DescriptionOr(detailsFallback))
	fmt.Fprintf(&b, "Status: %s\n", orFallback(task.Status))
	return b.String()
}

func orFallback(s string) string {
	if s == "" {
		return detailsFallback
	}
	return s
}

func placeholders(protocol domain.MailProtocol) []domain.MailSummary {
	label := protocol.Label()
	return []domain.MailSummary{
		{From: "support@example.com", Subject: label + " placeholder message 1", Date: "2023-03-24"},
		{From: "notifications@example.com", Subject: label + " placeholder message 2", Date: "2023-03-23"},
		{From: "info@example.com", Subject: label + " placeholder message 3", Date: "2023-03-22"},
	}
}
