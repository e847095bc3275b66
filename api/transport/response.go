package transport

import (
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
)

const (
	HealthOK    = "ok"
	HealthError = "error"
)

// ErrorBody is returned with every non-2xx task API response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewError(code domain.ErrorCode, message string) ErrorBody {
	return ErrorBody{Error: message, Code: string(code)}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Services *monitor.Status `json:"services,omitempty"`
}

// InboxResponse always carries an emails array; message is set on failure.
type InboxResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Emails  []domain.MailSummary `json:"emails"`
}

func NewInboxResponse(res domain.InboxResult) InboxResponse {
	emails := res.Emails
	if emails == nil {
		emails = []domain.MailSummary{}
	}
	return InboxResponse{Success: res.Success, Message: res.Message, Emails: emails}
}
