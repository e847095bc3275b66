package domain

import (
	"fmt"
	"strings"
)

// MailProtocol names a legacy inbox retrieval protocol.
type MailProtocol string

const (
	ProtocolIMAP MailProtocol = "imap"
	ProtocolPOP3 MailProtocol = "pop3"
)

// ParseMailProtocol accepts "imap" or "pop3" in any case.
func ParseMailProtocol(raw string) (MailProtocol, error) {
	switch p := MailProtocol(strings.ToLower(strings.TrimSpace(raw))); p {
	case ProtocolIMAP, ProtocolPOP3:
		return p, nil
	default:
		return "", NewError(ErrCodeInvalid, fmt.Sprintf("unsupported mail protocol %q", raw))
	}
}

// Label is the upper-case protocol name used in user-facing messages.
func (p MailProtocol) Label() string {
	return strings.ToUpper(string(p))
}

// MailSummary describes one inbox message. Date keeps the server-supplied format.
type MailSummary struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
}

// NotificationRequest asks for a task notice to be mailed to a recipient.
type NotificationRequest struct {
	RecipientEmail string
	Subject        string
	MessageBody    string
	TaskID         int64
}

// OutgoingMail is a fully composed plain-text message.
type OutgoingMail struct {
	To      string
	Subject string
	Body    string
}

// SendResult is the outcome of an outbound notification.
type SendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// InboxResult is the outcome of an inbox poll. Message is set on failure only.
type InboxResult struct {
	Success bool
	Message string
	Emails  []MailSummary
}
