package transport

import "github.com/fastygo/taskhub/domain"

// TaskRequest is the body of POST /tasks and PUT /tasks/{id}.
type TaskRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"omitempty,max=50"`
}

// ToDomain builds the task the request describes. id is zero on create.
func (r TaskRequest) ToDomain(id int64) *domain.Task {
	return &domain.Task{
		ID:          id,
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
	}
}

type EmailRequest struct {
	RecipientEmail string `json:"recipient_email" validate:"required,email"`
	Subject        string `json:"subject" validate:"required"`
	MessageBody    string `json:"message_body"`
	TaskID         int64  `json:"task_id" validate:"required,gt=0"`
}

func (r EmailRequest) ToDomain() domain.NotificationRequest {
	return domain.NotificationRequest{
		RecipientEmail: r.RecipientEmail,
		Subject:        r.Subject,
		MessageBody:    r.MessageBody,
		TaskID:         r.TaskID,
	}
}
