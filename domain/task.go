package domain

import (
	"strings"
	"time"
)

// DefaultTaskStatus is assigned to tasks created or updated without an explicit status.
const DefaultTaskStatus = "pending"

// Task is a single to-do record. ID and CreatedAt are generated by the store.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Normalize trims the title and applies the default status.
func (t *Task) Normalize() {
	if t == nil {
		return
	}
	t.Title = strings.TrimSpace(t.Title)
	if strings.TrimSpace(t.Status) == "" {
		t.Status = DefaultTaskStatus
	}
}

// DescriptionOr returns the description or the fallback when it is unset.
func (t *Task) DescriptionOr(fallback string) string {
	if t == nil || t.Description == nil {
		return fallback
	}
	return *t.Description
}
