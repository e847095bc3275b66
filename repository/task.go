package repository

import (
	"context"

	"github.com/fastygo/taskhub/domain"
)

// TaskRepository persists task records. Not-found lookups return domain.ErrTaskNotFound;
// an unreachable store is reported with domain.ErrCodeUnavailable.
type TaskRepository interface {
	List(ctx context.Context) ([]domain.Task, error)
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Delete removes the row and returns its last image.
	Delete(ctx context.Context, id int64) (*domain.Task, error)
}
