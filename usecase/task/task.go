package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/logger"
	"github.com/fastygo/taskhub/repository"
	"github.com/fastygo/taskhub/usecase"
)

type UseCase struct {
	tasks  repository.TaskRepository
	events usecase.EventPublisher
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, events usecase.EventPublisher, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		events: events,
		logger: logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return uc.tasks.List(ctx)
}

func (uc *UseCase) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, id)
}

func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if err := validate(task); err != nil {
		return nil, err
	}
	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, domain.ActionCreate, created)
	return created, nil
}

// UpdateTask replaces title, description and status of the task identified by task.ID.
func (uc *UseCase) UpdateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if err := validate(task); err != nil {
		return nil, err
	}
	updated, err := uc.tasks.Update(ctx, task)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, domain.ActionUpdate, updated)
	return updated, nil
}

// DeleteTask removes the task and returns the row image it had just before deletion.
func (uc *UseCase) DeleteTask(ctx context.Context, id int64) (*domain.Task, error) {
	deleted, err := uc.tasks.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, domain.ActionDelete, deleted)
	return deleted, nil
}

func (uc *UseCase) publish(ctx context.Context, action domain.ChangeAction, task *domain.Task) {
	if uc.events == nil || task == nil {
		return
	}
	if err := uc.events.Publish(ctx, domain.ChangeEvent{Action: action, Task: *task}); err != nil {
		logger.WithRequestID(ctx, uc.logger).Warn("failed to publish task change",
			zap.String("action", string(action)),
			zap.Int64("task_id", task.ID),
			zap.Error(err))
	}
}

func validate(task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	task.Normalize()
	if task.Title == "" {
		return domain.NewError(domain.ErrCodeInvalid, "title is required")
	}
	return nil
}
