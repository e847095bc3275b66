package postgres

import (
	"context"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

const taskColumns = `id, title, description, status, created_at`

type taskRepository struct {
	db DBTX
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(db DBTX) repository.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) List(ctx context.Context) ([]domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, translateError(err, domain.ErrTaskNotFound)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, domain.ErrTaskNotFound)
	}
	return tasks, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.db.QueryRow(ctx, query, id))
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO tasks (title, description, status)
	VALUES ($1, $2, $3)
	RETURNING ` + taskColumns

	return scanTask(r.db.QueryRow(ctx, query, task.Title, task.Description, task.Status))
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		status = $4
	WHERE id = $1
	RETURNING ` + taskColumns

	return scanTask(r.db.QueryRow(ctx, query, task.ID, task.Title, task.Description, task.Status))
}

func (r *taskRepository) Delete(ctx context.Context, id int64) (*domain.Task, error) {
	const query = `DELETE FROM tasks WHERE id = $1 RETURNING ` + taskColumns
	return scanTask(r.db.QueryRow(ctx, query, id))
}

func scanTask(row interface {
	Scan(dest ...any) error
}) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.CreatedAt,
	); err != nil {
		return nil, translateError(err, domain.ErrTaskNotFound)
	}
	return &task, nil
}
