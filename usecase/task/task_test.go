package task

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Task
	err    error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]domain.Task)}
}

func (m *memoryRepo) List(ctx context.Context) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Task, 0, len(m.rows))
	for _, t := range m.rows {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (m *memoryRepo) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.nextID++
	row := *task
	row.ID = m.nextID
	row.CreatedAt = time.Now().UTC()
	m.rows[row.ID] = row
	return &row, nil
}

func (m *memoryRepo) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.rows[task.ID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	row.Title, row.Description, row.Status = task.Title, task.Description, task.Status
	m.rows[row.ID] = row
	return &row, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	delete(m.rows, id)
	return &row, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestCreateThenListContainsFreshID(t *testing.T) {
	uc := New(newMemoryRepo(), &recordingPublisher{}, nil)
	ctx := context.Background()

	first, err := uc.CreateTask(ctx, &domain.Task{Title: "first"})
	require.NoError(t, err)

	created, err := uc.CreateTask(ctx, &domain.Task{Title: "A"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, created.ID)
	assert.Equal(t, domain.DefaultTaskStatus, created.Status)

	tasks, err := uc.ListTasks(ctx)
	require.NoError(t, err)
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Contains(t, titles, "A")
}

func TestMutationsPublishOneEventEach(t *testing.T) {
	pub := &recordingPublisher{}
	uc := New(newMemoryRepo(), pub, nil)
	ctx := context.Background()

	created, err := uc.CreateTask(ctx, &domain.Task{Title: "Buy milk", Status: "pending"})
	require.NoError(t, err)

	updated, err := uc.UpdateTask(ctx, &domain.Task{ID: created.ID, Title: "Buy oat milk", Status: "done"})
	require.NoError(t, err)

	deleted, err := uc.DeleteTask(ctx, created.ID)
	require.NoError(t, err)

	_, err = uc.ListTasks(ctx)
	require.NoError(t, err)
	_, err = uc.GetTask(ctx, created.ID)
	require.Error(t, err)

	require.Len(t, pub.events, 3)
	assert.Equal(t, domain.ChangeEvent{Action: domain.ActionCreate, Task: *created}, pub.events[0])
	assert.Equal(t, domain.ChangeEvent{Action: domain.ActionUpdate, Task: *updated}, pub.events[1])
	assert.Equal(t, domain.ChangeEvent{Action: domain.ActionDelete, Task: *deleted}, pub.events[2])
	assert.Equal(t, "Buy oat milk", pub.events[2].Task.Title)
}

func TestNotFoundIsDistinct(t *testing.T) {
	pub := &recordingPublisher{}
	uc := New(newMemoryRepo(), pub, nil)
	ctx := context.Background()

	_, err := uc.DeleteTask(ctx, 99)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
	assert.False(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
	assert.False(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.UpdateTask(ctx, &domain.Task{ID: 99, Title: "x"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
	assert.Empty(t, pub.events)
}

func TestGetAfterDeleteIsNotFound(t *testing.T) {
	uc := New(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	created, err := uc.CreateTask(ctx, &domain.Task{Title: "temp"})
	require.NoError(t, err)
	_, err = uc.DeleteTask(ctx, created.ID)
	require.NoError(t, err)

	_, err = uc.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestValidationFailure(t *testing.T) {
	pub := &recordingPublisher{}
	uc := New(newMemoryRepo(), pub, nil)

	_, err := uc.CreateTask(context.Background(), &domain.Task{Title: "   "})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.CreateTask(context.Background(), nil)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	assert.Empty(t, pub.events)
}

func TestStoreUnavailableSkipsPublish(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = domain.WrapError(domain.ErrCodeUnavailable, "database connection failed", errors.New("dial tcp: refused"))
	pub := &recordingPublisher{}
	uc := New(repo, pub, nil)

	_, err := uc.CreateTask(context.Background(), &domain.Task{Title: "A"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
	assert.Empty(t, pub.events)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("relay down")}
	uc := New(newMemoryRepo(), pub, nil)

	created, err := uc.CreateTask(context.Background(), &domain.Task{Title: "A"})
	require.NoError(t, err)
	assert.Equal(t, "A", created.Title)
	assert.Len(t, pub.events, 1)
}
