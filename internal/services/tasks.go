package services

import (
	"context"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

// TaskFilter fields left empty impose no constraint.
type TaskFilter struct {
	Category string
	Status   string
	Priority string
	Search   string
}

type TaskService interface {
	ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, input models.TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, changes []byte) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type TaskServiceImpl struct {
	tasks collection[models.Task]
}

func NewTaskService(tasks store.Collection[models.Task], opts Options) *TaskServiceImpl {
	return &TaskServiceImpl{tasks: newCollection("Task", store.TasksName, tasks, opts)}
}

// ListTasks returns the newest tasks first.
func (s *TaskServiceImpl) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	var filter store.Filter
	if f.Category != "" {
		filter = append(filter, store.Eq("category", f.Category))
	}
	if f.Status != "" {
		filter = append(filter, store.Eq("status", f.Status))
	}
	if f.Priority != "" {
		filter = append(filter, store.Eq("priority", f.Priority))
	}
	if f.Search != "" {
		filter = append(filter, store.ContainsFold("title", f.Search))
	}

	return s.tasks.list(ctx, store.Query{
		Filter: filter,
		Sort:   []store.SortField{store.Desc("created_at")},
	})
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, id string) (*models.Task, error) {
	_, task, err := s.tasks.get(ctx, id)
	return task, err
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, input models.TaskInput) (*models.Task, error) {
	task, err := models.NewTask(input, s.tasks.now())
	if err != nil {
		return nil, err
	}
	if err := s.tasks.insert(ctx, task.ID, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask merges changes without re-checking priority or status, so a
// value outside the create-time enums is stored as given.
func (s *TaskServiceImpl) UpdateTask(ctx context.Context, id string, changes []byte) (*models.Task, error) {
	return s.tasks.merge(ctx, id, changes, func(merged, stored *models.Task) {
		merged.ID = stored.ID
		merged.CreatedAt = stored.CreatedAt
		merged.UpdatedAt = s.tasks.touch(stored.UpdatedAt)
	})
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, id string) error {
	return s.tasks.remove(ctx, id)
}
