package services

import (
	"context"

	"github.com/liquidtasks/core/internal/application/query"
	"github.com/liquidtasks/core/internal/application/store"
	syncsvc "github.com/liquidtasks/core/internal/application/sync"
	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/ports"
)

// TaskService is the mutation API: the only sanctioned entry points for
// changing task data. Every change is applied to the store first and
// unconditionally; the remote mirror is fire-and-forget on top of it.
type TaskService struct {
	store  *store.Store
	sync   *syncsvc.Service
	logger *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(st *store.Store, sync *syncsvc.Service, log *logger.Logger) *TaskService {
	return &TaskService{
		store:  st,
		sync:   sync,
		logger: log.WithComponent("tasks"),
	}
}

// Create validates and inserts a new task. A title that is empty after
// trimming is silently rejected: the store is left untouched and no task is
// returned.
func (s *TaskService) Create(ctx context.Context, req ports.CreateTaskRequest) (entities.Task, error) {
	task, err := entities.NewTask(req.Title, req.Description, req.Category, req.Priority, req.DueDate)
	if err != nil {
		return entities.Task{}, err
	}

	if owner := s.sync.UserID(); owner != "" {
		task = task.WithOwner(owner)
	}

	s.store.Upsert(task)
	s.sync.Push(ctx, task)

	s.logger.Infow("Task created", "task_id", task.ID, "title", task.Title)
	return task, nil
}

// Update merges the partial fields onto the record with the given id.
// An unknown id is a no-op.
func (s *TaskService) Update(ctx context.Context, id string, req ports.UpdateTaskRequest) (entities.Task, error) {
	current, ok := s.store.Get(id)
	if !ok {
		return entities.Task{}, entities.ErrTaskNotFound
	}

	updated := req.Patch().Apply(current)
	s.store.Upsert(updated)
	s.sync.Push(ctx, updated)

	s.logger.Infow("Task updated", "task_id", id)
	return updated, nil
}

// ToggleCompletion flips the completed flag of the record with the given id.
func (s *TaskService) ToggleCompletion(ctx context.Context, id string) (entities.Task, error) {
	current, ok := s.store.Get(id)
	if !ok {
		return entities.Task{}, entities.ErrTaskNotFound
	}

	updated := current.WithCompleted(!current.Completed)
	s.store.Upsert(updated)
	s.sync.Push(ctx, updated)

	return updated, nil
}

// Delete removes the record with the given id. Deleting an absent id leaves
// the collection unchanged.
func (s *TaskService) Delete(ctx context.Context, id string) {
	s.store.Remove(id)
	s.sync.Remove(ctx, id)
}

// List returns the filtered, newest-first view of the current snapshot.
func (s *TaskService) List(q ports.TaskQuery) []entities.Task {
	return query.View(s.store.Snapshot(), q.Search, q.Category)
}

// Stats returns the aggregate counters for the current snapshot.
func (s *TaskService) Stats() entities.Stats {
	return query.ComputeStats(s.store.Snapshot())
}

// Get returns one record by id.
func (s *TaskService) Get(id string) (entities.Task, error) {
	task, ok := s.store.Get(id)
	if !ok {
		return entities.Task{}, entities.ErrTaskNotFound
	}
	return task, nil
}
