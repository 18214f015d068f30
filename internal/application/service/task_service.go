package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
)

// TaskService manages to-do items around permits and properties
type TaskService interface {
	Create(ctx context.Context, task *entity.Task) (*entity.Task, error)
	Get(ctx context.Context, id int64) (*entity.Task, error)
	List(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error)
	Update(ctx context.Context, id int64, update entity.TaskUpdate) (*entity.Task, error)
	Delete(ctx context.Context, id int64) error
}

type taskServiceImpl struct {
	taskRepo     port.TaskRepository
	permitRepo   port.PermitRepository
	propertyRepo port.PropertyRepository
	logger       Logger
	now          func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo port.TaskRepository,
	permitRepo port.PermitRepository,
	propertyRepo port.PropertyRepository,
	logger Logger,
) TaskService {
	return &taskServiceImpl{
		taskRepo:     taskRepo,
		permitRepo:   permitRepo,
		propertyRepo: propertyRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Create stores a new task. The referenced permit and property must exist.
func (s *taskServiceImpl) Create(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if task.Status == "" {
		task.Status = entity.TaskStatusTodo
	}
	if !isTaskStatus(task.Status) {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrValidation, task.Status)
	}

	if task.PermitID != nil {
		p, err := s.permitRepo.GetByID(ctx, *task.PermitID)
		if err != nil {
			return nil, fmt.Errorf("get permit: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("%w: permit %d", ErrNotFound, *task.PermitID)
		}
		// A permit task belongs to the permit's property
		if task.PropertyID == nil {
			task.PropertyID = &p.PropertyID
		}
	}
	if task.PropertyID != nil {
		property, err := s.propertyRepo.GetByID(ctx, *task.PropertyID)
		if err != nil {
			return nil, fmt.Errorf("get property: %w", err)
		}
		if property == nil {
			return nil, fmt.Errorf("%w: property %d", ErrNotFound, *task.PropertyID)
		}
	}

	task.CompletedAt = nil
	if task.Status == entity.TaskStatusDone {
		now := s.now().UTC()
		task.CompletedAt = &now
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		s.logger.Error("Failed to create task", "error", err)
		return nil, err
	}

	s.logger.Info("Task created", "id", task.ID, "title", task.Title)
	return task, nil
}

// Get retrieves a task by ID
func (s *taskServiceImpl) Get(ctx context.Context, id int64) (*entity.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get task", "error", err, "id", id)
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	return task, nil
}

// List retrieves tasks matching filter
func (s *taskServiceImpl) List(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error) {
	if filter.Status != nil && !isTaskStatus(*filter.Status) {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrValidation, *filter.Status)
	}

	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list tasks", "error", err)
		return nil, err
	}
	return tasks, nil
}

// Update applies a partial update. Moving to DONE stamps completed_at and
// leaving DONE clears it.
func (s *taskServiceImpl) Update(ctx context.Context, id int64, update entity.TaskUpdate) (*entity.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
		}
		task.Title = title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.DueDate != nil {
		due := update.DueDate.UTC()
		task.DueDate = &due
	}
	if update.Assignee != nil {
		task.Assignee = *update.Assignee
	}
	if update.Status != nil {
		if !isTaskStatus(*update.Status) {
			return nil, fmt.Errorf("%w: unknown task status %q", ErrValidation, *update.Status)
		}
		switch {
		case *update.Status == entity.TaskStatusDone && task.Status != entity.TaskStatusDone:
			now := s.now().UTC()
			task.CompletedAt = &now
		case *update.Status != entity.TaskStatusDone:
			task.CompletedAt = nil
		}
		task.Status = *update.Status
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: task %d", ErrNotFound, id)
		}
		s.logger.Error("Failed to update task", "error", err, "id", id)
		return nil, err
	}

	s.logger.Info("Task updated", "id", id, "status", task.Status)
	return task, nil
}

// Delete removes a task
func (s *taskServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return fmt.Errorf("%w: task %d", ErrNotFound, id)
		}
		s.logger.Error("Failed to delete task", "error", err, "id", id)
		return err
	}

	s.logger.Info("Task deleted", "id", id)
	return nil
}

func isTaskStatus(status string) bool {
	switch status {
	case entity.TaskStatusTodo, entity.TaskStatusInProgress, entity.TaskStatusDone:
		return true
	}
	return false
}
