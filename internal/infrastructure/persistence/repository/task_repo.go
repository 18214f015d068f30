package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const taskColumns = `id, permit_id, property_id, title, description, status, due_date,
	assignee, completed_at, created_at, updated_at`

// TaskRepository implements port.TaskRepository
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a task and sets its ID
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO tasks (
			permit_id, property_id, title, description, status, due_date,
			assignee, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		nullableInt64(task.PermitID),
		nullableInt64(task.PropertyID),
		task.Title,
		task.Description,
		task.Status,
		nullableTime(task.DueDate),
		task.Assignee,
		nullableTime(task.CompletedAt),
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create task", zap.Error(err))
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	task, err := scanTask(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// List retrieves tasks matching filter. Open tasks with the nearest due
// date come first.
func (r *TaskRepository) List(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error) {
	var where []string
	var args []interface{}

	if filter.PermitID != nil {
		where = append(where, "permit_id = ?")
		args = append(args, *filter.PermitID)
	}
	if filter.PropertyID != nil {
		where = append(where, "property_id = ?")
		args = append(args, *filter.PropertyID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY (status = 'DONE') ASC, due_date IS NULL ASC, due_date ASC, id ASC LIMIT ? OFFSET ?`

	limit, offset := pageArgs(filter.Limit, filter.Offset)
	args = append(args, limit, offset)

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Error(err))
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*entity.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Update overwrites the editable columns of a task
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	now := time.Now().UTC()
	query := `
		UPDATE tasks SET
			title = ?, description = ?, status = ?, due_date = ?,
			assignee = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		nullableTime(task.DueDate),
		task.Assignee,
		nullableTime(task.CompletedAt),
		now,
		task.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update task", zap.Int64("id", task.ID), zap.Error(err))
		return fmt.Errorf("failed to update task: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	task.UpdatedAt = now
	return nil
}

// Delete removes a task
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireAffected(result)
}

func scanTask(s scanner) (*entity.Task, error) {
	var t entity.Task
	var permitID, propertyID sql.NullInt64
	var dueDate, completedAt sql.NullTime

	err := s.Scan(
		&t.ID,
		&permitID,
		&propertyID,
		&t.Title,
		&t.Description,
		&t.Status,
		&dueDate,
		&t.Assignee,
		&completedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.PermitID = int64Ptr(permitID)
	t.PropertyID = int64Ptr(propertyID)
	t.DueDate = timePtr(dueDate)
	t.CompletedAt = timePtr(completedAt)
	return &t, nil
}

var _ port.TaskRepository = (*TaskRepository)(nil)
