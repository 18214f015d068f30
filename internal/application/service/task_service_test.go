package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
)

func TestTaskService_CreateInheritsPermitProperty(t *testing.T) {
	permitRepo := &mockPermitRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.Permit, error) {
		return &entity.Permit{ID: id, PropertyID: 42}, nil
	}}
	svc := NewTaskService(&mockTaskRepo{}, permitRepo, &mockPropertyRepo{}, &mockLogger{})

	permitID := int64(5)
	task, err := svc.Create(context.Background(), &entity.Task{PermitID: &permitID, Title: "Book framing inspection"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if task.Status != entity.TaskStatusTodo {
		t.Errorf("Create() status = %v, want TODO", task.Status)
	}
	if task.PropertyID == nil || *task.PropertyID != 42 {
		t.Errorf("Create() property = %v, want 42", task.PropertyID)
	}
}

func TestTaskService_CreateValidation(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{}, &mockPermitRepo{}, &mockPropertyRepo{}, &mockLogger{})

	if _, err := svc.Create(context.Background(), &entity.Task{Title: " "}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank title error = %v, want ErrValidation", err)
	}
	if _, err := svc.Create(context.Background(), &entity.Task{Title: "x", Status: "BLOCKED"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad status error = %v, want ErrValidation", err)
	}

	noPermit := NewTaskService(&mockTaskRepo{}, &mockPermitRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.Permit, error) {
		return nil, nil
	}}, &mockPropertyRepo{}, &mockLogger{})
	permitID := int64(5)
	if _, err := noPermit.Create(context.Background(), &entity.Task{Title: "x", PermitID: &permitID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing permit error = %v, want ErrNotFound", err)
	}
}

func TestTaskService_UpdateCompletion(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	done := entity.TaskStatusDone
	todo := entity.TaskStatusTodo

	tests := []struct {
		name          string
		current       entity.Task
		status        *string
		wantCompleted bool
	}{
		{name: "finish", current: entity.Task{Status: entity.TaskStatusInProgress}, status: &done, wantCompleted: true},
		{name: "reopen", current: entity.Task{Status: entity.TaskStatusDone, CompletedAt: &now}, status: &todo, wantCompleted: false},
		{name: "unchanged done", current: entity.Task{Status: entity.TaskStatusDone, CompletedAt: &now}, status: nil, wantCompleted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTaskRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.Task, error) {
				task := tt.current
				task.ID = id
				task.Title = "Pay plan review fee"
				return &task, nil
			}}
			svc := NewTaskService(repo, &mockPermitRepo{}, &mockPropertyRepo{}, &mockLogger{}).(*taskServiceImpl)
			svc.now = func() time.Time { return now }

			task, err := svc.Update(context.Background(), 1, entity.TaskUpdate{Status: tt.status})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if (task.CompletedAt != nil) != tt.wantCompleted {
				t.Errorf("Update() completed_at = %v, want set=%v", task.CompletedAt, tt.wantCompleted)
			}
		})
	}
}

func TestTaskService_DeleteMissing(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{}, &mockPermitRepo{}, &mockPropertyRepo{}, &mockLogger{})

	if err := svc.Delete(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
