package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
)

// PermitService manages permits and their status lifecycle
type PermitService interface {
	Create(ctx context.Context, actor string, p *entity.Permit) (*entity.Permit, error)
	Get(ctx context.Context, id int64) (*entity.Permit, error)
	List(ctx context.Context, filter entity.PermitFilter) ([]*entity.Permit, error)

	// Update applies a partial update. A Status different from the stored
	// one is a transition request and is validated against the transition
	// table before anything is written.
	Update(ctx context.Context, actor string, id int64, update entity.PermitUpdate) (*entity.Permit, error)

	// ChangeStatus moves a permit to status, recording detail in the
	// activity log
	ChangeStatus(ctx context.Context, actor string, id int64, status permit.Status, detail string) (*entity.Permit, error)

	Delete(ctx context.Context, actor string, id int64) error
	History(ctx context.Context, id int64, limit, offset int) ([]*entity.Activity, error)
	Transitions(ctx context.Context, id int64) ([]permit.Status, error)
}

type permitServiceImpl struct {
	permitRepo   port.PermitRepository
	propertyRepo port.PropertyRepository
	activityRepo port.ActivityRepository
	documentRepo port.DocumentRepository
	storage      port.FileStorage
	notifier     NotificationService
	txManager    port.TransactionManager
	logger       Logger
	now          func() time.Time
}

// NewPermitService creates a new PermitService
func NewPermitService(
	permitRepo port.PermitRepository,
	propertyRepo port.PropertyRepository,
	activityRepo port.ActivityRepository,
	documentRepo port.DocumentRepository,
	storage port.FileStorage,
	notifier NotificationService,
	txManager port.TransactionManager,
	logger Logger,
) PermitService {
	return &permitServiceImpl{
		permitRepo:   permitRepo,
		propertyRepo: propertyRepo,
		activityRepo: activityRepo,
		documentRepo: documentRepo,
		storage:      storage,
		notifier:     notifier,
		txManager:    txManager,
		logger:       logger,
		now:          time.Now,
	}
}

// Create files a new permit. Every permit starts in DRAFT regardless of
// the status supplied.
func (s *permitServiceImpl) Create(ctx context.Context, actor string, p *entity.Permit) (*entity.Permit, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.PermitType = strings.TrimSpace(p.PermitType)
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.PermitType == "" {
		return nil, fmt.Errorf("%w: permit_type is required", ErrValidation)
	}
	if p.EstimatedCostCents < 0 || p.FeeCents < 0 {
		return nil, fmt.Errorf("%w: amounts must not be negative", ErrValidation)
	}

	property, err := s.propertyRepo.GetByID(ctx, p.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if property == nil {
		return nil, fmt.Errorf("%w: property %d", ErrNotFound, p.PropertyID)
	}

	p.Status = permit.InitialStatus
	p.SubmittedAt, p.ApprovedAt, p.IssuedAt, p.ClosedAt, p.ExpiryNotifiedAt = nil, nil, nil, nil, nil
	actor = actorOrSystem(actor)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.permitRepo.Create(txCtx, p); err != nil {
			return fmt.Errorf("create permit: %w", err)
		}

		activity := &entity.Activity{
			PermitID:  p.ID,
			Actor:     actor,
			Action:    entity.ActivityCreated,
			ToStatus:  string(p.Status),
			Detail:    p.Title,
			CreatedAt: s.now(),
		}
		if err := s.activityRepo.Create(txCtx, activity); err != nil {
			return fmt.Errorf("create activity: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create permit", "error", err, "property_id", p.PropertyID)
		return nil, err
	}

	s.logger.Info("Permit created", "id", p.ID, "property_id", p.PropertyID, "actor", actor)
	return p, nil
}

// Get retrieves a permit by ID
func (s *permitServiceImpl) Get(ctx context.Context, id int64) (*entity.Permit, error) {
	p, err := s.permitRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get permit", "error", err, "id", id)
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: permit %d", ErrNotFound, id)
	}
	return p, nil
}

// List retrieves permits matching filter
func (s *permitServiceImpl) List(ctx context.Context, filter entity.PermitFilter) ([]*entity.Permit, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", permit.ErrInvalidStatus, *filter.Status)
	}

	permits, err := s.permitRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list permits", "error", err)
		return nil, err
	}
	return permits, nil
}

// Update applies a partial update to a permit
func (s *permitServiceImpl) Update(ctx context.Context, actor string, id int64, update entity.PermitUpdate) (*entity.Permit, error) {
	return s.apply(ctx, actor, id, update, "", false)
}

// ChangeStatus moves a permit to status. Asking for the current status is
// rejected as a self-transition.
func (s *permitServiceImpl) ChangeStatus(ctx context.Context, actor string, id int64, status permit.Status, detail string) (*entity.Permit, error) {
	return s.apply(ctx, actor, id, entity.PermitUpdate{Status: &status}, detail, true)
}

// apply runs update against the stored permit. With explicit unset, a status
// equal to the stored one is dropped from the update instead of validated.
func (s *permitServiceImpl) apply(ctx context.Context, actor string, id int64, update entity.PermitUpdate, detail string, explicit bool) (*entity.Permit, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if err := validatePermitUpdate(update); err != nil {
		return nil, err
	}

	current, err := s.permitRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get permit", "error", err, "id", id)
		return nil, fmt.Errorf("get permit: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: permit %d", ErrNotFound, id)
	}

	// Restating the stored status in a partial update is not a transition
	if !explicit && update.Status != nil && *update.Status == current.Status {
		update.Status = nil
	}

	from := current.Status
	var stamps permit.TimestampUpdates
	var expected *permit.Status
	statusChanged := update.Status != nil

	if statusChanged {
		to := *update.Status
		if err := permit.ValidateTransition(from, to); err != nil {
			s.logger.Info("Rejected status transition", "id", id, "from", from, "to", to)
			return nil, err
		}

		expiresAt := current.ExpiresAt
		if update.ExpiresAt != nil {
			expiresAt = update.ExpiresAt
		}
		stamps = permit.DeriveUpdates(to, s.now().UTC(), expiresAt)
		expected = &from
	}

	if update.IsEmpty() {
		return current, nil
	}

	actor = actorOrSystem(actor)
	var updated *entity.Permit
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.permitRepo.Update(txCtx, id, update, stamps, expected); err != nil {
			switch {
			case errors.Is(err, port.ErrStatusConflict):
				return fmt.Errorf("%w: permit %d is no longer %s", ErrConflict, id, from)
			case errors.Is(err, port.ErrRecordNotFound):
				return fmt.Errorf("%w: permit %d", ErrNotFound, id)
			}
			return fmt.Errorf("update permit: %w", err)
		}

		activity := &entity.Activity{
			PermitID:  id,
			Actor:     actor,
			Action:    entity.ActivityUpdated,
			Detail:    detail,
			CreatedAt: s.now(),
		}
		if statusChanged {
			activity.Action = entity.ActivityStatusChanged
			activity.FromStatus = string(from)
			activity.ToStatus = string(*update.Status)
		}
		if activity.Detail == "" {
			activity.Detail = "changed " + strings.Join(changedFields(update), ", ")
		}
		if err := s.activityRepo.Create(txCtx, activity); err != nil {
			return fmt.Errorf("create activity: %w", err)
		}

		p, err := s.permitRepo.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("reload permit: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update permit", "error", err, "id", id)
		return nil, err
	}

	if statusChanged {
		s.logger.Info("Permit status changed", "id", id, "from", from, "to", updated.Status, "actor", actor)
		if err := s.notifier.NotifyStatusChange(ctx, updated, from, actor); err != nil {
			s.logger.Error("Failed to send status notification", "error", err, "id", id)
		}
	} else {
		s.logger.Info("Permit updated", "id", id, "actor", actor)
	}

	return updated, nil
}

// Delete removes a permit. Only early or finished permits can be deleted.
func (s *permitServiceImpl) Delete(ctx context.Context, actor string, id int64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !p.Status.IsDeletable() {
		return fmt.Errorf("%w: permit in status %s can not be deleted", ErrConflict, p.Status)
	}

	// Document rows go with the permit, so collect their files first
	docs, err := s.documentRepo.ListByPermit(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list permit documents", "error", err, "id", id)
		return err
	}

	if err := s.permitRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return fmt.Errorf("%w: permit %d", ErrNotFound, id)
		}
		s.logger.Error("Failed to delete permit", "error", err, "id", id)
		return err
	}

	for _, doc := range docs {
		if err := s.storage.Delete(ctx, doc.StoragePath); err != nil {
			s.logger.Error("Failed to remove stored file", "error", err, "path", doc.StoragePath, "permit_id", id)
		}
	}

	s.logger.Info("Permit deleted", "id", id, "status", p.Status, "actor", actorOrSystem(actor))
	return nil
}

// History retrieves a permit's activity log, newest first
func (s *permitServiceImpl) History(ctx context.Context, id int64, limit, offset int) ([]*entity.Activity, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	activities, err := s.activityRepo.ListByPermit(ctx, id, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list permit activity", "error", err, "id", id)
		return nil, err
	}
	return activities, nil
}

// Transitions returns the statuses the permit may move to next
func (s *permitServiceImpl) Transitions(ctx context.Context, id int64) ([]permit.Status, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return permit.AllowedNextStatuses(p.Status), nil
}

func validatePermitUpdate(u entity.PermitUpdate) error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if u.PermitType != nil && strings.TrimSpace(*u.PermitType) == "" {
		return fmt.Errorf("%w: permit_type must not be empty", ErrValidation)
	}
	if u.Status != nil && !u.Status.IsValid() {
		return fmt.Errorf("%w: %q", permit.ErrInvalidStatus, *u.Status)
	}
	if (u.EstimatedCostCents != nil && *u.EstimatedCostCents < 0) || (u.FeeCents != nil && *u.FeeCents < 0) {
		return fmt.Errorf("%w: amounts must not be negative", ErrValidation)
	}
	return nil
}

func changedFields(u entity.PermitUpdate) []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(u.Title != nil, "title")
	add(u.Description != nil, "description")
	add(u.PermitType != nil, "permit_type")
	add(u.PermitNumber != nil, "permit_number")
	add(u.Jurisdiction != nil, "jurisdiction")
	add(u.Status != nil, "status")
	add(u.EstimatedCostCents != nil, "estimated_cost_cents")
	add(u.FeeCents != nil, "fee_cents")
	add(u.Notes != nil, "notes")
	add(u.ExpiresAt != nil, "expires_at")
	return fields
}
