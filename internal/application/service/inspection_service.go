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

// ScheduleInspectionInput describes an inspection to book
type ScheduleInspectionInput struct {
	InspectionType string
	ScheduledDate  time.Time
	Inspector      string
	Notes          string
}

// InspectionResultInput records the outcome of an inspection
type InspectionResultInput struct {
	Result string
	Notes  *string
}

// InspectionService books inspections and keeps the permit status in step
// with their outcome
type InspectionService interface {
	Schedule(ctx context.Context, actor string, permitID int64, in ScheduleInspectionInput) (*entity.Inspection, error)
	RecordResult(ctx context.Context, actor string, inspectionID int64, in InspectionResultInput) (*entity.Inspection, error)
	ListByPermit(ctx context.Context, permitID int64) ([]*entity.Inspection, error)
}

type inspectionServiceImpl struct {
	inspectionRepo port.InspectionRepository
	permitRepo     port.PermitRepository
	activityRepo   port.ActivityRepository
	permits        PermitService
	txManager      port.TransactionManager
	logger         Logger
	now            func() time.Time
}

// NewInspectionService creates a new InspectionService
func NewInspectionService(
	inspectionRepo port.InspectionRepository,
	permitRepo port.PermitRepository,
	activityRepo port.ActivityRepository,
	permits PermitService,
	txManager port.TransactionManager,
	logger Logger,
) InspectionService {
	return &inspectionServiceImpl{
		inspectionRepo: inspectionRepo,
		permitRepo:     permitRepo,
		activityRepo:   activityRepo,
		permits:        permits,
		txManager:      txManager,
		logger:         logger,
		now:            time.Now,
	}
}

// Schedule books an inspection on an issued permit. A permit waiting for
// its first inspection or a re-inspection is moved to INSPECTION_SCHEDULED.
func (s *inspectionServiceImpl) Schedule(ctx context.Context, actor string, permitID int64, in ScheduleInspectionInput) (*entity.Inspection, error) {
	in.InspectionType = strings.TrimSpace(in.InspectionType)
	if in.InspectionType == "" {
		return nil, fmt.Errorf("%w: inspection_type is required", ErrValidation)
	}
	if in.ScheduledDate.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_date is required", ErrValidation)
	}

	p, err := s.loadPermit(ctx, permitID)
	if err != nil {
		return nil, err
	}
	if !isIssued(p.Status) {
		return nil, fmt.Errorf("%w: inspections need an issued permit, permit %d is %s", ErrConflict, permitID, p.Status)
	}

	actor = actorOrSystem(actor)
	inspection := &entity.Inspection{
		PermitID:       permitID,
		InspectionType: in.InspectionType,
		ScheduledDate:  in.ScheduledDate.UTC(),
		Inspector:      in.Inspector,
		Result:         entity.InspectionResultPending,
		Notes:          in.Notes,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.inspectionRepo.Create(txCtx, inspection); err != nil {
			return fmt.Errorf("create inspection: %w", err)
		}
		return s.activityRepo.Create(txCtx, &entity.Activity{
			PermitID:  permitID,
			Actor:     actor,
			Action:    entity.ActivityInspectionScheduled,
			Detail:    fmt.Sprintf("%s on %s", inspection.InspectionType, inspection.ScheduledDate.Format("2006-01-02")),
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		s.logger.Error("Failed to schedule inspection", "error", err, "permit_id", permitID)
		return nil, err
	}

	s.logger.Info("Inspection scheduled", "id", inspection.ID, "permit_id", permitID, "type", inspection.InspectionType)
	s.advance(ctx, actor, p, permit.StatusInspectionScheduled, inspection)
	return inspection, nil
}

// RecordResult stores PASSED or FAILED for a pending inspection and moves
// a permit in INSPECTION_SCHEDULED on to the matching status
func (s *inspectionServiceImpl) RecordResult(ctx context.Context, actor string, inspectionID int64, in InspectionResultInput) (*entity.Inspection, error) {
	var target permit.Status
	switch in.Result {
	case entity.InspectionResultPassed:
		target = permit.StatusInspectionPassed
	case entity.InspectionResultFailed:
		target = permit.StatusInspectionFailed
	default:
		return nil, fmt.Errorf("%w: result must be %s or %s", ErrValidation, entity.InspectionResultPassed, entity.InspectionResultFailed)
	}

	inspection, err := s.inspectionRepo.GetByID(ctx, inspectionID)
	if err != nil {
		s.logger.Error("Failed to get inspection", "error", err, "id", inspectionID)
		return nil, err
	}
	if inspection == nil {
		return nil, fmt.Errorf("%w: inspection %d", ErrNotFound, inspectionID)
	}
	if inspection.Result != entity.InspectionResultPending {
		return nil, fmt.Errorf("%w: inspection %d already %s", ErrConflict, inspectionID, inspection.Result)
	}

	actor = actorOrSystem(actor)
	now := s.now().UTC()
	inspection.Result = in.Result
	inspection.CompletedAt = &now
	if in.Notes != nil {
		inspection.Notes = *in.Notes
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.inspectionRepo.Update(txCtx, inspection); err != nil {
			if errors.Is(err, port.ErrRecordNotFound) {
				return fmt.Errorf("%w: inspection %d", ErrNotFound, inspectionID)
			}
			return fmt.Errorf("update inspection: %w", err)
		}
		return s.activityRepo.Create(txCtx, &entity.Activity{
			PermitID:  inspection.PermitID,
			Actor:     actor,
			Action:    entity.ActivityInspectionResult,
			Detail:    fmt.Sprintf("%s %s", inspection.InspectionType, inspection.Result),
			CreatedAt: now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to record inspection result", "error", err, "id", inspectionID)
		return nil, err
	}

	s.logger.Info("Inspection result recorded", "id", inspectionID, "result", inspection.Result)

	p, err := s.loadPermit(ctx, inspection.PermitID)
	if err != nil {
		s.logger.Error("Failed to load permit after inspection", "error", err, "permit_id", inspection.PermitID)
		return inspection, nil
	}
	s.advance(ctx, actor, p, target, inspection)
	return inspection, nil
}

// ListByPermit retrieves a permit's inspections
func (s *inspectionServiceImpl) ListByPermit(ctx context.Context, permitID int64) ([]*entity.Inspection, error) {
	if _, err := s.loadPermit(ctx, permitID); err != nil {
		return nil, err
	}

	inspections, err := s.inspectionRepo.ListByPermit(ctx, permitID)
	if err != nil {
		s.logger.Error("Failed to list inspections", "error", err, "permit_id", permitID)
		return nil, err
	}
	return inspections, nil
}

// advance moves the permit to target when the transition table allows it.
// The inspection is already stored, so a failure here is only logged.
func (s *inspectionServiceImpl) advance(ctx context.Context, actor string, p *entity.Permit, target permit.Status, inspection *entity.Inspection) {
	if !permit.CanTransition(p.Status, target) {
		return
	}

	detail := fmt.Sprintf("inspection #%d %s", inspection.ID, inspection.InspectionType)
	if _, err := s.permits.ChangeStatus(ctx, actor, p.ID, target, detail); err != nil {
		s.logger.Error("Failed to advance permit status", "error", err, "permit_id", p.ID, "to", target)
	}
}

func (s *inspectionServiceImpl) loadPermit(ctx context.Context, id int64) (*entity.Permit, error) {
	p, err := s.permitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get permit: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: permit %d", ErrNotFound, id)
	}
	return p, nil
}

func isIssued(status permit.Status) bool {
	for _, s := range permit.IssuedStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
