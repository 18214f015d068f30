package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const inspectionColumns = `id, permit_id, inspection_type, scheduled_date, inspector, result,
	notes, completed_at, created_at, updated_at`

// InspectionRepository implements port.InspectionRepository
type InspectionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInspectionRepository creates a new inspection repository
func NewInspectionRepository(db *sql.DB, logger *zap.Logger) port.InspectionRepository {
	return &InspectionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an inspection and sets its ID
func (r *InspectionRepository) Create(ctx context.Context, inspection *entity.Inspection) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO inspections (
			permit_id, inspection_type, scheduled_date, inspector, result,
			notes, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		inspection.PermitID,
		inspection.InspectionType,
		inspection.ScheduledDate.UTC(),
		inspection.Inspector,
		inspection.Result,
		inspection.Notes,
		nullableTime(inspection.CompletedAt),
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create inspection", zap.Int64("permit_id", inspection.PermitID), zap.Error(err))
		return fmt.Errorf("failed to create inspection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	inspection.ID = id
	inspection.CreatedAt = now
	inspection.UpdatedAt = now
	return nil
}

// GetByID retrieves an inspection by ID
func (r *InspectionRepository) GetByID(ctx context.Context, id int64) (*entity.Inspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections WHERE id = ?`

	inspection, err := scanInspection(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get inspection by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	return inspection, nil
}

// ListByPermit retrieves a permit's inspections by scheduled date
func (r *InspectionRepository) ListByPermit(ctx context.Context, permitID int64) ([]*entity.Inspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections WHERE permit_id = ? ORDER BY scheduled_date ASC, id ASC`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, permitID)
	if err != nil {
		r.logger.Error("Failed to list inspections", zap.Int64("permit_id", permitID), zap.Error(err))
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	inspections := make([]*entity.Inspection, 0)
	for rows.Next() {
		inspection, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, inspection)
	}
	return inspections, rows.Err()
}

// Update overwrites the editable columns of an inspection
func (r *InspectionRepository) Update(ctx context.Context, inspection *entity.Inspection) error {
	now := time.Now().UTC()
	query := `
		UPDATE inspections SET
			inspection_type = ?, scheduled_date = ?, inspector = ?, result = ?,
			notes = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		inspection.InspectionType,
		inspection.ScheduledDate.UTC(),
		inspection.Inspector,
		inspection.Result,
		inspection.Notes,
		nullableTime(inspection.CompletedAt),
		now,
		inspection.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update inspection", zap.Int64("id", inspection.ID), zap.Error(err))
		return fmt.Errorf("failed to update inspection: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	inspection.UpdatedAt = now
	return nil
}

func scanInspection(s scanner) (*entity.Inspection, error) {
	var i entity.Inspection
	var completedAt sql.NullTime

	err := s.Scan(
		&i.ID,
		&i.PermitID,
		&i.InspectionType,
		&i.ScheduledDate,
		&i.Inspector,
		&i.Result,
		&i.Notes,
		&completedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	i.CompletedAt = timePtr(completedAt)
	return &i, nil
}

var _ port.InspectionRepository = (*InspectionRepository)(nil)
