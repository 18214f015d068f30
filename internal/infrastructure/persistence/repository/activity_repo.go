package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ActivityRepository implements port.ActivityRepository
type ActivityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sql.DB, logger *zap.Logger) port.ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an entry to a permit's audit trail
func (r *ActivityRepository) Create(ctx context.Context, activity *entity.Activity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO permit_activity (permit_id, actor, action, from_status, to_status, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		activity.PermitID,
		activity.Actor,
		activity.Action,
		activity.FromStatus,
		activity.ToStatus,
		activity.Detail,
		activity.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create activity",
			zap.Int64("permit_id", activity.PermitID),
			zap.String("action", activity.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	activity.ID = id
	return nil
}

// ListByPermit retrieves a permit's audit trail, newest first
func (r *ActivityRepository) ListByPermit(ctx context.Context, permitID int64, limit, offset int) ([]*entity.Activity, error) {
	limit, offset = pageArgs(limit, offset)
	query := `
		SELECT id, permit_id, actor, action, from_status, to_status, detail, created_at
		FROM permit_activity
		WHERE permit_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, permitID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list activity", zap.Int64("permit_id", permitID), zap.Error(err))
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	activities := make([]*entity.Activity, 0)
	for rows.Next() {
		var a entity.Activity
		if err := rows.Scan(
			&a.ID,
			&a.PermitID,
			&a.Actor,
			&a.Action,
			&a.FromStatus,
			&a.ToStatus,
			&a.Detail,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}

var _ port.ActivityRepository = (*ActivityRepository)(nil)
