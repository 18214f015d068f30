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
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const permitColumns = `id, property_id, title, description, permit_type, permit_number,
	jurisdiction, status, estimated_cost_cents, fee_cents, notes,
	submitted_at, approved_at, issued_at, expires_at, closed_at, expiry_notified_at,
	created_at, updated_at`

// PermitRepository implements port.PermitRepository
type PermitRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPermitRepository creates a new permit repository
func NewPermitRepository(db *sql.DB, logger *zap.Logger) port.PermitRepository {
	return &PermitRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a permit and sets its ID
func (r *PermitRepository) Create(ctx context.Context, p *entity.Permit) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO permits (
			property_id, title, description, permit_type, permit_number,
			jurisdiction, status, estimated_cost_cents, fee_cents, notes,
			expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		p.PropertyID,
		p.Title,
		p.Description,
		p.PermitType,
		p.PermitNumber,
		p.Jurisdiction,
		string(p.Status),
		p.EstimatedCostCents,
		p.FeeCents,
		p.Notes,
		nullableTime(p.ExpiresAt),
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create permit", zap.Int64("property_id", p.PropertyID), zap.Error(err))
		return fmt.Errorf("failed to create permit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetByID retrieves a permit by ID
func (r *PermitRepository) GetByID(ctx context.Context, id int64) (*entity.Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE id = ?`

	p, err := scanPermit(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get permit by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get permit: %w", err)
	}
	return p, nil
}

// List retrieves permits matching filter, newest first
func (r *PermitRepository) List(ctx context.Context, filter entity.PermitFilter) ([]*entity.Permit, error) {
	var where []string
	var args []interface{}

	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.PropertyID != nil {
		where = append(where, "property_id = ?")
		args = append(args, *filter.PropertyID)
	}

	query := `SELECT ` + permitColumns + ` FROM permits`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

	limit, offset := pageArgs(filter.Limit, filter.Offset)
	args = append(args, limit, offset)

	return r.query(ctx, query, args...)
}

// CountByProperty counts the permits filed against a property
func (r *PermitRepository) CountByProperty(ctx context.Context, propertyID int64) (int, error) {
	var count int
	err := sqlite.ExecutorFor(ctx, r.db).
		QueryRowContext(ctx, `SELECT COUNT(*) FROM permits WHERE property_id = ?`, propertyID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count permits: %w", err)
	}
	return count, nil
}

// Update writes the set fields of update and stamps in one statement
func (r *PermitRepository) Update(ctx context.Context, id int64, update entity.PermitUpdate, stamps permit.TimestampUpdates, expectedStatus *permit.Status) error {
	var sets []string
	var args []interface{}
	set := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Title != nil {
		set("title", *update.Title)
	}
	if update.Description != nil {
		set("description", *update.Description)
	}
	if update.PermitType != nil {
		set("permit_type", *update.PermitType)
	}
	if update.PermitNumber != nil {
		set("permit_number", *update.PermitNumber)
	}
	if update.Jurisdiction != nil {
		set("jurisdiction", *update.Jurisdiction)
	}
	if update.Status != nil {
		set("status", string(*update.Status))
	}
	if update.EstimatedCostCents != nil {
		set("estimated_cost_cents", *update.EstimatedCostCents)
	}
	if update.FeeCents != nil {
		set("fee_cents", *update.FeeCents)
	}
	if update.Notes != nil {
		set("notes", *update.Notes)
	}

	// An explicit expiry wins over the issuance default
	switch {
	case update.ExpiresAt != nil:
		set("expires_at", update.ExpiresAt.UTC())
	case stamps.ExpiresAt != nil:
		set("expires_at", stamps.ExpiresAt.UTC())
	}
	if update.ExpiresAt != nil || stamps.ExpiresAt != nil {
		sets = append(sets, "expiry_notified_at = NULL")
	}

	if stamps.SubmittedAt != nil {
		set("submitted_at", stamps.SubmittedAt.UTC())
	}
	if stamps.ApprovedAt != nil {
		set("approved_at", stamps.ApprovedAt.UTC())
	}
	if stamps.IssuedAt != nil {
		set("issued_at", stamps.IssuedAt.UTC())
	}
	if stamps.ClosedAt != nil {
		set("closed_at", stamps.ClosedAt.UTC())
	}

	set("updated_at", time.Now().UTC())

	query := "UPDATE permits SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)
	if expectedStatus != nil {
		query += " AND status = ?"
		args = append(args, string(*expectedStatus))
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update permit", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update permit: %w", err)
	}

	err = requireAffected(result)
	if errors.Is(err, port.ErrRecordNotFound) && expectedStatus != nil {
		return port.ErrStatusConflict
	}
	return err
}

// Delete removes a permit; dependent rows cascade
func (r *PermitRepository) Delete(ctx context.Context, id int64) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `DELETE FROM permits WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete permit", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete permit: %w", err)
	}
	return requireAffected(result)
}

// ListExpiring returns open, issued permits expiring before the cutoff
// that have not been reminded yet, soonest first
func (r *PermitRepository) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*entity.Permit, error) {
	issued := permit.IssuedStatuses()
	placeholders := make([]string, len(issued))
	args := []interface{}{before.UTC()}
	for i, s := range issued {
		placeholders[i] = "?"
		args = append(args, string(s))
	}
	args = append(args, limit)

	query := `SELECT ` + permitColumns + ` FROM permits
		WHERE expires_at IS NOT NULL AND expires_at <= ?
			AND expiry_notified_at IS NULL
			AND status IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY expires_at ASC
		LIMIT ?`

	return r.query(ctx, query, args...)
}

// MarkExpiryNotified records that the expiry reminder went out
func (r *PermitRepository) MarkExpiryNotified(ctx context.Context, id int64, at time.Time) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE permits SET expiry_notified_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		r.logger.Error("Failed to mark expiry notified", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark expiry notified: %w", err)
	}
	return requireAffected(result)
}

func (r *PermitRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Permit, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query permits", zap.Error(err))
		return nil, fmt.Errorf("failed to query permits: %w", err)
	}
	defer rows.Close()

	permits := make([]*entity.Permit, 0)
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permit: %w", err)
		}
		permits = append(permits, p)
	}
	return permits, rows.Err()
}

func scanPermit(s scanner) (*entity.Permit, error) {
	var p entity.Permit
	var status string
	var submittedAt, approvedAt, issuedAt, expiresAt, closedAt, notifiedAt sql.NullTime

	err := s.Scan(
		&p.ID,
		&p.PropertyID,
		&p.Title,
		&p.Description,
		&p.PermitType,
		&p.PermitNumber,
		&p.Jurisdiction,
		&status,
		&p.EstimatedCostCents,
		&p.FeeCents,
		&p.Notes,
		&submittedAt,
		&approvedAt,
		&issuedAt,
		&expiresAt,
		&closedAt,
		&notifiedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = permit.Status(status)
	p.SubmittedAt = timePtr(submittedAt)
	p.ApprovedAt = timePtr(approvedAt)
	p.IssuedAt = timePtr(issuedAt)
	p.ExpiresAt = timePtr(expiresAt)
	p.ClosedAt = timePtr(closedAt)
	p.ExpiryNotifiedAt = timePtr(notifiedAt)
	return &p, nil
}

var _ port.PermitRepository = (*PermitRepository)(nil)
