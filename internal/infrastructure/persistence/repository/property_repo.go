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

const propertyColumns = `id, name, address, city, state, zip, parcel_number, notes, created_at, updated_at`

// PropertyRepository implements port.PropertyRepository
type PropertyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *sql.DB, logger *zap.Logger) port.PropertyRepository {
	return &PropertyRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a property and sets its ID
func (r *PropertyRepository) Create(ctx context.Context, property *entity.Property) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO properties (
			name, address, city, state, zip, parcel_number, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		property.Name,
		property.Address,
		property.City,
		property.State,
		property.Zip,
		property.ParcelNumber,
		property.Notes,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create property", zap.Error(err))
		return fmt.Errorf("failed to create property: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	property.ID = id
	property.CreatedAt = now
	property.UpdatedAt = now
	return nil
}

// GetByID retrieves a property by ID
func (r *PropertyRepository) GetByID(ctx context.Context, id int64) (*entity.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = ?`

	property, err := scanProperty(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get property by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return property, nil
}

// List retrieves properties ordered by name
func (r *PropertyRepository) List(ctx context.Context, limit, offset int) ([]*entity.Property, error) {
	limit, offset = pageArgs(limit, offset)
	query := `SELECT ` + propertyColumns + ` FROM properties ORDER BY name ASC, id ASC LIMIT ? OFFSET ?`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list properties", zap.Error(err))
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	properties := make([]*entity.Property, 0)
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, property)
	}
	return properties, rows.Err()
}

// Update overwrites the editable columns of a property
func (r *PropertyRepository) Update(ctx context.Context, property *entity.Property) error {
	now := time.Now().UTC()
	query := `
		UPDATE properties SET
			name = ?, address = ?, city = ?, state = ?, zip = ?,
			parcel_number = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		property.Name,
		property.Address,
		property.City,
		property.State,
		property.Zip,
		property.ParcelNumber,
		property.Notes,
		now,
		property.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update property", zap.Int64("id", property.ID), zap.Error(err))
		return fmt.Errorf("failed to update property: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	property.UpdatedAt = now
	return nil
}

// Delete removes a property
func (r *PropertyRepository) Delete(ctx context.Context, id int64) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete property", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete property: %w", err)
	}
	return requireAffected(result)
}

func scanProperty(s scanner) (*entity.Property, error) {
	var p entity.Property
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Address,
		&p.City,
		&p.State,
		&p.Zip,
		&p.ParcelNumber,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// requireAffected maps a zero-row mutation to port.ErrRecordNotFound
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return port.ErrRecordNotFound
	}
	return nil
}

var _ port.PropertyRepository = (*PropertyRepository)(nil)
