package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
)

// PropertyService manages the sites permits are filed against
type PropertyService interface {
	Create(ctx context.Context, property *entity.Property) (*entity.Property, error)
	Get(ctx context.Context, id int64) (*entity.Property, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Property, error)
	Update(ctx context.Context, property *entity.Property) (*entity.Property, error)
	Delete(ctx context.Context, id int64) error
}

type propertyServiceImpl struct {
	propertyRepo port.PropertyRepository
	permitRepo   port.PermitRepository
	logger       Logger
}

// NewPropertyService creates a new PropertyService
func NewPropertyService(
	propertyRepo port.PropertyRepository,
	permitRepo port.PermitRepository,
	logger Logger,
) PropertyService {
	return &propertyServiceImpl{
		propertyRepo: propertyRepo,
		permitRepo:   permitRepo,
		logger:       logger,
	}
}

// Create stores a new property
func (s *propertyServiceImpl) Create(ctx context.Context, property *entity.Property) (*entity.Property, error) {
	if err := validateProperty(property); err != nil {
		return nil, err
	}

	if err := s.propertyRepo.Create(ctx, property); err != nil {
		s.logger.Error("Failed to create property", "error", err)
		return nil, err
	}

	s.logger.Info("Property created", "id", property.ID, "name", property.Name)
	return property, nil
}

// Get retrieves a property by ID
func (s *propertyServiceImpl) Get(ctx context.Context, id int64) (*entity.Property, error) {
	property, err := s.propertyRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get property", "error", err, "id", id)
		return nil, err
	}
	if property == nil {
		return nil, fmt.Errorf("%w: property %d", ErrNotFound, id)
	}
	return property, nil
}

// List retrieves a page of properties
func (s *propertyServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.Property, error) {
	properties, err := s.propertyRepo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list properties", "error", err, "limit", limit, "offset", offset)
		return nil, err
	}
	return properties, nil
}

// Update replaces the editable fields of a property
func (s *propertyServiceImpl) Update(ctx context.Context, property *entity.Property) (*entity.Property, error) {
	if err := validateProperty(property); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, property.ID)
	if err != nil {
		return nil, err
	}
	property.CreatedAt = existing.CreatedAt

	if err := s.propertyRepo.Update(ctx, property); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: property %d", ErrNotFound, property.ID)
		}
		s.logger.Error("Failed to update property", "error", err, "id", property.ID)
		return nil, err
	}

	s.logger.Info("Property updated", "id", property.ID)
	return property, nil
}

// Delete removes a property that no permit references
func (s *propertyServiceImpl) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.permitRepo.CountByProperty(ctx, id)
	if err != nil {
		s.logger.Error("Failed to count permits", "error", err, "property_id", id)
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: property %d has %d permit(s)", ErrConflict, id, count)
	}

	if err := s.propertyRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return fmt.Errorf("%w: property %d", ErrNotFound, id)
		}
		s.logger.Error("Failed to delete property", "error", err, "id", id)
		return err
	}

	s.logger.Info("Property deleted", "id", id)
	return nil
}

func validateProperty(p *entity.Property) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Address = strings.TrimSpace(p.Address)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.Address == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}
	return nil
}
