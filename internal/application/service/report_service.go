package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
)

// ReportService renders the permit register
type ReportService interface {
	WritePermitRegister(ctx context.Context, w io.Writer, filter entity.PermitFilter) error
}

type reportServiceImpl struct {
	permitRepo   port.PermitRepository
	propertyRepo port.PropertyRepository
	writer       port.PermitReportWriter
	logger       Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	permitRepo port.PermitRepository,
	propertyRepo port.PropertyRepository,
	writer port.PermitReportWriter,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		permitRepo:   permitRepo,
		propertyRepo: propertyRepo,
		writer:       writer,
		logger:       logger,
	}
}

// WritePermitRegister writes every permit matching filter together with
// its property
func (s *reportServiceImpl) WritePermitRegister(ctx context.Context, w io.Writer, filter entity.PermitFilter) error {
	permits, err := s.permitRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list permits for report", "error", err)
		return fmt.Errorf("list permits: %w", err)
	}

	properties := make(map[int64]*entity.Property)
	for _, p := range permits {
		if _, ok := properties[p.PropertyID]; ok {
			continue
		}
		property, err := s.propertyRepo.GetByID(ctx, p.PropertyID)
		if err != nil {
			return fmt.Errorf("get property: %w", err)
		}
		if property != nil {
			properties[p.PropertyID] = property
		}
	}

	if err := s.writer.Write(w, permits, properties); err != nil {
		s.logger.Error("Failed to write permit register", "error", err)
		return fmt.Errorf("write report: %w", err)
	}

	s.logger.Info("Permit register written", "permits", len(permits))
	return nil
}
