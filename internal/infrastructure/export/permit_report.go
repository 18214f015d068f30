package export

import (
	"fmt"
	"io"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const registerSheet = "Permits"

var registerHeader = []interface{}{
	"ID", "Property", "Address", "Title", "Type", "Permit Number",
	"Jurisdiction", "Status", "Estimated Cost", "Fee",
	"Submitted", "Approved", "Issued", "Expires", "Closed",
}

// PermitReportWriter renders the permit register as an xlsx workbook
type PermitReportWriter struct {
	logger *zap.Logger
}

// NewPermitReportWriter creates a new PermitReportWriter
func NewPermitReportWriter(logger *zap.Logger) *PermitReportWriter {
	return &PermitReportWriter{logger: logger}
}

// Write renders one row per permit. properties maps property ID to its
// record; a missing property leaves the name and address blank.
func (r *PermitReportWriter) Write(w io.Writer, permits []*entity.Permit, properties map[int64]*entity.Property) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), registerSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(registerSheet, "A1", &registerHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(registerHeader))
	if err != nil {
		return err
	}
	if err := r.styleHeader(f, lastCol); err != nil {
		return err
	}

	for i, p := range permits {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := permitRow(p, properties[p.PropertyID])
		if err := f.SetSheetRow(registerSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write permit %d: %w", p.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		r.logger.Error("Failed to write permit register", zap.Error(err))
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Debug("Permit register written", zap.Int("rows", len(permits)))
	return nil
}

func (r *PermitReportWriter) styleHeader(f *excelize.File, lastCol string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(registerSheet, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(registerSheet, "A", lastCol, 16); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return f.SetPanes(registerSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func permitRow(p *entity.Permit, property *entity.Property) []interface{} {
	var name, address string
	if property != nil {
		name = property.Name
		address = property.Address
	}
	return []interface{}{
		p.ID,
		name,
		address,
		p.Title,
		p.PermitType,
		p.PermitNumber,
		p.Jurisdiction,
		p.Status.String(),
		dollars(p.EstimatedCostCents),
		dollars(p.FeeCents),
		dateCell(p.SubmittedAt),
		dateCell(p.ApprovedAt),
		dateCell(p.IssuedAt),
		dateCell(p.ExpiresAt),
		dateCell(p.ClosedAt),
	}
}

func dollars(cents int64) float64 {
	return float64(cents) / 100
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

var _ port.PermitReportWriter = (*PermitReportWriter)(nil)
