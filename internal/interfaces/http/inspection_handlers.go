package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/permits-on-the-go/internal/application/service"
)

// ScheduleInspectionRequest is the body of POST /api/permits/:id/inspections
type ScheduleInspectionRequest struct {
	InspectionType string    `json:"inspection_type" binding:"required"`
	ScheduledDate  time.Time `json:"scheduled_date" binding:"required"`
	Inspector      string    `json:"inspector"`
	Notes          string    `json:"notes"`
}

// InspectionResultRequest is the body of PATCH /api/inspections/:id
type InspectionResultRequest struct {
	Result string  `json:"result" binding:"required,oneof=PASSED FAILED"`
	Notes  *string `json:"notes"`
}

// ScheduleInspection handles POST /api/permits/:id/inspections
func (h *Handlers) ScheduleInspection(c *gin.Context) {
	permitID, ok := pathID(c)
	if !ok {
		return
	}

	var req ScheduleInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	inspection, err := h.services.Inspections.Schedule(c.Request.Context(), actor(c), permitID, service.ScheduleInspectionInput{
		InspectionType: req.InspectionType,
		ScheduledDate:  req.ScheduledDate,
		Inspector:      req.Inspector,
		Notes:          req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, inspection)
}

// ListInspections handles GET /api/permits/:id/inspections
func (h *Handlers) ListInspections(c *gin.Context) {
	permitID, ok := pathID(c)
	if !ok {
		return
	}

	inspections, err := h.services.Inspections.ListByPermit(c.Request.Context(), permitID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nonNil(inspections))
}

// RecordInspectionResult handles PATCH /api/inspections/:id
func (h *Handlers) RecordInspectionResult(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req InspectionResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	inspection, err := h.services.Inspections.RecordResult(c.Request.Context(), actor(c), id, service.InspectionResultInput{
		Result: req.Result,
		Notes:  req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, inspection)
}
