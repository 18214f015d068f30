package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
)

// CreatePermitRequest is the body of POST /api/permits
type CreatePermitRequest struct {
	PropertyID         int64      `json:"property_id" binding:"required,min=1"`
	Title              string     `json:"title" binding:"required"`
	Description        string     `json:"description"`
	PermitType         string     `json:"permit_type" binding:"required"`
	PermitNumber       string     `json:"permit_number"`
	Jurisdiction       string     `json:"jurisdiction"`
	EstimatedCostCents int64      `json:"estimated_cost_cents" binding:"min=0"`
	FeeCents           int64      `json:"fee_cents" binding:"min=0"`
	Notes              string     `json:"notes"`
	ExpiresAt          *time.Time `json:"expires_at"`
}

// UpdatePermitRequest is the body of PATCH /api/permits/:id. Absent fields
// are left unchanged.
type UpdatePermitRequest struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	PermitType         *string    `json:"permit_type"`
	PermitNumber       *string    `json:"permit_number"`
	Jurisdiction       *string    `json:"jurisdiction"`
	Status             *string    `json:"status" binding:"omitempty,permit_status"`
	EstimatedCostCents *int64     `json:"estimated_cost_cents" binding:"omitempty,min=0"`
	FeeCents           *int64     `json:"fee_cents" binding:"omitempty,min=0"`
	Notes              *string    `json:"notes"`
	ExpiresAt          *time.Time `json:"expires_at"`
}

func (r UpdatePermitRequest) toUpdate() entity.PermitUpdate {
	u := entity.PermitUpdate{
		Title:              r.Title,
		Description:        r.Description,
		PermitType:         r.PermitType,
		PermitNumber:       r.PermitNumber,
		Jurisdiction:       r.Jurisdiction,
		EstimatedCostCents: r.EstimatedCostCents,
		FeeCents:           r.FeeCents,
		Notes:              r.Notes,
		ExpiresAt:          r.ExpiresAt,
	}
	if r.Status != nil {
		s := permit.Status(*r.Status)
		u.Status = &s
	}
	return u
}

// ListPermitsQuery holds GET /api/permits query parameters
type ListPermitsQuery struct {
	pageQuery
	Status     string `form:"status" binding:"omitempty,permit_status"`
	PropertyID int64  `form:"property_id" binding:"omitempty,min=1"`
}

func (q ListPermitsQuery) toFilter() entity.PermitFilter {
	page := q.pageQuery.normalized()
	filter := entity.PermitFilter{Limit: page.Limit, Offset: page.Offset}
	if q.Status != "" {
		s := permit.Status(q.Status)
		filter.Status = &s
	}
	if q.PropertyID > 0 {
		id := q.PropertyID
		filter.PropertyID = &id
	}
	return filter
}

// TransitionsResponse lists the statuses a permit can move to
type TransitionsResponse struct {
	PermitID int64    `json:"permit_id"`
	Status   string   `json:"status"`
	Allowed  []string `json:"allowed"`
}

// CreatePermit handles POST /api/permits
func (h *Handlers) CreatePermit(c *gin.Context) {
	var req CreatePermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	p, err := h.services.Permits.Create(c.Request.Context(), actor(c), &entity.Permit{
		PropertyID:         req.PropertyID,
		Title:              req.Title,
		Description:        req.Description,
		PermitType:         req.PermitType,
		PermitNumber:       req.PermitNumber,
		Jurisdiction:       req.Jurisdiction,
		EstimatedCostCents: req.EstimatedCostCents,
		FeeCents:           req.FeeCents,
		Notes:              req.Notes,
		ExpiresAt:          req.ExpiresAt,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, p)
}

// ListPermits handles GET /api/permits
func (h *Handlers) ListPermits(c *gin.Context) {
	var q ListPermitsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	filter := q.toFilter()
	permits, err := h.services.Permits.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ListResponse{Items: nonNil(permits), Limit: filter.Limit, Offset: filter.Offset})
}

// GetPermit handles GET /api/permits/:id
func (h *Handlers) GetPermit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	p, err := h.services.Permits.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

// UpdatePermit handles PATCH /api/permits/:id. A status in the body is a
// transition request; a rejected one answers 400 with the allowed list.
func (h *Handlers) UpdatePermit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdatePermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	p, err := h.services.Permits.Update(c.Request.Context(), actor(c), id, req.toUpdate())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

// DeletePermit handles DELETE /api/permits/:id
func (h *Handlers) DeletePermit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Permits.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id})
}

// GetPermitActivity handles GET /api/permits/:id/activity
func (h *Handlers) GetPermitActivity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	q = q.normalized()

	activities, err := h.services.Permits.History(c.Request.Context(), id, q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ListResponse{Items: nonNil(activities), Limit: q.Limit, Offset: q.Offset})
}

// GetPermitTransitions handles GET /api/permits/:id/transitions
func (h *Handlers) GetPermitTransitions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	p, err := h.services.Permits.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, TransitionsResponse{
		PermitID: p.ID,
		Status:   p.Status.String(),
		Allowed:  statusNames(permit.AllowedNextStatuses(p.Status)),
	})
}

// nonNil turns a nil slice into an empty one so lists encode as []
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
