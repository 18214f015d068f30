package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
)

// PropertyRequest is the body of POST and PUT /api/properties
type PropertyRequest struct {
	Name         string `json:"name" binding:"required"`
	Address      string `json:"address" binding:"required"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	ParcelNumber string `json:"parcel_number"`
	Notes        string `json:"notes"`
}

func (r PropertyRequest) toEntity(id int64) *entity.Property {
	return &entity.Property{
		ID:           id,
		Name:         r.Name,
		Address:      r.Address,
		City:         r.City,
		State:        r.State,
		Zip:          r.Zip,
		ParcelNumber: r.ParcelNumber,
		Notes:        r.Notes,
	}
}

// CreateProperty handles POST /api/properties
func (h *Handlers) CreateProperty(c *gin.Context) {
	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	property, err := h.services.Properties.Create(c.Request.Context(), req.toEntity(0))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, property)
}

// ListProperties handles GET /api/properties
func (h *Handlers) ListProperties(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	q = q.normalized()

	properties, err := h.services.Properties.List(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ListResponse{Items: nonNil(properties), Limit: q.Limit, Offset: q.Offset})
}

// GetProperty handles GET /api/properties/:id
func (h *Handlers) GetProperty(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	property, err := h.services.Properties.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, property)
}

// UpdateProperty handles PUT /api/properties/:id
func (h *Handlers) UpdateProperty(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	property, err := h.services.Properties.Update(c.Request.Context(), req.toEntity(id))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, property)
}

// DeleteProperty handles DELETE /api/properties/:id
func (h *Handlers) DeleteProperty(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Properties.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id})
}
