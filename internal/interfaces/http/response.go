package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/permits-on-the-go/internal/application/service"
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// TransitionErrorResponse is written for a rejected status change. Allowed
// is always present, and empty for a terminal status.
type TransitionErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Allowed []string `json:"allowed"`
}

// ListResponse wraps a page of results
type ListResponse struct {
	Items  interface{} `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// respondError maps service and domain errors onto HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	var transitionErr *permit.TransitionError
	switch {
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusBadRequest, TransitionErrorResponse{
			Success: false,
			Error:   err.Error(),
			Allowed: statusNames(transitionErr.Allowed),
		})
	case errors.Is(err, service.ErrValidation), errors.Is(err, permit.ErrInvalidStatus):
		respondBadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal server error"})
	}
}

// pathID parses the :id path parameter, writing a 400 when it is not a
// positive integer
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// pageQuery holds limit/offset query parameters
type pageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=0,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

func (p pageQuery) normalized() pageQuery {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	return p
}
