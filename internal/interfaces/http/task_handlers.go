package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
)

// CreateTaskRequest is the body of POST /api/tasks
type CreateTaskRequest struct {
	PermitID    *int64     `json:"permit_id" binding:"omitempty,min=1"`
	PropertyID  *int64     `json:"property_id" binding:"omitempty,min=1"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status" binding:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	DueDate     *time.Time `json:"due_date"`
	Assignee    string     `json:"assignee"`
}

// UpdateTaskRequest is the body of PATCH /api/tasks/:id
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" binding:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	DueDate     *time.Time `json:"due_date"`
	Assignee    *string    `json:"assignee"`
}

// ListTasksQuery holds GET /api/tasks query parameters
type ListTasksQuery struct {
	pageQuery
	PermitID   int64  `form:"permit_id" binding:"omitempty,min=1"`
	PropertyID int64  `form:"property_id" binding:"omitempty,min=1"`
	Status     string `form:"status" binding:"omitempty,oneof=TODO IN_PROGRESS DONE"`
}

func (q ListTasksQuery) toFilter() entity.TaskFilter {
	page := q.pageQuery.normalized()
	filter := entity.TaskFilter{Limit: page.Limit, Offset: page.Offset}
	if q.PermitID > 0 {
		id := q.PermitID
		filter.PermitID = &id
	}
	if q.PropertyID > 0 {
		id := q.PropertyID
		filter.PropertyID = &id
	}
	if q.Status != "" {
		status := q.Status
		filter.Status = &status
	}
	return filter
}

// CreateTask handles POST /api/tasks
func (h *Handlers) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	task, err := h.services.Tasks.Create(c.Request.Context(), &entity.Task{
		PermitID:    req.PermitID,
		PropertyID:  req.PropertyID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Assignee:    req.Assignee,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, task)
}

// ListTasks handles GET /api/tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	var q ListTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	filter := q.toFilter()
	tasks, err := h.services.Tasks.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ListResponse{Items: nonNil(tasks), Limit: filter.Limit, Offset: filter.Offset})
}

// UpdateTask handles PATCH /api/tasks/:id
func (h *Handlers) UpdateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	task, err := h.services.Tasks.Update(c.Request.Context(), id, entity.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Assignee:    req.Assignee,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *Handlers) DeleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Tasks.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id})
}
