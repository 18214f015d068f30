package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		services:       services,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// StatusInfo describes one permit status for UI pickers
type StatusInfo struct {
	Status    string   `json:"status"`
	Next      []string `json:"next"`
	Terminal  bool     `json:"terminal"`
	Deletable bool     `json:"deletable"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	respondOK(c, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// ListPermitStatuses handles GET /api/permit-statuses
func (h *Handlers) ListPermitStatuses(c *gin.Context) {
	all := permit.AllStatuses()
	infos := make([]StatusInfo, 0, len(all))
	for _, s := range all {
		infos = append(infos, StatusInfo{
			Status:    s.String(),
			Next:      statusNames(permit.AllowedNextStatuses(s)),
			Terminal:  s.IsTerminal(),
			Deletable: s.IsDeletable(),
		})
	}
	respondOK(c, http.StatusOK, infos)
}

func statusNames(statuses []permit.Status) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}
	return names
}
