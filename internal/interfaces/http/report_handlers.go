package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportQuery holds GET /api/reports/permits.xlsx query parameters. Unlike
// the permit list it is unpaged by default.
type ReportQuery struct {
	Status     string `form:"status" binding:"omitempty,permit_status"`
	PropertyID int64  `form:"property_id" binding:"omitempty,min=1"`
}

// DownloadPermitRegister handles GET /api/reports/permits.xlsx
func (h *Handlers) DownloadPermitRegister(c *gin.Context) {
	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	filter := ListPermitsQuery{Status: q.Status, PropertyID: q.PropertyID}.toFilter()
	filter.Limit = 0

	// buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.services.Reports.WritePermitRegister(c.Request.Context(), &buf, filter); err != nil {
		h.respondError(c, err)
		return
	}

	name := fmt.Sprintf("permits-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
