package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/permits-on-the-go/internal/application/service"
)

// UploadDocument handles POST /api/permits/:id/documents with a multipart
// "file" field and an optional "kind" form value
func (h *Handlers) UploadDocument(c *gin.Context) {
	permitID, ok := pathID(c)
	if !ok {
		return
	}

	// one extra megabyte leaves room for the multipart envelope
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "file too large"})
			return
		}
		respondBadRequest(c, "multipart field \"file\" is required")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, Response{
			Success: false,
			Error:   fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondBadRequest(c, "unable to read uploaded file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondBadRequest(c, "unable to read uploaded file")
		return
	}

	doc, err := h.services.Documents.Upload(c.Request.Context(), actor(c), service.UploadInput{
		PermitID:    permitID,
		Kind:        c.PostForm("kind"),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, doc)
}

// ListDocuments handles GET /api/permits/:id/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	permitID, ok := pathID(c)
	if !ok {
		return
	}

	docs, err := h.services.Documents.List(c.Request.Context(), permitID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nonNil(docs))
}

// DownloadDocument handles GET /api/documents/:id/download
func (h *Handlers) DownloadDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, content, err := h.services.Documents.Open(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, content)
}

// DeleteDocument handles DELETE /api/documents/:id
func (h *Handlers) DeleteDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Documents.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id})
}
