package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/response"
)

// ImportQueue accepts catalog uploads and reports their status.
type ImportQueue interface {
	Enqueue(ctx context.Context, fileName string, size int64, r io.Reader) (*model.CatalogImport, error)
	Get(ctx context.Context, id uuid.UUID) (*model.CatalogImport, error)
}

// ImportHandler handles catalog upload endpoints.
type ImportHandler struct {
	imports ImportQueue
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(imports ImportQueue) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// UploadCatalog godoc
// POST /api/v1/catalog/imports
// Accepts an xlsx catalog (multipart field "file") and queues it for import.
func (h *ImportHandler) UploadCatalog(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	imp, err := h.imports.Enqueue(c.Request.Context(), header.Filename, header.Size, file)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"import": imp})
}

// GetImport godoc
// GET /api/v1/catalog/imports/:id
// Returns the status of a catalog import.
func (h *ImportHandler) GetImport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	imp, err := h.imports.Get(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"import": imp})
}
