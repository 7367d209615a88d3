package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/response"
	"github.com/stemsi/course-planner/internal/schedule"
	"github.com/stemsi/course-planner/internal/validator"
)

// CatalogReader serves the merged catalog.
type CatalogReader interface {
	List(profile schedule.Profile, q model.CatalogQuery) ([]model.Section, int, error)
	PageOf(q model.CatalogQuery) (int, int)
	Departments() []string
}

// ProfileSource resolves the eligibility profile of a session.
type ProfileSource interface {
	Profile(ctx context.Context, id uuid.UUID) (schedule.Profile, error)
}

// CatalogHandler handles catalog browsing endpoints.
type CatalogHandler struct {
	catalog  CatalogReader
	profiles ProfileSource
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog CatalogReader, profiles ProfileSource) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, profiles: profiles}
}

// ListCatalog godoc
// GET /api/v1/catalog?department=&q=&page=&per_page=
// Lists the sections open to the session's profile.
func (h *CatalogHandler) ListCatalog(c *gin.Context) {
	sessionID, ok := sessionIDOrFail(c)
	if !ok {
		return
	}

	var q model.CatalogQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	profile, err := h.profiles.Profile(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	sections, total, err := h.catalog.List(profile, q)
	if err != nil {
		failFromError(c, err)
		return
	}

	page, perPage := h.catalog.PageOf(q)
	response.SuccessWithPagination(c, http.StatusOK,
		gin.H{"sections": sections},
		response.NewPagination(page, perPage, total),
	)
}

// ListDepartments godoc
// GET /api/v1/catalog/departments
// Lists the departments present in the catalog.
func (h *CatalogHandler) ListDepartments(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"departments": h.catalog.Departments()})
}
