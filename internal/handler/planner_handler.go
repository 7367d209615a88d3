package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/course-planner/internal/middleware"
	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/response"
	"github.com/stemsi/course-planner/internal/service"
	"github.com/stemsi/course-planner/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Planner is the working-set API of a session.
type Planner interface {
	GetSession(ctx context.Context, id uuid.UUID) (*service.PlannerView, error)
	Enroll(ctx context.Context, id uuid.UUID, key model.SectionKey) (*service.PlannerView, error)
	Remove(ctx context.Context, id uuid.UUID, position int) (*service.PlannerView, model.Section, error)
	Timetable(ctx context.Context, id uuid.UUID) (*service.TimetableView, error)
}

// Exporter writes a working set out as a workbook.
type Exporter interface {
	Export(ctx context.Context, id uuid.UUID, lang model.Language) (*bytes.Buffer, string, error)
}

// PlannerHandler handles the working-set endpoints.
type PlannerHandler struct {
	planner  Planner
	exporter Exporter
}

// NewPlannerHandler creates a new PlannerHandler.
func NewPlannerHandler(planner Planner, exporter Exporter) *PlannerHandler {
	return &PlannerHandler{planner: planner, exporter: exporter}
}

// GetPlanner godoc
// GET /api/v1/planner
// Returns the session profile, the enrolled sections and the credit banner.
func (h *PlannerHandler) GetPlanner(c *gin.Context) {
	sessionID, ok := sessionIDOrFail(c)
	if !ok {
		return
	}

	view, err := h.planner.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// Enroll godoc
// POST /api/v1/planner/enrollments
// Adds a section to the working set unless it is a duplicate or collides
// with an enrolled section.
func (h *PlannerHandler) Enroll(c *gin.Context) {
	sessionID, ok := sessionIDOrFail(c)
	if !ok {
		return
	}

	var req model.EnrollRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.planner.Enroll(c.Request.Context(), sessionID, model.SectionKey{
		CourseID: req.CourseID,
		ClassID:  req.ClassID,
	})
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, view)
}

// Remove godoc
// DELETE /api/v1/planner/enrollments/:position
// Removes the section at a 0-based position of the working set.
func (h *PlannerHandler) Remove(c *gin.Context) {
	sessionID, ok := sessionIDOrFail(c)
	if !ok {
		return
	}

	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPosition)
		return
	}

	view, removed, err := h.planner.Remove(c.Request.Context(), sessionID, position)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"removed": removed,
		"session": view.Session,
		"credits": view.Credits,
	})
}

// Timetable godoc
// GET /api/v1/planner/timetable
// Returns the 7x12 grid of the working set and the credit banner.
func (h *PlannerHandler) Timetable(c *gin.Context) {
	sessionID, ok := sessionIDOrFail(c)
	if !ok {
		return
	}

	view, err := h.planner.Timetable(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// Export godoc
// GET /api/v1/planner/export
// Downloads the working set as an xlsx workbook in the negotiated language.
func (h *PlannerHandler) Export(c *gin.Context) {
	sessionID, ok := sessionIDOrFail(c)
	if !ok {
		return
	}

	buf, fileName, err := h.exporter.Export(c.Request.Context(), sessionID, response.Lang(c))
	if err != nil {
		failFromError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(fileName))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func sessionIDOrFail(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return id, ok
}
