package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/course-planner/internal/response"
	"github.com/stemsi/course-planner/internal/schedule"
	"github.com/stemsi/course-planner/internal/service"
)

// failFromError maps service and core errors onto the response envelope.
// Unknown errors are logged and reported as 500.
func failFromError(c *gin.Context, err error) {
	var conflict *schedule.ConflictError
	switch {
	case errors.As(err, &conflict):
		response.FailWithFields(c, http.StatusConflict, response.ErrTimeConflict, map[string]string{
			"conflicting_title":     conflict.Conflicting.Title,
			"conflicting_course_id": conflict.Conflicting.CourseID,
			"conflicting_class_id":  conflict.Conflicting.ClassID,
		})
	case errors.Is(err, schedule.ErrAlreadyEnrolled):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyEnrolled)
	case errors.Is(err, schedule.ErrInvalidPosition):
		response.Fail(c, http.StatusNotFound, response.ErrInvalidPosition)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusUnauthorized, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrSectionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSectionNotFound)
	case errors.Is(err, service.ErrNotEligible):
		response.Fail(c, http.StatusForbidden, response.ErrNotEligible)
	case errors.Is(err, service.ErrCatalogEmpty):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrCatalogEmpty)
	case errors.Is(err, service.ErrNothingToExport):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNothingToExport)
	case errors.Is(err, service.ErrConcurrentUpdate):
		response.Fail(c, http.StatusConflict, response.ErrConcurrentUpdate)
	case errors.Is(err, service.ErrImportNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrUnsupportedFile):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	default:
		response.Logger(c).Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
