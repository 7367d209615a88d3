package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/response"
	"github.com/stemsi/course-planner/internal/service"
	"github.com/stemsi/course-planner/internal/validator"
)

// SessionCreator opens planner sessions.
type SessionCreator interface {
	CreateSession(ctx context.Context, req model.CreateSessionRequest) (*service.SessionGrant, error)
}

// SessionHandler handles planner session endpoints.
type SessionHandler struct {
	planner SessionCreator
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(planner SessionCreator) *SessionHandler {
	return &SessionHandler{planner: planner}
}

// CreateSession godoc
// POST /api/v1/sessions
// Opens an empty working set for a department profile and returns its token.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	grant, err := h.planner.CreateSession(c.Request.Context(), req)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, grant)
}
