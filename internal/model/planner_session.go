package model

import (
	"time"

	"github.com/google/uuid"
)

// DegreeType selects the credit cap of a planner session.
type DegreeType string

const (
	DegreeSingle DegreeType = "single"
	DegreeDouble DegreeType = "double"
)

// PlannerSession is one student's working set for the current term.
// Enrolled keeps selection order.
type PlannerSession struct {
	ID               uuid.UUID  `json:"id"`
	Department       string     `json:"department"`
	SecondDepartment string     `json:"second_department,omitempty"`
	DegreeType       DegreeType `json:"degree_type"`
	Enrolled         []Section  `json:"enrolled"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CreateSessionRequest is the payload for opening a planner session.
type CreateSessionRequest struct {
	Department       string     `json:"department" binding:"required,max=100"`
	SecondDepartment string     `json:"second_department" binding:"omitempty,max=100,nefield=Department"`
	DegreeType       DegreeType `json:"degree_type" binding:"required,oneof=single double"`
}

// EnrollRequest is the payload for adding a section to the working set.
type EnrollRequest struct {
	CourseID string `json:"course_id" binding:"required,max=50"`
	ClassID  string `json:"class_id" binding:"required,max=50"`
}

// CreditSummary backs the credit banner.
type CreditSummary struct {
	Total     float64 `json:"total"`
	Cap       float64 `json:"cap"`
	OverLimit bool    `json:"over_limit"`
}
