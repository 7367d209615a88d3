package model

import "github.com/google/uuid"

// PlannerEventType names a change published on a session's event channel.
type PlannerEventType string

const (
	PlannerEventEnrolled PlannerEventType = "enrolled"
	PlannerEventRemoved  PlannerEventType = "removed"
)

// PlannerEvent is published after every change to a working set.
type PlannerEvent struct {
	SessionID uuid.UUID        `json:"session_id"`
	Type      PlannerEventType `json:"type"`
	Section   SectionKey       `json:"section"`
	Credits   CreditSummary    `json:"credits"`
}
