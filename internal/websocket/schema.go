package websocket

import (
	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/schedule"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing    Action = "ping"
	ActionRefresh Action = "refresh"
)

// RequestEnvelope is the only client message shape; actions carry no body.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventTimetable Event = "timetable"
	EventPong      Event = "pong"
)

// TimetableResponse carries the full grid and credit banner. Cause is set when
// a change to the working set triggered it.
type TimetableResponse struct {
	Event   Event               `json:"event"`
	Cause   *model.PlannerEvent `json:"cause,omitempty"`
	Grid    schedule.Grid       `json:"grid"`
	Credits model.CreditSummary `json:"credits"`
	Keys    []model.SectionKey  `json:"keys"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
