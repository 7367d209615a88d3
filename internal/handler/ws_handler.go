package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/service"
	ws "github.com/stemsi/course-planner/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// TimetableSource projects a session's working set.
type TimetableSource interface {
	Timetable(ctx context.Context, id uuid.UUID) (*service.TimetableView, error)
}

// EventStream relays a session's planner events.
type EventStream interface {
	Events(ctx context.Context, id uuid.UUID) (<-chan []byte, error)
}

// WSHandler streams timetable updates over WebSocket.
type WSHandler struct {
	planner  TimetableSource
	events   EventStream
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(planner TimetableSource, events EventStream, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		planner:  planner,
		events:   events,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ws.WriteTyped(c.conn, v)
}

func (c *wsConn) fail(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = ws.WriteError(c.conn, msg)
}

// PlannerStream godoc
// WS /ws/v1/planner/stream?token=
// Sends the current timetable on connect and again after every change to the
// working set, from any tab of the same session.
func (h *WSHandler) PlannerStream(c *gin.Context) {
	sessionID, ok := sessionIDOrFail(c)
	if !ok {
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()

	if !h.sendTimetable(ctx, conn, sessionID, nil, wsLog) {
		return
	}

	events, err := h.events.Events(ctx, sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Subscribe to planner events failed")
		conn.fail("updates unavailable")
		return
	}

	wsLog.Info().Msg("Planner stream connected")

	go func() {
		for {
			var payload []byte
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-events:
				if !ok {
					return
				}
				payload = msg
			}

			var cause model.PlannerEvent
			if err := json.Unmarshal(payload, &cause); err != nil {
				wsLog.Warn().Err(err).Msg("Discarding malformed planner event")
				continue
			}
			if !h.sendTimetable(ctx, conn, sessionID, &cause, wsLog) {
				// Closing unblocks the read loop below.
				cancel()
				raw.Close()
				return
			}
		}
	}()

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(raw, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			if err := conn.write(ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case ws.ActionRefresh:
			if !h.sendTimetable(ctx, conn, sessionID, nil, wsLog) {
				return
			}
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.fail("unknown action: " + string(msg.Action))
		}
	}
}

// sendTimetable writes the current grid. It reports false when the stream
// should end.
func (h *WSHandler) sendTimetable(ctx context.Context, conn *wsConn, id uuid.UUID, cause *model.PlannerEvent, log zerolog.Logger) bool {
	view, err := h.planner.Timetable(ctx, id)
	if err != nil {
		log.Warn().Err(err).Msg("Load timetable failed")
		conn.fail("session unavailable")
		return false
	}

	err = conn.write(ws.TimetableResponse{
		Event:   ws.EventTimetable,
		Cause:   cause,
		Grid:    view.Grid,
		Credits: view.Credits,
		Keys:    view.Keys,
	})
	return err == nil
}
