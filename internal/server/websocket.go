package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/rooms"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxFrameLength = 8 << 10
)

var (
	errMissingMove        = errors.New("move is required")
	errInvalidRoomPuzzle  = errors.New("invalid puzzle id")
	errMalformedFrame     = errors.New("malformed frame")
	errUnknownClientEvent = errors.New("unknown event")
)

func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// handleWebSocket upgrades the request and serves the room protocol until the
// peer goes away.
func (h *httpHandler) handleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	member, err := h.rooms.Connect(connID)
	if err != nil {
		h.logger.Error("room connection rejected", zap.String("conn_id", connID), zap.Error(err))
		_ = conn.Close()
		return
	}
	h.logger.Info("room connection opened", zap.String("conn_id", connID), zap.String("remote_addr", c.ClientIP()))

	done := make(chan struct{})
	go h.writeFrames(conn, member, done)

	h.readFrames(conn, connID)
	h.rooms.Disconnect(connID)
	<-done
	h.logger.Info("room connection closed", zap.String("conn_id", connID))
}

func (h *httpHandler) readFrames(conn *websocket.Conn, connID string) {
	conn.SetReadLimit(maxFrameLength)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Warn("websocket read failed", zap.String("conn_id", connID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame rooms.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.sendError(connID, errMalformedFrame)
			continue
		}
		if err := h.dispatchFrame(connID, frame); err != nil {
			h.logger.Debug("room frame rejected",
				zap.String("conn_id", connID),
				zap.String("event", frame.Event),
				zap.Error(err))
			h.sendError(connID, err)
		}
	}
}

func (h *httpHandler) dispatchFrame(connID string, frame rooms.Frame) error {
	switch frame.Event {
	case rooms.EventJoinRoom:
		if !puzzles.ValidID(frame.PuzzleID) {
			return errInvalidRoomPuzzle
		}
		return h.rooms.Join(connID, frame.RoomID, frame.PuzzleID)
	case rooms.EventMovePiece:
		if frame.Move == nil {
			return errMissingMove
		}
		return h.rooms.RelayMove(connID, frame.RoomID, *frame.Move)
	case rooms.EventSidePieceMoved:
		if frame.Move == nil {
			return errMissingMove
		}
		return h.rooms.RelaySideMove(connID, frame.RoomID, *frame.Move)
	case rooms.EventResetBoard:
		return h.rooms.Reset(connID, frame.RoomID, true)
	case rooms.EventLeaveRoom:
		return h.rooms.Leave(connID, frame.RoomID)
	default:
		return fmt.Errorf("%w %q", errUnknownClientEvent, frame.Event)
	}
}

func (h *httpHandler) sendError(connID string, err error) {
	message := rooms.Message{Event: rooms.EventError, Payload: rooms.ErrorPayload{Message: err.Error()}}
	if sendErr := h.rooms.Send(connID, message); sendErr != nil {
		h.logger.Debug("room error frame not delivered", zap.String("conn_id", connID), zap.Error(sendErr))
	}
}

// writeFrames owns every write on conn. It returns once the member's stream is
// closed or the connection fails.
func (h *httpHandler) writeFrames(conn *websocket.Conn, member *rooms.Member, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		close(done)
	}()

	for {
		select {
		case message, ok := <-member.Stream():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(message); err != nil {
				h.logger.Warn("websocket write failed", zap.String("conn_id", member.ID()), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
