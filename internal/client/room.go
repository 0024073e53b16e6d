package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/board"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/rooms"
	"go.uber.org/zap"
)

const (
	defaultEventBuffer = 64
	roomWriteWait      = 10 * time.Second
)

var (
	ErrNotConnected = errors.New("client: room connection closed")
	ErrNotInRoom    = errors.New("client: join a room first")
)

// WebSocketURL turns an API base URL into the relay endpoint.
func WebSocketURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("client: unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = "/ws"
	parsed.RawQuery = ""
	return parsed.String(), nil
}

type RoomOption func(*Room)

func WithRoomLogger(logger *zap.Logger) RoomOption {
	return func(r *Room) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEventBuffer sets how many received frames Events holds before new ones
// are dropped.
func WithEventBuffer(size int) RoomOption {
	return func(r *Room) {
		if size > 0 {
			r.eventBuffer = size
		}
	}
}

// Room mirrors one shared board. Local commits are sent to the relay while
// connected; moves and resets from peers are replayed on the local board.
// Peers are never reconciled: concurrent moves can leave boards different.
type Room struct {
	conn        *websocket.Conn
	logger      *zap.Logger
	eventBuffer int
	events      chan rooms.Envelope
	done        chan struct{}
	writeMu     sync.Mutex

	mu           sync.Mutex
	board        *board.Board
	puzzle       puzzles.Puzzle
	roomID       string
	roomPuzzleID int
	accepted     bool
	members      map[string]struct{}
	connected    bool
}

// DialRoom opens the relay connection at wsURL and starts the receive loop.
func DialRoom(ctx context.Context, wsURL string, opts ...RoomOption) (*Room, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial room relay: %w", err)
	}
	room := &Room{
		conn:        conn,
		logger:      zap.NewNop(),
		eventBuffer: defaultEventBuffer,
		done:        make(chan struct{}),
		board:       board.New(board.TrayPlacement()),
		members:     make(map[string]struct{}),
		connected:   true,
	}
	for _, opt := range opts {
		opt(room)
	}
	room.events = make(chan rooms.Envelope, room.eventBuffer)
	go room.receive()
	return room, nil
}

// Join enters roomID and shows puzzle on the local board. The room stays
// pending until the relay answers with room-joined; an error frame before that
// drops it again.
func (r *Room) Join(roomID string, puzzle puzzles.Puzzle) error {
	r.mu.Lock()
	previous := r.roomID
	r.roomID = roomID
	r.roomPuzzleID = 0
	r.accepted = false
	r.members = make(map[string]struct{})
	r.showLocked(puzzle)
	r.mu.Unlock()
	if previous != "" && previous != roomID {
		if err := r.send(rooms.Frame{Event: rooms.EventLeaveRoom, RoomID: previous}); err != nil {
			return err
		}
	}
	return r.send(rooms.Frame{Event: rooms.EventJoinRoom, RoomID: roomID, PuzzleID: puzzle.ID})
}

// Load shows puzzle locally without telling the room. A late joiner uses it
// after fetching the room's puzzle.
func (r *Room) Load(puzzle puzzles.Puzzle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showLocked(puzzle)
}

func (r *Room) showLocked(puzzle puzzles.Puzzle) {
	r.puzzle = puzzle
	r.board = board.FromFEN(puzzle.FEN)
}

// Click applies a local click. A committed move is sent to the room while the
// connection is up; otherwise it stays local.
func (r *Room) Click(cell board.Cell) (board.Move, bool) {
	r.mu.Lock()
	move, committed := r.board.Click(cell)
	roomID, connected := r.roomID, r.connected
	r.mu.Unlock()
	if !committed || roomID == "" || !connected {
		return move, committed
	}
	if err := r.send(rooms.Frame{Event: rooms.EventMovePiece, RoomID: roomID, Move: &move}); err != nil {
		r.logger.Warn("move not relayed", zap.String("room_id", roomID), zap.Error(err))
	}
	return move, committed
}

// Reset restarts the local board and asks every member to do the same.
func (r *Room) Reset() error {
	r.mu.Lock()
	r.board.Restart()
	roomID := r.roomID
	r.mu.Unlock()
	if roomID == "" {
		return ErrNotInRoom
	}
	return r.send(rooms.Frame{Event: rooms.EventResetBoard, RoomID: roomID})
}

// Leave exits the current room. The local board is kept.
func (r *Room) Leave() error {
	r.mu.Lock()
	roomID := r.roomID
	r.roomID = ""
	r.accepted = false
	r.members = make(map[string]struct{})
	r.mu.Unlock()
	if roomID == "" {
		return ErrNotInRoom
	}
	return r.send(rooms.Frame{Event: rooms.EventLeaveRoom, RoomID: roomID})
}

// Events delivers every frame received from the relay after it was applied.
// The channel is closed when the connection ends.
func (r *Room) Events() <-chan rooms.Envelope {
	return r.events
}

func (r *Room) RoomID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomID
}

// RoomPuzzleID is the puzzle the room was created with, once acknowledged.
func (r *Room) RoomPuzzleID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomPuzzleID
}

func (r *Room) Puzzle() puzzles.Puzzle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puzzle
}

// Members lists the other connections in the room.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Room) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *Room) Placement() board.Placement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.board.Placement()
}

func (r *Room) Selected() (board.Cell, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.board.Selected()
}

func (r *Room) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return board.Render(r.board.Placement(), SideToMove(r.puzzle.Direction))
}

// Close ends the connection and waits for the receive loop to stop.
func (r *Room) Close() error {
	r.writeMu.Lock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(roomWriteWait))
	_ = r.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	r.writeMu.Unlock()
	err := r.conn.Close()
	<-r.done
	return err
}

func (r *Room) send(frame rooms.Frame) error {
	if !r.Connected() {
		return ErrNotConnected
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(roomWriteWait))
	if err := r.conn.WriteJSON(frame); err != nil {
		r.markDisconnected()
		return err
	}
	return nil
}

func (r *Room) markDisconnected() {
	r.mu.Lock()
	r.connected = false
	r.mu.Unlock()
}

func (r *Room) receive() {
	defer func() {
		r.markDisconnected()
		close(r.events)
		close(r.done)
	}()
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Warn("room connection lost", zap.Error(err))
			}
			return
		}
		var envelope rooms.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			r.logger.Warn("room frame ignored", zap.Error(err))
			continue
		}
		r.apply(envelope)
		select {
		case r.events <- envelope:
		default:
			r.logger.Debug("room event dropped", zap.String("event", envelope.Event))
		}
	}
}

func (r *Room) apply(envelope rooms.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch envelope.Event {
	case rooms.EventPieceMoved, rooms.EventSidePieceMoved:
		var move board.Move
		if err := json.Unmarshal(envelope.Payload, &move); err != nil || !move.Valid() {
			r.logger.Warn("relayed move ignored", zap.ByteString("payload", envelope.Payload))
			return
		}
		r.board.Apply(move)
	case rooms.EventBoardReset:
		r.board.Restart()
	case rooms.EventRoomJoined:
		var joined rooms.RoomJoined
		if err := json.Unmarshal(envelope.Payload, &joined); err == nil {
			r.roomPuzzleID = joined.PuzzleID
		}
		r.accepted = r.roomID != ""
	case rooms.EventRoomUsers:
		var ids []string
		if err := json.Unmarshal(envelope.Payload, &ids); err == nil {
			r.members = make(map[string]struct{}, len(ids))
			for _, id := range ids {
				r.members[id] = struct{}{}
			}
		}
	case rooms.EventUserJoined, rooms.EventUserLeft:
		var id string
		if err := json.Unmarshal(envelope.Payload, &id); err != nil {
			return
		}
		if envelope.Event == rooms.EventUserJoined {
			r.members[id] = struct{}{}
		} else {
			delete(r.members, id)
		}
	case rooms.EventError:
		var payload rooms.ErrorPayload
		_ = json.Unmarshal(envelope.Payload, &payload)
		r.logger.Warn("room relay rejected a frame", zap.String("room_id", r.roomID), zap.String("message", payload.Message))
		if r.roomID != "" && !r.accepted {
			r.roomID = ""
			r.members = make(map[string]struct{})
		}
	}
}
