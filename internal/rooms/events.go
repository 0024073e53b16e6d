package rooms

import (
	"encoding/json"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/board"
)

// Client to server events.
const (
	EventJoinRoom   = "join-room"
	EventMovePiece  = "move-piece"
	EventResetBoard = "reset-board"
	EventLeaveRoom  = "leave-room"

	// EventSidePieceMoved is the legacy name for tray moves. It is relayed
	// under the same name.
	EventSidePieceMoved = "side-piece-moved"
)

// Server to client events.
const (
	EventRoomJoined = "room-joined"
	EventRoomUsers  = "room-users"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventPieceMoved = "piece-moved"
	EventBoardReset = "board-reset"
	EventError      = "error"
)

// Frame is a request sent by a client.
type Frame struct {
	Event    string      `json:"event"`
	RoomID   string      `json:"roomId,omitempty"`
	PuzzleID int         `json:"puzzleId,omitempty"`
	Move     *board.Move `json:"move,omitempty"`
}

// Message is a frame sent to a client. Payload shapes per event:
// room-joined RoomJoined, room-users []string, user-joined and user-left the
// connection id, piece-moved board.Move, board-reset none, error ErrorPayload.
type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Envelope decodes a Message whose payload type depends on the event.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoomJoined acknowledges a join. PuzzleID is the puzzle the room was created with.
type RoomJoined struct {
	RoomID     string `json:"roomId"`
	PuzzleID   int    `json:"puzzleId"`
	UsersCount int    `json:"usersCount"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Snapshot describes a room at one instant.
type Snapshot struct {
	RoomID     string   `json:"roomId"`
	PuzzleID   int      `json:"puzzleId"`
	Members    []string `json:"members"`
	UsersCount int      `json:"usersCount"`
}
