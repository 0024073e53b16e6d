// Package rooms relays board edits between the members of a shared room.
// The server keeps membership only; it never holds or checks board state.
package rooms

import (
	"errors"
	"strings"
	"sync"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/board"
	"go.uber.org/zap"
)

const defaultBufferSize = 64

var (
	ErrInvalidConnection = errors.New("rooms: connection id is required")
	ErrDuplicateMember   = errors.New("rooms: connection already registered")
	ErrUnknownMember     = errors.New("rooms: unknown connection")
	ErrInvalidRoom       = errors.New("rooms: room id is required")
	ErrNotInRoom         = errors.New("rooms: connection is not in the room")
	ErrInvalidMove       = errors.New("rooms: invalid move")
)

type RegistryConfig struct {
	// BufferSize bounds each member's outbound queue. Messages beyond it are dropped.
	BufferSize int
	Logger     *zap.Logger
}

// Member is one connection. Its stream carries every message addressed to it
// and is closed by Disconnect.
type Member struct {
	id     string
	stream chan Message
	roomID string
}

func (m *Member) ID() string {
	return m.id
}

func (m *Member) Stream() <-chan Message {
	return m.stream
}

type room struct {
	puzzleID int
	members  []*Member
}

func (r *room) ids(except string) []string {
	ids := make([]string, 0, len(r.members))
	for _, member := range r.members {
		if member.id != except {
			ids = append(ids, member.id)
		}
	}
	return ids
}

func (r *room) remove(connID string) {
	kept := r.members[:0]
	for _, member := range r.members {
		if member.id != connID {
			kept = append(kept, member)
		}
	}
	r.members = kept
}

// Registry maps room ids to members and connection ids to their room. All
// operations are serialised by one mutex; delivery happens under it so a
// stream is never written after it is closed.
type Registry struct {
	mu         sync.Mutex
	rooms      map[string]*room
	members    map[string]*Member
	bufferSize int
	logger     *zap.Logger
}

func NewRegistry(cfg RegistryConfig) *Registry {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:      make(map[string]*room),
		members:    make(map[string]*Member),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Connect registers a connection that is not in any room yet.
func (r *Registry) Connect(connID string) (*Member, error) {
	if strings.TrimSpace(connID) == "" {
		return nil, ErrInvalidConnection
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[connID]; exists {
		return nil, ErrDuplicateMember
	}
	member := &Member{id: connID, stream: make(chan Message, r.bufferSize)}
	r.members[connID] = member
	return member, nil
}

// Join moves the connection into roomID, leaving its previous room first.
// The room is created with puzzleID when it does not exist; otherwise the
// room keeps the puzzle it was created with.
func (r *Registry) Join(connID, roomID string, puzzleID int) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrInvalidRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[connID]
	if !ok {
		return ErrUnknownMember
	}

	if member.roomID != roomID {
		if member.roomID != "" {
			r.leaveLocked(member)
		}
		target, exists := r.rooms[roomID]
		if !exists {
			target = &room{puzzleID: puzzleID}
			r.rooms[roomID] = target
			r.logger.Info("room created", zap.String("room_id", roomID), zap.Int("puzzle_id", puzzleID))
		} else {
			r.broadcastLocked(target, member.id, Message{Event: EventUserJoined, Payload: member.id})
		}
		target.members = append(target.members, member)
		member.roomID = roomID
		r.logger.Debug("room joined",
			zap.String("room_id", roomID),
			zap.String("conn_id", connID),
			zap.Int("users", len(target.members)))
	}

	current := r.rooms[roomID]
	r.deliverLocked(member, Message{Event: EventRoomJoined, Payload: RoomJoined{
		RoomID:     roomID,
		PuzzleID:   current.puzzleID,
		UsersCount: len(current.members),
	}})
	r.deliverLocked(member, Message{Event: EventRoomUsers, Payload: current.ids(member.id)})
	return nil
}

// Leave removes the connection from roomID. Leaving a room the connection is
// not in is a no-op.
func (r *Registry) Leave(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[connID]
	if !ok {
		return ErrUnknownMember
	}
	if member.roomID == "" || member.roomID != strings.TrimSpace(roomID) {
		return nil
	}
	r.leaveLocked(member)
	return nil
}

// Disconnect leaves the current room, forgets the connection and closes its stream.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[connID]
	if !ok {
		return
	}
	if member.roomID != "" {
		r.leaveLocked(member)
	}
	delete(r.members, connID)
	close(member.stream)
}

// RelayMove forwards move verbatim to every other member of roomID.
func (r *Registry) RelayMove(connID, roomID string, move board.Move) error {
	return r.relay(connID, roomID, EventPieceMoved, move)
}

// RelaySideMove forwards a tray move sent under the legacy side-piece-moved event.
func (r *Registry) RelaySideMove(connID, roomID string, move board.Move) error {
	return r.relay(connID, roomID, EventSidePieceMoved, move)
}

func (r *Registry) relay(connID, roomID, event string, move board.Move) error {
	if !move.Valid() {
		return ErrInvalidMove
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	target, err := r.roomOfLocked(connID, roomID)
	if err != nil {
		return err
	}
	r.broadcastLocked(target, connID, Message{Event: event, Payload: move})
	return nil
}

// Reset tells the members of roomID to restart their boards. The sender is
// included only when includeSender is set.
func (r *Registry) Reset(connID, roomID string, includeSender bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, err := r.roomOfLocked(connID, roomID)
	if err != nil {
		return err
	}
	except := connID
	if includeSender {
		except = ""
	}
	r.broadcastLocked(target, except, Message{Event: EventBoardReset})
	return nil
}

// Send delivers message to one connection only.
func (r *Registry) Send(connID string, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[connID]
	if !ok {
		return ErrUnknownMember
	}
	r.deliverLocked(member, message)
	return nil
}

// Room returns a snapshot of roomID.
func (r *Registry) Room(roomID string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rooms[roomID]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		RoomID:     roomID,
		PuzzleID:   current.puzzleID,
		Members:    current.ids(""),
		UsersCount: len(current.members),
	}, true
}

// Count reports the number of live rooms.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Connections reports the number of registered connections.
func (r *Registry) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Registry) roomOfLocked(connID, roomID string) (*room, error) {
	member, ok := r.members[connID]
	if !ok {
		return nil, ErrUnknownMember
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrInvalidRoom
	}
	if member.roomID != roomID {
		return nil, ErrNotInRoom
	}
	return r.rooms[roomID], nil
}

func (r *Registry) leaveLocked(member *Member) {
	roomID := member.roomID
	member.roomID = ""
	current, ok := r.rooms[roomID]
	if !ok {
		return
	}
	current.remove(member.id)
	r.broadcastLocked(current, member.id, Message{Event: EventUserLeft, Payload: member.id})
	if len(current.members) == 0 {
		delete(r.rooms, roomID)
		r.logger.Info("room destroyed", zap.String("room_id", roomID))
		return
	}
	r.logger.Debug("room left",
		zap.String("room_id", roomID),
		zap.String("conn_id", member.id),
		zap.Int("users", len(current.members)))
}

func (r *Registry) broadcastLocked(target *room, except string, message Message) {
	for _, member := range target.members {
		if member.id == except {
			continue
		}
		r.deliverLocked(member, message)
	}
}

func (r *Registry) deliverLocked(member *Member, message Message) {
	select {
	case member.stream <- message:
	default:
		r.logger.Warn("room message dropped",
			zap.String("conn_id", member.id),
			zap.String("event", message.Event))
	}
}
