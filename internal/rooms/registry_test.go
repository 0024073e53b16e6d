package rooms

import (
	"errors"
	"reflect"
	"testing"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/board"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var sampleMove = board.Move{
	From:     "E2",
	To:       "E4",
	Piece:    board.Piece{Kind: board.Pawn, Color: board.White},
	MoveType: board.MoveOnBoard,
}

func connect(t *testing.T, registry *Registry, connID string) *Member {
	t.Helper()
	member, err := registry.Connect(connID)
	if err != nil {
		t.Fatalf("connect %s failed: %v", connID, err)
	}
	return member
}

func drain(member *Member) []Message {
	var messages []Message
	for {
		select {
		case message, ok := <-member.Stream():
			if !ok {
				return messages
			}
			messages = append(messages, message)
		default:
			return messages
		}
	}
}

func events(messages []Message) []string {
	names := make([]string, 0, len(messages))
	for _, message := range messages {
		names = append(names, message.Event)
	}
	return names
}

func TestJoinCreatesRoomAndAcknowledges(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	alice := connect(t, registry, "alice")

	if err := registry.Join("alice", "room-1", 42); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	messages := drain(alice)
	if !reflect.DeepEqual(events(messages), []string{EventRoomJoined, EventRoomUsers}) {
		t.Fatalf("unexpected events %v", events(messages))
	}
	joined := messages[0].Payload.(RoomJoined)
	if joined != (RoomJoined{RoomID: "room-1", PuzzleID: 42, UsersCount: 1}) {
		t.Fatalf("unexpected acknowledgement %+v", joined)
	}
	if users := messages[1].Payload.([]string); len(users) != 0 {
		t.Fatalf("expected no other users, got %v", users)
	}
	if registry.Count() != 1 {
		t.Fatalf("expected one room, got %d", registry.Count())
	}
}

func TestLateJoinerLearnsRoomPuzzle(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	alice := connect(t, registry, "alice")
	bob := connect(t, registry, "bob")

	_ = registry.Join("alice", "room-1", 42)
	drain(alice)
	if err := registry.Join("bob", "room-1", 7); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	bobMessages := drain(bob)
	joined := bobMessages[0].Payload.(RoomJoined)
	if joined.PuzzleID != 42 || joined.UsersCount != 2 {
		t.Fatalf("expected the room's puzzle and two users, got %+v", joined)
	}
	if users := bobMessages[1].Payload.([]string); !reflect.DeepEqual(users, []string{"alice"}) {
		t.Fatalf("expected existing members, got %v", users)
	}

	aliceMessages := drain(alice)
	if len(aliceMessages) != 1 || aliceMessages[0].Event != EventUserJoined || aliceMessages[0].Payload != "bob" {
		t.Fatalf("expected alice to be told about bob, got %+v", aliceMessages)
	}

	snapshot, ok := registry.Room("room-1")
	if !ok || snapshot.PuzzleID != 42 || !reflect.DeepEqual(snapshot.Members, []string{"alice", "bob"}) {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestRelayMoveExcludesSender(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	members := map[string]*Member{}
	for _, id := range []string{"a", "b", "c"} {
		members[id] = connect(t, registry, id)
		_ = registry.Join(id, "room", 1)
	}
	outsider := connect(t, registry, "d")
	_ = registry.Join("d", "elsewhere", 1)
	for _, member := range members {
		drain(member)
	}
	drain(outsider)

	if err := registry.RelayMove("a", "room", sampleMove); err != nil {
		t.Fatalf("relay failed: %v", err)
	}

	if got := drain(members["a"]); len(got) != 0 {
		t.Fatalf("sender must not receive its own move, got %+v", got)
	}
	for _, id := range []string{"b", "c"} {
		got := drain(members[id])
		if len(got) != 1 || got[0].Event != EventPieceMoved || got[0].Payload.(board.Move) != sampleMove {
			t.Fatalf("expected %s to receive the move verbatim, got %+v", id, got)
		}
	}
	if got := drain(outsider); len(got) != 0 {
		t.Fatalf("other rooms must not receive the move, got %+v", got)
	}
}

func TestRelayMoveRequiresMembership(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	connect(t, registry, "a")
	connect(t, registry, "b")
	_ = registry.Join("a", "room", 1)

	if err := registry.RelayMove("b", "room", sampleMove); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("expected ErrNotInRoom, got %v", err)
	}
	if err := registry.RelayMove("ghost", "room", sampleMove); !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}
	if err := registry.RelayMove("a", "room", board.Move{From: "E2", To: "E2"}); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove, got %v", err)
	}
}

func TestResetAudience(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	alice := connect(t, registry, "alice")
	bob := connect(t, registry, "bob")
	_ = registry.Join("alice", "room", 1)
	_ = registry.Join("bob", "room", 1)
	drain(alice)
	drain(bob)

	if err := registry.Reset("alice", "room", true); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if got := events(drain(alice)); !reflect.DeepEqual(got, []string{EventBoardReset}) {
		t.Fatalf("expected sender to be included, got %v", got)
	}
	if got := events(drain(bob)); !reflect.DeepEqual(got, []string{EventBoardReset}) {
		t.Fatalf("expected peer to receive reset, got %v", got)
	}

	if err := registry.Reset("alice", "room", false); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if got := drain(alice); len(got) != 0 {
		t.Fatalf("expected sender to be excluded, got %v", got)
	}
	if got := events(drain(bob)); !reflect.DeepEqual(got, []string{EventBoardReset}) {
		t.Fatalf("expected peer to receive reset, got %v", got)
	}
}

func TestJoinAnotherRoomLeavesThePrevious(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	alice := connect(t, registry, "alice")
	bob := connect(t, registry, "bob")
	_ = registry.Join("alice", "first", 1)
	_ = registry.Join("bob", "first", 1)
	drain(alice)
	drain(bob)

	if err := registry.Join("alice", "second", 2); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	bobMessages := drain(bob)
	if len(bobMessages) != 1 || bobMessages[0].Event != EventUserLeft || bobMessages[0].Payload != "alice" {
		t.Fatalf("expected bob to see alice leave, got %+v", bobMessages)
	}

	_ = registry.RelayMove("bob", "first", sampleMove)
	for _, message := range drain(alice) {
		if message.Event == EventPieceMoved {
			t.Fatalf("alice must not receive moves from a room she left")
		}
	}
	if registry.Count() != 2 {
		t.Fatalf("expected two rooms, got %d", registry.Count())
	}
}

func TestLeaveAndDisconnectDestroyEmptyRooms(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	alice := connect(t, registry, "alice")
	bob := connect(t, registry, "bob")
	_ = registry.Join("alice", "room", 1)
	_ = registry.Join("bob", "room", 1)
	drain(alice)
	drain(bob)

	if err := registry.Leave("alice", "other"); err != nil {
		t.Fatalf("leaving a foreign room should be a no-op: %v", err)
	}
	if err := registry.Leave("alice", "room"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if got := drain(bob); len(got) != 1 || got[0].Event != EventUserLeft {
		t.Fatalf("expected user-left for bob, got %+v", got)
	}

	registry.Disconnect("bob")
	if _, ok := registry.Room("room"); ok {
		t.Fatalf("expected the empty room to be destroyed")
	}
	if _, ok := <-bob.Stream(); ok {
		t.Fatalf("expected bob's stream to be closed")
	}
	if registry.Connections() != 1 {
		t.Fatalf("expected one remaining connection, got %d", registry.Connections())
	}
	registry.Disconnect("bob")
}

func TestConnectValidation(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	if _, err := registry.Connect(" "); !errors.Is(err, ErrInvalidConnection) {
		t.Fatalf("expected ErrInvalidConnection, got %v", err)
	}
	connect(t, registry, "a")
	if _, err := registry.Connect("a"); !errors.Is(err, ErrDuplicateMember) {
		t.Fatalf("expected ErrDuplicateMember, got %v", err)
	}
	if err := registry.Join("a", "  ", 1); !errors.Is(err, ErrInvalidRoom) {
		t.Fatalf("expected ErrInvalidRoom, got %v", err)
	}
	if err := registry.Join("missing", "room", 1); !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}
}

func TestFullBufferDropsMessages(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	registry := NewRegistry(RegistryConfig{BufferSize: 2, Logger: zap.New(core)})
	sender := connect(t, registry, "sender")
	slow := connect(t, registry, "slow")
	_ = registry.Join("sender", "room", 1)
	drain(sender)
	_ = registry.Join("slow", "room", 1)
	drain(sender)
	drain(slow)

	for i := 0; i < 5; i++ {
		if err := registry.RelayMove("sender", "room", sampleMove); err != nil {
			t.Fatalf("relay must not fail on a slow receiver: %v", err)
		}
	}
	if got := drain(slow); len(got) != 2 {
		t.Fatalf("expected the buffer to cap delivery at 2, got %d", len(got))
	}
	if logs.FilterMessage("room message dropped").Len() != 3 {
		t.Fatalf("expected three dropped messages to be logged, got %d", logs.Len())
	}
}

func TestRelaySideMoveKeepsLegacyEventName(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	alice := connect(t, registry, "alice")
	bob := connect(t, registry, "bob")
	_ = registry.Join("alice", "room", 1)
	_ = registry.Join("bob", "room", 1)
	drain(alice)
	drain(bob)

	deploy := board.Move{
		From:           "w1",
		To:             "D4",
		Piece:          board.Piece{Kind: board.Rook, Color: board.White},
		IsSideCellMove: true,
		MoveType:       board.MoveFromSide,
	}
	if err := registry.RelaySideMove("alice", "room", deploy); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	got := drain(bob)
	if len(got) != 1 || got[0].Event != EventSidePieceMoved || got[0].Payload.(board.Move) != deploy {
		t.Fatalf("expected side-piece-moved, got %+v", got)
	}
	if len(drain(alice)) != 0 {
		t.Fatalf("sender must not receive its own move")
	}
}

func TestSendReachesOnlyTheAddressee(t *testing.T) {
	registry := NewRegistry(RegistryConfig{})
	alice := connect(t, registry, "alice")
	bob := connect(t, registry, "bob")
	_ = registry.Join("alice", "room", 1)
	_ = registry.Join("bob", "room", 1)
	drain(alice)
	drain(bob)

	message := Message{Event: EventError, Payload: ErrorPayload{Message: "malformed frame"}}
	if err := registry.Send("alice", message); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := drain(alice); len(got) != 1 || got[0].Event != EventError {
		t.Fatalf("expected an error frame for alice, got %+v", got)
	}
	if got := drain(bob); len(got) != 0 {
		t.Fatalf("bob must not receive alice's error, got %+v", got)
	}
	if err := registry.Send("ghost", message); !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}
}
