package board

import (
	"encoding/json"
	"testing"
)

func newStartingBoard(t *testing.T) *Board {
	t.Helper()
	return FromFEN(startingPlacement)
}

func TestNewBoardIncludesTrayOccupants(t *testing.T) {
	b := newStartingBoard(t)
	placement := b.Placement()
	if len(placement) != 32+12 {
		t.Fatalf("expected 44 occupied cells, got %d", len(placement))
	}
	for _, cell := range TraySlots() {
		occupant, _ := TrayOccupant(cell)
		if placement[cell] != occupant {
			t.Fatalf("expected %s to hold %v, got %v", cell, occupant, placement[cell])
		}
	}
	if _, ok := b.Selected(); ok {
		t.Fatalf("expected no selection on a fresh board")
	}
}

func TestClickEmptyCellWithoutSelectionIsNoop(t *testing.T) {
	b := newStartingBoard(t)
	before := b.Placement()
	empty := 0
	for _, cell := range DeskCells() {
		if _, occupied := before[cell]; occupied {
			continue
		}
		empty++
		if _, moved := b.Click(cell); moved {
			t.Fatalf("did not expect a move clicking empty %s", cell)
		}
		if _, ok := b.Selected(); ok {
			t.Fatalf("did not expect a selection after clicking empty %s", cell)
		}
	}
	if empty != 32 {
		t.Fatalf("expected 32 empty cells on the starting desk, got %d", empty)
	}
	if !b.Placement().Equal(before) {
		t.Fatalf("placement changed after clicking empty cells")
	}
}

func TestClickOccupiedCellSelects(t *testing.T) {
	start := newStartingBoard(t).Placement()
	for _, cell := range DeskCells() {
		if _, occupied := start[cell]; !occupied {
			continue
		}
		b := newStartingBoard(t)
		if _, moved := b.Click(cell); moved {
			t.Fatalf("selecting %s must not commit a move", cell)
		}
		selected, ok := b.Selected()
		if !ok || selected != cell {
			t.Fatalf("expected %s to be selected, got %q", cell, selected)
		}
		if !b.Placement().Equal(start) {
			t.Fatalf("selecting %s mutated the placement", cell)
		}
	}
}

func TestClickSelectedCellDeselects(t *testing.T) {
	b := newStartingBoard(t)
	before := b.Placement()
	b.Click("G1")
	if _, moved := b.Click("G1"); moved {
		t.Fatalf("did not expect a move when clicking the selected cell")
	}
	if _, ok := b.Selected(); ok {
		t.Fatalf("expected selection to clear")
	}
	if !b.Placement().Equal(before) {
		t.Fatalf("deselecting mutated the placement")
	}
}

func TestPawnMoveE2E4(t *testing.T) {
	b := newStartingBoard(t)
	b.Click("E2")
	move, moved := b.Click("E4")
	if !moved {
		t.Fatalf("expected the move to commit")
	}
	if _, ok := b.PieceAt("E2"); ok {
		t.Fatalf("expected E2 to be empty")
	}
	if piece, _ := b.PieceAt("E4"); piece != (Piece{Kind: Pawn, Color: White}) {
		t.Fatalf("expected white pawn on E4, got %v", piece)
	}
	if _, ok := b.Selected(); ok {
		t.Fatalf("expected selection to clear after a move")
	}
	expected := Move{From: "E2", To: "E4", Piece: Piece{Kind: Pawn, Color: White}, MoveType: MoveOnBoard}
	if move != expected {
		t.Fatalf("unexpected move description: %+v", move)
	}
}

func TestCaptureOverwritesOpponentPiece(t *testing.T) {
	b := FromFEN("8/8/8/3p4/4P3/8/8/8")
	b.Click("E4")
	if _, moved := b.Click("D5"); !moved {
		t.Fatalf("expected capture to commit")
	}
	if piece, _ := b.PieceAt("D5"); piece != (Piece{Kind: Pawn, Color: White}) {
		t.Fatalf("expected white pawn on D5, got %v", piece)
	}
	if len(b.Placement()) != 1+12 {
		t.Fatalf("expected the captured pawn to be dropped, got %v", b.Placement())
	}
}

func TestFriendlyDestinationReselects(t *testing.T) {
	b := newStartingBoard(t)
	before := b.Placement()
	b.Click("E2")
	if _, moved := b.Click("D1"); moved {
		t.Fatalf("did not expect a move onto a friendly piece")
	}
	selected, _ := b.Selected()
	if selected != "D1" {
		t.Fatalf("expected selection to move to D1, got %q", selected)
	}
	if !b.Placement().Equal(before) {
		t.Fatalf("blocked move mutated the placement")
	}
}

func TestTrayToTrayReselects(t *testing.T) {
	b := newStartingBoard(t)
	before := b.Placement()
	b.Click("w1")
	if _, moved := b.Click("b3"); moved {
		t.Fatalf("did not expect a tray to tray move")
	}
	selected, _ := b.Selected()
	if selected != "b3" {
		t.Fatalf("expected selection to move to b3, got %q", selected)
	}
	if !b.Placement().Equal(before) {
		t.Fatalf("tray to tray attempt mutated the placement")
	}
}

func TestDeployFromTrayRefillsSlot(t *testing.T) {
	b := FromFEN("8/8/8/8/8/8/8/8")
	b.Click("w4")
	move, moved := b.Click("D4")
	if !moved {
		t.Fatalf("expected deploy to commit")
	}
	if piece, _ := b.PieceAt("D4"); piece != (Piece{Kind: Queen, Color: White}) {
		t.Fatalf("expected white queen on D4, got %v", piece)
	}
	if piece, ok := b.PieceAt("w4"); !ok || piece != (Piece{Kind: Queen, Color: White}) {
		t.Fatalf("expected w4 to be refilled, got %v (present=%v)", piece, ok)
	}
	if !move.IsSideCellMove || move.MoveType != MoveFromSide {
		t.Fatalf("unexpected move classification: %+v", move)
	}
}

func TestParsedBlackTrayCellDeploys(t *testing.T) {
	b := FromFEN("8/8/8/8/8/8/8/K7")
	for _, raw := range []string{"b3", "e5"} {
		cell, err := ParseCell(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		b.Click(cell)
	}
	if piece, _ := b.PieceAt("E5"); piece != (Piece{Kind: Knight, Color: Black}) {
		t.Fatalf("expected the black knight on E5, got %v", piece)
	}
	if piece, ok := b.PieceAt("b3"); !ok || piece != (Piece{Kind: Knight, Color: Black}) {
		t.Fatalf("expected b3 to be refilled, got %v (present=%v)", piece, ok)
	}
	if _, ok := b.PieceAt("B3"); ok {
		t.Fatalf("the B3 square must stay empty")
	}
}

func TestDeployOntoOpponentReplacesIt(t *testing.T) {
	b := FromFEN("8/8/8/8/3p4/8/8/8")
	b.Click("b4")
	if _, moved := b.Click("D4"); moved {
		t.Fatalf("did not expect a black piece to land on a black piece")
	}
	b.Click("D4")
	b.Click("w6")
	if _, moved := b.Click("D4"); !moved {
		t.Fatalf("expected white pawn to replace the black pawn")
	}
	if piece, _ := b.PieceAt("D4"); piece.Color != White {
		t.Fatalf("expected white piece on D4, got %v", piece)
	}
}

func TestDiscardToTrayRemovesPiece(t *testing.T) {
	b := newStartingBoard(t)
	b.Click("D8")
	move, moved := b.Click("w2")
	if !moved {
		t.Fatalf("expected discard to commit")
	}
	if _, ok := b.PieceAt("D8"); ok {
		t.Fatalf("expected D8 to be empty after discarding")
	}
	if piece, _ := b.PieceAt("w2"); piece != (Piece{Kind: King, Color: White}) {
		t.Fatalf("expected w2 to keep its canonical occupant, got %v", piece)
	}
	if move.MoveType != MoveToSide || !move.IsSideCellMove {
		t.Fatalf("unexpected move classification: %+v", move)
	}
}

func TestNoPieceIsLostOrDuplicatedByBlockedMoves(t *testing.T) {
	b := newStartingBoard(t)
	clicks := []Cell{"A1", "B1", "C1", "C1", "w1", "w2", "b5", "b5", "H8", "G8"}
	for _, cell := range clicks {
		b.Click(cell)
	}
	if !b.Placement().Equal(b.Start()) {
		t.Fatalf("expected placement to remain unchanged after blocked clicks")
	}
}

func TestInvalidCellIsIgnored(t *testing.T) {
	b := newStartingBoard(t)
	b.Click("E2")
	if _, moved := b.Click("Z9"); moved {
		t.Fatalf("did not expect a move to an invalid cell")
	}
	if selected, _ := b.Selected(); selected != "E2" {
		t.Fatalf("expected selection to be preserved, got %q", selected)
	}
}

func TestRestartIsIdempotent(t *testing.T) {
	b := newStartingBoard(t)
	expected := StartPlacement(startingPlacement)
	for i := 0; i < 3; i++ {
		b.Click("E2")
		b.Click("E4")
		b.Click("w4")
		b.Click("H5")
		b.Click("G8")
		b.Restart()
		if !b.Placement().Equal(expected) {
			t.Fatalf("restart %d did not restore the start placement", i)
		}
		if _, ok := b.Selected(); ok {
			t.Fatalf("restart %d left a selection", i)
		}
	}
}

func TestApplyReplaysRemoteMoves(t *testing.T) {
	local := newStartingBoard(t)
	remote := newStartingBoard(t)

	clicks := [][2]Cell{{"E2", "E4"}, {"w4", "H5"}, {"D8", "b1"}, {"b3", "C3"}}
	for _, pair := range clicks {
		local.Click(pair[0])
		move, moved := local.Click(pair[1])
		if !moved {
			t.Fatalf("expected %s -> %s to commit", pair[0], pair[1])
		}
		remote.Apply(move)
	}
	if !local.Placement().Equal(remote.Placement()) {
		t.Fatalf("replayed placement diverged:\nlocal  %v\nremote %v", local.Placement(), remote.Placement())
	}
}

func TestApplyClearsSelection(t *testing.T) {
	b := newStartingBoard(t)
	b.Click("G1")
	b.Apply(Move{From: "E7", To: "E5", Piece: Piece{Kind: Pawn, Color: Black}})
	if _, ok := b.Selected(); ok {
		t.Fatalf("expected remote move to clear the selection")
	}
}

// Concurrent moves relayed without sequencing can leave peers with
// different placements. Nothing reconciles them; this test pins that down.
func TestConcurrentRemoteMovesMayDiverge(t *testing.T) {
	peerA := newStartingBoard(t)
	peerB := newStartingBoard(t)

	peerA.Click("D1")
	moveA, _ := peerA.Click("D4")
	peerB.Click("C1")
	moveB, _ := peerB.Click("D4")

	peerA.Apply(moveB)
	peerB.Apply(moveA)

	if peerA.Placement().Equal(peerB.Placement()) {
		t.Fatalf("expected peers to diverge after crossing moves")
	}
	if piece, _ := peerA.PieceAt("D4"); piece.Kind != Bishop {
		t.Fatalf("expected peer A to end with the bishop on D4, got %v", piece)
	}
	if piece, _ := peerB.PieceAt("D4"); piece.Kind != Queen {
		t.Fatalf("expected peer B to end with the queen on D4, got %v", piece)
	}
}

func TestMoveJSONAcceptsLegacyPieceKey(t *testing.T) {
	payload := `{"from":"w1","to":"A4","piece":{"type":"rook","color":"white"},"isSideCellMove":true,"moveType":"from-side"}`
	var move Move
	if err := json.Unmarshal([]byte(payload), &move); err != nil {
		t.Fatalf("failed to decode move: %v", err)
	}
	if move.Piece != (Piece{Kind: Rook, Color: White}) {
		t.Fatalf("unexpected piece: %v", move.Piece)
	}
	if !move.Valid() {
		t.Fatalf("expected decoded move to be valid")
	}

	encoded, err := json.Marshal(move)
	if err != nil {
		t.Fatalf("failed to encode move: %v", err)
	}
	expected := `{"from":"w1","to":"A4","piece":{"kind":"rook","color":"white"},"isSideCellMove":true,"moveType":"from-side"}`
	if string(encoded) != expected {
		t.Fatalf("unexpected encoding: %s", encoded)
	}
}
