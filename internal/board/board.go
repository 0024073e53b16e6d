// Package board models the puzzle desk: 64 board squares plus two trays of
// inexhaustible reserve pieces, and the click-driven interaction state
// machine used both locally and when mirroring a shared room.
//
// Nothing here enforces chess rules. Any piece may go to any cell; the board
// is a sandbox for demonstrating a solution.
package board

// Board holds the live placement, the puzzle-start placement it restarts
// from, and at most one selected cell. A Board is not safe for concurrent
// use; callers serialise events.
type Board struct {
	start     Placement
	placement Placement
	selected  Cell
}

// New builds a board whose puzzle-start placement is start.
func New(start Placement) *Board {
	b := &Board{start: start.Clone()}
	b.Restart()
	return b
}

// FromFEN builds a board from a FEN piece-placement field plus the tray occupants.
func FromFEN(fen string) *Board {
	return New(StartPlacement(fen))
}

// Restart discards the live placement, recreates it from the puzzle-start
// placement and clears the selection.
func (b *Board) Restart() {
	b.placement = b.start.Clone()
	b.selected = ""
}

// Selected returns the selected cell, if any.
func (b *Board) Selected() (Cell, bool) {
	return b.selected, b.selected != ""
}

// Placement returns a copy of the live placement.
func (b *Board) Placement() Placement {
	return b.placement.Clone()
}

// Start returns a copy of the puzzle-start placement.
func (b *Board) Start() Placement {
	return b.start.Clone()
}

// PieceAt returns the piece on cell in the live placement.
func (b *Board) PieceAt(cell Cell) (Piece, bool) {
	piece, ok := b.placement[cell]
	return piece, ok
}

// Click applies one user click. When the click commits a move, the move is
// returned with ok set so the caller can relay it.
func (b *Board) Click(cell Cell) (Move, bool) {
	if !cell.Valid() {
		return Move{}, false
	}

	switch {
	case b.selected == cell:
		b.selected = ""
		return Move{}, false

	case b.selected != "":
		moving, ok := b.placement[b.selected]
		if !ok {
			return Move{}, false
		}
		srcIsTray := b.selected.IsTray()
		dstIsTray := cell.IsTray()
		dest, occupied := b.placement[cell]
		if (srcIsTray && dstIsTray) || (!dstIsTray && occupied && dest.Color == moving.Color) {
			b.selected = cell
			return Move{}, false
		}
		move := newMove(b.selected, cell, moving)
		move.applyTo(b.placement)
		b.selected = ""
		return move, true

	case b.hasPiece(cell):
		b.selected = cell
	}
	return Move{}, false
}

// Apply replays a move received from a peer. The edit is applied verbatim
// using the move's own piece; nothing is checked against the local state.
func (b *Board) Apply(move Move) {
	if !move.From.Valid() || !move.To.Valid() {
		return
	}
	move.applyTo(b.placement)
	b.selected = ""
}

func (b *Board) hasPiece(cell Cell) bool {
	_, ok := b.placement[cell]
	return ok
}
