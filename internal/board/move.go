package board

// MoveType classifies a committed move by whether it touches a tray slot.
type MoveType string

const (
	MoveFromSide MoveType = "from-side"
	MoveToSide   MoveType = "to-side"
	MoveOnBoard  MoveType = "board"
)

// Move describes a committed placement edit. It is what a shared room relays
// between peers, who replay it verbatim.
type Move struct {
	From           Cell     `json:"from"`
	To             Cell     `json:"to"`
	Piece          Piece    `json:"piece"`
	IsSideCellMove bool     `json:"isSideCellMove"`
	MoveType       MoveType `json:"moveType,omitempty"`
}

func newMove(from, to Cell, piece Piece) Move {
	move := Move{From: from, To: to, Piece: piece, MoveType: MoveOnBoard}
	switch {
	case from.IsTray():
		move.IsSideCellMove = true
		move.MoveType = MoveFromSide
	case to.IsTray():
		move.IsSideCellMove = true
		move.MoveType = MoveToSide
	}
	return move
}

// Valid reports whether both endpoints are desk cells and the piece is known.
func (m Move) Valid() bool {
	return m.From.Valid() && m.To.Valid() && m.From != m.To && m.Piece.Valid()
}

// applyTo performs the placement edit described by m.
func (m Move) applyTo(p Placement) {
	delete(p, m.From)
	if !m.To.IsTray() {
		p[m.To] = m.Piece
	}
	if occupant, ok := TrayOccupant(m.From); ok {
		p[m.From] = occupant
	}
}
