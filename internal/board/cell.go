package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCell indicates a string that names neither a board square nor a tray slot.
var ErrInvalidCell = errors.New("board: invalid cell")

const (
	files = "ABCDEFGH"
	ranks = "12345678"
)

// Cell identifies a desk cell: one of the 64 board squares ("A1".."H8") or
// one of the 12 tray slots ("w1".."w6", "b1".."b6").
type Cell string

// Square builds the board square for a zero-based file and rank index.
func Square(file, rank int) Cell {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return ""
	}
	return Cell(string(files[file]) + string(ranks[rank]))
}

// ParseCell normalises case and validates the input. A lower-case "w" or
// "b" prefix always names a tray slot, so "b3" is the black tray and "B3" the
// board square; "b7" is an error.
func ParseCell(raw string) (Cell, error) {
	value := strings.TrimSpace(raw)
	if len(value) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCell, raw)
	}
	if value[0] == 'w' || value[0] == 'b' {
		if candidate := Cell(value); candidate.IsTray() {
			return candidate, nil
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidCell, raw)
	}
	if candidate := Cell(strings.ToUpper(value)); candidate.IsSquare() {
		return candidate, nil
	}
	if candidate := Cell(strings.ToLower(value)); candidate.IsTray() {
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCell, raw)
}

// IsSquare reports whether c is one of the 64 board squares.
func (c Cell) IsSquare() bool {
	if len(c) != 2 {
		return false
	}
	return strings.IndexByte(files, c[0]) >= 0 && strings.IndexByte(ranks, c[1]) >= 0
}

// IsTray reports whether c is one of the 12 tray slots.
func (c Cell) IsTray() bool {
	_, ok := trayOccupants[c]
	return ok
}

// Valid reports whether c is a desk cell.
func (c Cell) Valid() bool {
	return c.IsSquare() || c.IsTray()
}

// File returns the zero-based file index of a board square, or -1.
func (c Cell) File() int {
	if !c.IsSquare() {
		return -1
	}
	return strings.IndexByte(files, c[0])
}

// Rank returns the zero-based rank index of a board square, or -1.
func (c Cell) Rank() int {
	if !c.IsSquare() {
		return -1
	}
	return strings.IndexByte(ranks, c[1])
}

func (c Cell) String() string {
	return string(c)
}

var (
	whiteTray = []Cell{"w1", "w2", "w3", "w4", "w5", "w6"}
	blackTray = []Cell{"b1", "b2", "b3", "b4", "b5", "b6"}

	trayOccupants = map[Cell]Piece{
		"w1": {Kind: Rook, Color: White},
		"w2": {Kind: King, Color: White},
		"w3": {Kind: Knight, Color: White},
		"w4": {Kind: Queen, Color: White},
		"w5": {Kind: Bishop, Color: White},
		"w6": {Kind: Pawn, Color: White},
		"b1": {Kind: Bishop, Color: Black},
		"b2": {Kind: Pawn, Color: Black},
		"b3": {Kind: Knight, Color: Black},
		"b4": {Kind: Queen, Color: Black},
		"b5": {Kind: Rook, Color: Black},
		"b6": {Kind: King, Color: Black},
	}
)

// TrayOccupant returns the fixed piece a tray slot always holds.
func TrayOccupant(c Cell) (Piece, bool) {
	piece, ok := trayOccupants[c]
	return piece, ok
}

// Squares lists the board squares file by file, A1 first.
func Squares() []Cell {
	cells := make([]Cell, 0, 64)
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			cells = append(cells, Square(file, rank))
		}
	}
	return cells
}

// TraySlots lists the white tray followed by the black tray.
func TraySlots() []Cell {
	cells := make([]Cell, 0, len(whiteTray)+len(blackTray))
	cells = append(cells, whiteTray...)
	return append(cells, blackTray...)
}

// TraySlotsFor lists the tray slots of one color.
func TraySlotsFor(color Color) []Cell {
	if color == Black {
		return append([]Cell(nil), blackTray...)
	}
	return append([]Cell(nil), whiteTray...)
}

// DeskCells lists every board square and tray slot.
func DeskCells() []Cell {
	return append(Squares(), TraySlots()...)
}
