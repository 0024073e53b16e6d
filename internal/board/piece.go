package board

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates chess piece kinds.
type Kind string

const (
	King   Kind = "king"
	Queen  Kind = "queen"
	Rook   Kind = "rook"
	Bishop Kind = "bishop"
	Knight Kind = "knight"
	Pawn   Kind = "pawn"
)

// Color enumerates piece colors.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Valid reports whether k is one of the six chess piece kinds.
func (k Kind) Valid() bool {
	switch k {
	case King, Queen, Rook, Bishop, Knight, Pawn:
		return true
	default:
		return false
	}
}

// Valid reports whether c is white or black.
func (c Color) Valid() bool {
	return c == White || c == Black
}

// Opposite returns the other color.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// Piece is a value object: two pieces with equal kind and color are interchangeable.
type Piece struct {
	Kind  Kind  `json:"kind"`
	Color Color `json:"color"`
}

// Valid reports whether both fields hold known values.
func (p Piece) Valid() bool {
	return p.Kind.Valid() && p.Color.Valid()
}

func (p Piece) String() string {
	return fmt.Sprintf("%s %s", p.Color, p.Kind)
}

// UnmarshalJSON accepts both the "kind" key and the legacy "type" key.
func (p *Piece) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind  Kind  `json:"kind"`
		Type  Kind  `json:"type"`
		Color Color `json:"color"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind := raw.Kind
	if kind == "" {
		kind = raw.Type
	}
	p.Kind = kind
	p.Color = raw.Color
	return nil
}

var fenPieces = map[rune]Piece{
	'p': {Kind: Pawn, Color: Black},
	'r': {Kind: Rook, Color: Black},
	'n': {Kind: Knight, Color: Black},
	'b': {Kind: Bishop, Color: Black},
	'q': {Kind: Queen, Color: Black},
	'k': {Kind: King, Color: Black},
	'P': {Kind: Pawn, Color: White},
	'R': {Kind: Rook, Color: White},
	'N': {Kind: Knight, Color: White},
	'B': {Kind: Bishop, Color: White},
	'Q': {Kind: Queen, Color: White},
	'K': {Kind: King, Color: White},
}

// Symbol returns the FEN letter for the piece, or '?' for an invalid piece.
func (p Piece) Symbol() rune {
	for symbol, candidate := range fenPieces {
		if candidate == p {
			return symbol
		}
	}
	return '?'
}
