package board

import "strings"

// Decode maps the piece-placement field of a FEN record onto board squares.
//
// Decoding is best effort: characters outside the piece alphabet and digits
// are skipped without advancing the file, and anything that would land off
// the 8x8 board is dropped. Malformed input yields a partial placement,
// never an error. No chess legality is checked.
func Decode(fen string) Placement {
	placement := make(Placement)
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return placement
	}

	for rankIndex, row := range strings.Split(fields[0], "/") {
		rank := 7 - rankIndex
		file := 0
		for _, char := range row {
			switch {
			case char >= '0' && char <= '9':
				file += int(char - '0')
			default:
				piece, ok := fenPieces[char]
				if !ok {
					continue
				}
				if cell := Square(file, rank); cell != "" {
					placement[cell] = piece
				}
				file++
			}
		}
	}
	return placement
}

// Encode renders the board squares of p as a FEN piece-placement field.
// Tray slots are ignored.
func Encode(p Placement) string {
	var builder strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece, ok := p[Square(file, rank)]
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				builder.WriteByte(byte('0' + empty))
				empty = 0
			}
			builder.WriteRune(piece.Symbol())
		}
		if empty > 0 {
			builder.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			builder.WriteByte('/')
		}
	}
	return builder.String()
}
