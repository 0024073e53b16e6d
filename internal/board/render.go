package board

import "strings"

// Render draws p as text, seen from the given side: the opponent's tray on
// top, the board with file and rank labels, and the player's tray below.
// Empty squares are dots; pieces use FEN letters.
func Render(p Placement, side Color) string {
	if !side.Valid() {
		side = White
	}
	var builder strings.Builder

	renderTray(&builder, p, side.Opposite())

	rankOrder := []int{7, 6, 5, 4, 3, 2, 1, 0}
	fileOrder := []int{0, 1, 2, 3, 4, 5, 6, 7}
	if side == Black {
		rankOrder = []int{0, 1, 2, 3, 4, 5, 6, 7}
		fileOrder = []int{7, 6, 5, 4, 3, 2, 1, 0}
	}

	for _, rank := range rankOrder {
		builder.WriteByte(ranks[rank])
		builder.WriteString(" ")
		for _, file := range fileOrder {
			builder.WriteByte(' ')
			if piece, ok := p[Square(file, rank)]; ok {
				builder.WriteRune(piece.Symbol())
			} else {
				builder.WriteByte('.')
			}
		}
		builder.WriteByte('\n')
	}
	builder.WriteString("  ")
	for _, file := range fileOrder {
		builder.WriteByte(' ')
		builder.WriteByte(files[file])
	}
	builder.WriteByte('\n')

	renderTray(&builder, p, side)
	return builder.String()
}

func renderTray(builder *strings.Builder, p Placement, color Color) {
	builder.WriteString("  ")
	for _, cell := range TraySlotsFor(color) {
		builder.WriteByte(' ')
		builder.WriteString(cell.String())
		builder.WriteByte(':')
		if piece, ok := p[cell]; ok {
			builder.WriteRune(piece.Symbol())
		} else {
			builder.WriteByte('-')
		}
	}
	builder.WriteByte('\n')
}
