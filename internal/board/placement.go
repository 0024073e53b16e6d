package board

// Placement maps desk cells to pieces. Cells absent from the map are empty.
type Placement map[Cell]Piece

// Clone returns an independent copy.
func (p Placement) Clone() Placement {
	out := make(Placement, len(p))
	for cell, piece := range p {
		out[cell] = piece
	}
	return out
}

// Equal reports whether both placements hold the same pieces on the same cells.
func (p Placement) Equal(other Placement) bool {
	if len(p) != len(other) {
		return false
	}
	for cell, piece := range p {
		if candidate, ok := other[cell]; !ok || candidate != piece {
			return false
		}
	}
	return true
}

// Merge returns a new placement holding p overlaid with other; other wins on conflicts.
func (p Placement) Merge(other Placement) Placement {
	out := p.Clone()
	for cell, piece := range other {
		out[cell] = piece
	}
	return out
}

// TrayPlacement returns the 12 fixed tray occupants.
func TrayPlacement() Placement {
	out := make(Placement, len(trayOccupants))
	for cell, piece := range trayOccupants {
		out[cell] = piece
	}
	return out
}

// StartPlacement decodes fen and adds the fixed tray occupants.
func StartPlacement(fen string) Placement {
	return Decode(fen).Merge(TrayPlacement())
}
