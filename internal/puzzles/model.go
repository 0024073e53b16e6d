// Package puzzles serves the Woodpecker puzzle catalogue: 1128 positions
// numbered from 1, bucketed into difficulty levels by id.
package puzzles

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPuzzleID is the highest id in the catalogue.
const MaxPuzzleID = 1128

// DefaultSolution is served for puzzles stored without a solution text.
const DefaultSolution = "No solution available"

// Puzzle is one catalogue entry.
type Puzzle struct {
	ID          int    `json:"puzzle_id"`
	Description string `json:"descr"`
	FEN         string `json:"fen"`
	Direction   string `json:"direction"`
	Solution    string `json:"solution"`
	Unicode     string `json:"unicode,omitempty"`
	Lichess     string `json:"lichess,omitempty"`
}

// Difficulty derives from the puzzle id and is never stored.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var ErrUnknownDifficulty = errors.New("puzzles: unknown difficulty")

var difficultyRanges = map[Difficulty][2]int{
	Easy:   {1, 222},
	Medium: {223, 984},
	Hard:   {985, MaxPuzzleID},
}

// Difficulties lists the levels from easiest to hardest.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// ParseDifficulty accepts a level name in any case.
func ParseDifficulty(raw string) (Difficulty, error) {
	candidate := Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := difficultyRanges[candidate]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, raw)
	}
	return candidate, nil
}

// Range returns the inclusive id bounds of the level.
func (d Difficulty) Range() (int, int) {
	bounds, ok := difficultyRanges[d]
	if !ok {
		return 0, -1
	}
	return bounds[0], bounds[1]
}

// Contains reports whether id falls in the level's bucket.
func (d Difficulty) Contains(id int) bool {
	low, high := d.Range()
	return id >= low && id <= high
}

// DifficultyFor returns the bucket of id, or false when id is outside the catalogue.
func DifficultyFor(id int) (Difficulty, bool) {
	for _, level := range Difficulties() {
		if level.Contains(id) {
			return level, true
		}
	}
	return "", false
}

// ValidID reports whether id is inside [1, MaxPuzzleID].
func ValidID(id int) bool {
	return id >= 1 && id <= MaxPuzzleID
}

func (p Puzzle) withDefaults() Puzzle {
	if strings.TrimSpace(p.Solution) == "" {
		p.Solution = DefaultSolution
	}
	return p
}
