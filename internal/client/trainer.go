package client

import (
	"context"
	"errors"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/board"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/evaluations"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
)

var (
	ErrNotLoggedIn = errors.New("client: log in to rate puzzles")
	ErrNoPuzzle    = errors.New("client: no puzzle loaded")
)

// Trainer is a solo session: one puzzle on one board.
type Trainer struct {
	api      *API
	puzzle   puzzles.Puzzle
	board    *board.Board
	loaded   bool
	revealed bool
}

func NewTrainer(api *API) *Trainer {
	return &Trainer{api: api, board: board.New(board.TrayPlacement())}
}

// Load shows puzzle id, or a placeholder when it cannot be fetched.
func (t *Trainer) Load(ctx context.Context, id int) puzzles.Puzzle {
	t.show(t.api.FetchPuzzle(ctx, id))
	return t.puzzle
}

// LoadRandom shows a random puzzle of the given difficulty.
func (t *Trainer) LoadRandom(ctx context.Context, difficulty puzzles.Difficulty) puzzles.Puzzle {
	t.show(t.api.FetchRandom(ctx, difficulty))
	return t.puzzle
}

// Show replaces the current puzzle without a fetch.
func (t *Trainer) Show(puzzle puzzles.Puzzle) {
	t.show(puzzle)
}

func (t *Trainer) show(puzzle puzzles.Puzzle) {
	t.puzzle = puzzle
	t.board = board.FromFEN(puzzle.FEN)
	t.loaded = true
	t.revealed = false
}

func (t *Trainer) Puzzle() (puzzles.Puzzle, bool) {
	return t.puzzle, t.loaded
}

func (t *Trainer) Board() *board.Board {
	return t.board
}

func (t *Trainer) Click(cell board.Cell) (board.Move, bool) {
	return t.board.Click(cell)
}

func (t *Trainer) Restart() {
	t.board.Restart()
}

// Solution reveals the solution text.
func (t *Trainer) Solution() (string, error) {
	if !t.loaded {
		return "", ErrNoPuzzle
	}
	t.revealed = true
	return t.puzzle.Solution, nil
}

func (t *Trainer) Revealed() bool {
	return t.revealed
}

// Rate records the user's self-assessment of the current puzzle.
func (t *Trainer) Rate(ctx context.Context, value evaluations.Value) error {
	if !t.api.LoggedIn() {
		return ErrNotLoggedIn
	}
	if !t.loaded {
		return ErrNoPuzzle
	}
	parsed, err := evaluations.ParseValue(string(value))
	if err != nil {
		return err
	}
	return t.api.SaveEvaluation(ctx, t.puzzle.ID, parsed)
}

// Evaluation returns the stored rating of the current puzzle.
func (t *Trainer) Evaluation(ctx context.Context) (evaluations.Value, bool, error) {
	if !t.api.LoggedIn() {
		return "", false, ErrNotLoggedIn
	}
	if !t.loaded {
		return "", false, ErrNoPuzzle
	}
	return t.api.Evaluation(ctx, t.puzzle.ID)
}

// Render draws the live board from the side to move.
func (t *Trainer) Render() string {
	return board.Render(t.board.Placement(), SideToMove(t.puzzle.Direction))
}

// SideToMove maps a puzzle direction ("w" or "b") to a color.
func SideToMove(direction string) board.Color {
	if direction == "b" {
		return board.Black
	}
	return board.White
}
