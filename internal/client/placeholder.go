package client

import (
	"context"
	"math/rand/v2"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"go.uber.org/zap"
)

const (
	PlaceholderDescription = "Loading puzzle..."
	PlaceholderSolution    = "Solution will appear here"
)

// Placeholder is the puzzle shown when the catalogue cannot be reached: a
// random id in the difficulty's bucket, an empty board and stock texts.
func Placeholder(difficulty puzzles.Difficulty) puzzles.Puzzle {
	low, high := difficulty.Range()
	if low > high {
		low, high = puzzles.Easy.Range()
	}
	return puzzles.Puzzle{
		ID:          low + rand.IntN(high-low+1),
		Description: PlaceholderDescription,
		FEN:         "8/8/8/8/8/8/8/8",
		Direction:   "w",
		Solution:    PlaceholderSolution,
	}
}

// FetchPuzzle loads puzzle id, degrading to a placeholder for the same id
// on any failure.
func (a *API) FetchPuzzle(ctx context.Context, id int) puzzles.Puzzle {
	puzzle, err := a.Puzzle(ctx, id)
	if err == nil {
		return puzzle
	}
	difficulty, ok := puzzles.DifficultyFor(id)
	if !ok {
		difficulty = puzzles.Easy
	}
	placeholder := Placeholder(difficulty)
	if ok {
		placeholder.ID = id
	}
	a.logger.Warn("puzzle fetch failed, using placeholder",
		zap.Int("puzzle_id", id),
		zap.Int("placeholder_id", placeholder.ID),
		zap.Error(err))
	return placeholder
}

// FetchRandom loads a random puzzle of the given difficulty, degrading to a
// placeholder on any failure.
func (a *API) FetchRandom(ctx context.Context, difficulty puzzles.Difficulty) puzzles.Puzzle {
	puzzle, err := a.RandomPuzzle(ctx, difficulty)
	if err == nil {
		return puzzle
	}
	a.logger.Warn("random puzzle fetch failed, using placeholder",
		zap.String("difficulty", string(difficulty)),
		zap.Error(err))
	return Placeholder(difficulty)
}
