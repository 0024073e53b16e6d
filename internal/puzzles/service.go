package puzzles

import (
	"context"
	"errors"
	"math/rand/v2"

	"go.uber.org/zap"
)

var (
	ErrInvalidPuzzleID = errors.New("puzzles: invalid puzzle id")
	ErrPuzzleNotFound  = errors.New("puzzles: puzzle not found")
	ErrNoPuzzles       = errors.New("puzzles: no puzzles in range")
	ErrInvalidRange    = errors.New("puzzles: invalid range")

	errMissingStore = errors.New("puzzle store is required")
)

type ServiceConfig struct {
	Store  Store
	Logger *zap.Logger
	// Pick returns a uniform index in [0, n). Defaults to math/rand/v2.
	Pick func(n int) int
}

// Service answers catalogue queries over a Store.
type Service struct {
	store  Store
	logger *zap.Logger
	pick   func(n int) int
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pick := cfg.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return &Service{store: cfg.Store, logger: logger, pick: pick}, nil
}

// Get returns puzzle id. Sparse gaps inside the valid range report ErrPuzzleNotFound.
func (s *Service) Get(ctx context.Context, id int) (Puzzle, error) {
	if !ValidID(id) {
		return Puzzle{}, ErrInvalidPuzzleID
	}
	puzzle, ok, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("puzzle lookup failed", zap.Int("puzzle_id", id), zap.Error(err))
		return Puzzle{}, err
	}
	if !ok {
		return Puzzle{}, ErrPuzzleNotFound
	}
	return puzzle.withDefaults(), nil
}

// Random picks uniformly among the stored puzzles of the given level.
func (s *Service) Random(ctx context.Context, difficulty Difficulty) (Puzzle, error) {
	low, high := difficulty.Range()
	if low > high {
		return Puzzle{}, ErrUnknownDifficulty
	}
	ids, err := s.store.IDs(ctx, low, high)
	if err != nil {
		s.logger.Error("puzzle scan failed", zap.String("difficulty", string(difficulty)), zap.Error(err))
		return Puzzle{}, err
	}
	if len(ids) == 0 {
		return Puzzle{}, ErrNoPuzzles
	}
	return s.Get(ctx, ids[s.pick(len(ids))])
}

// Range lists the stored puzzles with ids in [min, max], ordered by id.
func (s *Service) Range(ctx context.Context, min, max int) ([]Puzzle, error) {
	if min < 1 || max > MaxPuzzleID || min > max {
		return nil, ErrInvalidRange
	}
	ids, err := s.store.IDs(ctx, min, max)
	if err != nil {
		s.logger.Error("puzzle scan failed", zap.Int("min", min), zap.Int("max", max), zap.Error(err))
		return nil, err
	}
	result := make([]Puzzle, 0, len(ids))
	for _, id := range ids {
		puzzle, err := s.Get(ctx, id)
		if errors.Is(err, ErrPuzzleNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, puzzle)
	}
	return result, nil
}

// All lists the whole catalogue.
func (s *Service) All(ctx context.Context) ([]Puzzle, error) {
	return s.Range(ctx, 1, MaxPuzzleID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
